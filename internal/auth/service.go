package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/core/events"
)

// Options wires the optional sign-in providers. A nil provider is disabled.
type Options struct {
	Google      Verifier
	GoogleOAuth *GoogleOAuth
	Firebase    Verifier
	Bus         *events.EventBus
	AdminEmails []string
	BCryptCost  int
	Logger      *slog.Logger
}

type Service struct {
	repo        RepositoryAPI
	tokens      TokenGeneratorAPI
	google      Verifier
	googleOAuth *GoogleOAuth
	firebase    Verifier
	bus         *events.EventBus
	admins      map[string]bool
	bcryptCost  int
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, opts Options) *Service {
	cost := opts.BCryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[string]bool, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		admins[normalizeEmail(e)] = true
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		google:      opts.Google,
		googleOAuth: opts.GoogleOAuth,
		firebase:    opts.Firebase,
		bus:         opts.Bus,
		admins:      admins,
		bcryptCost:  cost,
		logger:      logger.With("component", "auth"),
		now:         time.Now,
	}
}

// Authenticate checks admin credentials and returns tokens.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	account, err := s.repo.FindByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil || account == nil || account.PasswordHash == "" {
		return AuthTokens{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(account.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}
	if !account.IsActive {
		return AuthTokens{}, ErrUserInactive
	}
	return s.signIn(ctx, account)
}

func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (AuthTokens, error) {
	if s.google == nil {
		return AuthTokens{}, ErrProviderDisabled
	}
	return s.signInExternal(ctx, ProviderGoogle, s.google, idToken)
}

func (s *Service) SignInWithFirebase(ctx context.Context, idToken string) (AuthTokens, error) {
	if s.firebase == nil {
		return AuthTokens{}, ErrProviderDisabled
	}
	return s.signInExternal(ctx, ProviderFirebase, s.firebase, idToken)
}

func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.googleOAuth == nil {
		return "", ErrProviderDisabled
	}
	return s.googleOAuth.AuthCodeURL(state), nil
}

func (s *Service) ExchangeGoogleCode(ctx context.Context, code string) (AuthTokens, error) {
	if s.googleOAuth == nil {
		return AuthTokens{}, ErrProviderDisabled
	}
	ext, err := s.googleOAuth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("google code exchange failed", "error", err)
		return AuthTokens{}, ErrInvalidToken
	}
	return s.registerExternal(ctx, ProviderGoogle, ext)
}

func (s *Service) signInExternal(ctx context.Context, provider string, v Verifier, rawToken string) (AuthTokens, error) {
	if strings.TrimSpace(rawToken) == "" {
		return AuthTokens{}, ErrInvalidToken
	}
	ext, err := v.Verify(ctx, rawToken)
	if err != nil {
		s.logger.Warn("id token verification failed", "provider", provider, "error", err)
		return AuthTokens{}, ErrInvalidToken
	}
	return s.registerExternal(ctx, provider, ext)
}

// registerExternal maps a verified provider identity onto an account. An
// existing account with the same email keeps its uid and role.
func (s *Service) registerExternal(ctx context.Context, provider string, ext ExternalIdentity) (AuthTokens, error) {
	email := normalizeEmail(ext.Email)
	if email == "" || ext.Subject == "" {
		return AuthTokens{}, ErrInvalidToken
	}

	candidate := &Account{
		UID:       ext.Subject,
		Email:     email,
		FirstName: ext.FirstName,
		LastName:  ext.LastName,
		Role:      RoleUser,
		Provider:  provider,
		IsActive:  true,
	}
	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		if !existing.IsActive {
			return AuthTokens{}, ErrUserInactive
		}
		candidate.ID = existing.ID
		candidate.UID = existing.UID
		candidate.Role = existing.Role
		candidate.PasswordHash = existing.PasswordHash
		candidate.IsActive = existing.IsActive
		if candidate.FirstName == "" {
			candidate.FirstName = existing.FirstName
		}
		if candidate.LastName == "" {
			candidate.LastName = existing.LastName
		}
	}
	if s.admins[email] {
		candidate.Role = RoleAdmin
	}

	account, err := s.repo.UpsertProvider(ctx, candidate)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to register account", err)
	}
	return s.signIn(ctx, account)
}

func (s *Service) signIn(ctx context.Context, account *Account) (AuthTokens, error) {
	id := account.Identity()
	tokens, err := s.issue(id)
	if err != nil {
		return AuthTokens{}, err
	}
	if err := s.repo.TouchLogin(ctx, account.UID, s.now()); err != nil {
		s.logger.Warn("failed to record last login", "user_id", account.UID, "error", err)
	}
	s.logger.Info("user signed in", "user_id", id.UID, "provider", id.Provider, "role", id.Role)
	if s.bus != nil {
		event := events.NewSignedInEvent(id.UID, id.Email, id.Role, id.Provider).WithNames(id.FirstName, id.LastName)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish sign-in", "user_id", id.UID, "error", err)
		}
	}
	return tokens, nil
}

func (s *Service) issue(id apperrors.Identity) (AuthTokens, error) {
	accessToken, err := s.tokens.GenerateAccessToken(id)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to issue access token", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(id)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to issue refresh token", err)
	}
	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         id,
	}, nil
}

// RefreshTokens validates the refresh token against the current account and
// returns a new pair.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}
	account, err := s.repo.FindByUID(ctx, claims.UserID)
	if err != nil || account == nil {
		return AuthTokens{}, ErrInvalidToken
	}
	if !account.IsActive {
		return AuthTokens{}, ErrUserInactive
	}
	return s.issue(account.Identity())
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

// Logout announces the sign-out so the user's workspace is torn down before
// the call returns.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidToken
	}
	s.logger.Info("user signed out", "user_id", userID)
	if s.bus == nil {
		return nil
	}
	return s.bus.PublishSync(ctx, events.NewSignedOutEvent(userID))
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateRandomToken generates a cryptographically secure random token
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
