package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/gianix81/payAnalyst/internal"
	userDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/user"
)

const (
	ProviderAdmin    = "admin"
	ProviderGoogle   = "google"
	ProviderFirebase = "firebase"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Re-exported so callers can match on them without importing the error package.
var (
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
	ErrInvalidToken       = apperrors.ErrInvalidToken
	ErrTokenExpired       = apperrors.ErrTokenExpired
	ErrUserInactive       = apperrors.ErrUserInactive
	ErrProviderDisabled   = apperrors.ErrProviderDisabled
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	SignInWithGoogle(ctx context.Context, idToken string) (AuthTokens, error)
	GoogleAuthURL(state string) (string, error)
	ExchangeGoogleCode(ctx context.Context, code string) (AuthTokens, error)
	SignInWithFirebase(ctx context.Context, idToken string) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	Logout(ctx context.Context, userID string) error
}

type RepositoryAPI interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUID(ctx context.Context, uid string) (*Account, error)
	// UpsertProvider creates or refreshes the account of a provider sign-in and
	// returns the stored record.
	UpsertProvider(ctx context.Context, a *Account) (*Account, error)
	TouchLogin(ctx context.Context, uid string, at time.Time) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(id apperrors.Identity) (string, error)
	GenerateRefreshToken(id apperrors.Identity) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTTL() time.Duration
}

// Account is a principal that may sign in.
type Account struct {
	ID           int64
	UID          string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	Provider     string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
}

func (a *Account) Identity() apperrors.Identity {
	return apperrors.Identity{
		UID:       a.UID,
		Email:     a.Email,
		Role:      a.Role,
		Provider:  a.Provider,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}

type AuthTokens struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	ExpiresIn    int64              `json:"expires_in"`
	User         apperrors.Identity `json:"user"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Provider  string `json:"provider"`
	FirstName string `json:"given_name,omitempty"`
	LastName  string `json:"family_name,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() apperrors.Identity {
	return apperrors.Identity{
		UID:       c.UserID,
		Email:     c.Email,
		Role:      c.Role,
		Provider:  c.Provider,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

func ToDataModel(a *Account) *userDatamodel.Account {
	return &userDatamodel.Account{
		ID:           a.ID,
		UID:          a.UID,
		Email:        a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Role:         a.Role,
		Provider:     a.Provider,
		PasswordHash: a.PasswordHash,
		IsActive:     a.IsActive,
		LastLoginAt:  a.LastLoginAt,
	}
}

func FromDataModel(a *userDatamodel.Account) *Account {
	return &Account{
		ID:           a.ID,
		UID:          a.UID,
		Email:        a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Role:         a.Role,
		Provider:     a.Provider,
		PasswordHash: a.PasswordHash,
		IsActive:     a.IsActive,
		LastLoginAt:  a.LastLoginAt,
	}
}
