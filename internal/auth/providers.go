package auth

import (
	"context"
	"fmt"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// ExternalIdentity is what an identity provider vouches for.
type ExternalIdentity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Verifier checks a provider issued ID token.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (ExternalIdentity, error)
}

// GoogleVerifier validates Google ID tokens issued for the configured client.
type GoogleVerifier struct {
	Audience string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{Audience: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (ExternalIdentity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.Audience)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("google id token rejected: %w", err)
	}
	id := ExternalIdentity{
		Subject:   payload.Subject,
		Email:     claimString(payload.Claims, "email"),
		FirstName: claimString(payload.Claims, "given_name"),
		LastName:  claimString(payload.Claims, "family_name"),
	}
	if id.FirstName == "" && id.LastName == "" {
		id.FirstName, id.LastName = splitName(claimString(payload.Claims, "name"))
	}
	return id, nil
}

// FirebaseVerifier validates Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

func NewFirebaseVerifier(client *firebaseauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (ExternalIdentity, error) {
	token, err := v.client.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("firebase id token rejected: %w", err)
	}
	first, last := splitName(claimString(token.Claims, "name"))
	return ExternalIdentity{
		Subject:   token.UID,
		Email:     claimString(token.Claims, "email"),
		FirstName: first,
		LastName:  last,
	}, nil
}

// GoogleOAuth runs the authorization code flow and verifies the returned ID token.
type GoogleOAuth struct {
	config   *oauth2.Config
	verifier Verifier
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string, verifier Verifier) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		verifier: verifier,
	}
}

func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (ExternalIdentity, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("oauth code exchange failed: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return ExternalIdentity{}, fmt.Errorf("oauth response carried no id_token")
	}
	return g.verifier.Verify(ctx, raw)
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// splitName treats the last word of a display name as the last name.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
