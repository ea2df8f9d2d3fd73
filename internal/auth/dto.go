package auth

import "github.com/gianix81/payAnalyst/internal/core/common/validation"

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (d LoginDTO) Validate() error {
	return validation.Struct(d)
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (d RefreshTokenDTO) Validate() error {
	return validation.Struct(d)
}

// IDTokenDTO carries a Google or Firebase ID token obtained by the client.
type IDTokenDTO struct {
	IDToken string `json:"id_token" validate:"required"`
}

func (d IDTokenDTO) Validate() error {
	return validation.Struct(d)
}
