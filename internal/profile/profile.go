package profile

import (
	"strings"

	"github.com/gianix81/payAnalyst/internal/core/common/validation"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserProfile is the identity the workspace is operated under. It gates
// onboarding and drives the payslip identity check.
type UserProfile struct {
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
	DateOfBirth  string `json:"dateOfBirth" validate:"omitempty,isodate"`
	PlaceOfBirth string `json:"placeOfBirth" validate:"max=100"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Role         Role   `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
	UID          string `json:"uid,omitempty"`
}

func (p UserProfile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p UserProfile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

func (p UserProfile) Validate() error {
	return validation.Struct(p)
}

// Merge overlays the non-empty fields of update onto p. Role and UID are never
// taken from update; they belong to the identity provider.
func (p UserProfile) Merge(update UserProfile) UserProfile {
	out := p
	if update.FirstName != "" {
		out.FirstName = update.FirstName
	}
	if update.LastName != "" {
		out.LastName = update.LastName
	}
	if update.DateOfBirth != "" {
		out.DateOfBirth = update.DateOfBirth
	}
	if update.PlaceOfBirth != "" {
		out.PlaceOfBirth = update.PlaceOfBirth
	}
	if update.Email != "" {
		out.Email = update.Email
	}
	return out
}
