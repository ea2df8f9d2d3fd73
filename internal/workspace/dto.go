package workspace

import (
	"github.com/gianix81/payAnalyst/internal/assistant"
	"github.com/gianix81/payAnalyst/internal/core/common/validation"
	"github.com/gianix81/payAnalyst/internal/profile"
)

type NavigateDTO struct {
	View string `json:"view" validate:"required"`
}

// ProfileDTO carries onboarding and settings edits. Role and uid come from the
// identity provider and are not accepted here.
type ProfileDTO struct {
	FirstName    string `json:"firstName" validate:"omitempty,max=100"`
	LastName     string `json:"lastName" validate:"omitempty,max=100"`
	DateOfBirth  string `json:"dateOfBirth" validate:"omitempty,isodate"`
	PlaceOfBirth string `json:"placeOfBirth" validate:"omitempty,max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
}

func (dto ProfileDTO) Validate() error {
	return validation.Struct(dto)
}

func (dto ProfileDTO) ToProfile() profile.UserProfile {
	return profile.UserProfile{
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		DateOfBirth:  dto.DateOfBirth,
		PlaceOfBirth: dto.PlaceOfBirth,
		Email:        dto.Email,
	}
}

type StageDTO struct {
	ID string `json:"id" validate:"required"`
}

func (dto StageDTO) Validate() error {
	return validation.Struct(dto)
}

type CompareDTO struct {
	IDs []string `json:"ids" validate:"omitempty,len=2,dive,required"`
}

func (dto CompareDTO) Validate() error {
	return validation.Struct(dto)
}

type AttachmentDTO struct {
	Name     string `json:"name" validate:"max=255"`
	MimeType string `json:"mimeType" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
}

// AskDTO is a chat question. Attachment data travels base64 encoded.
type AskDTO struct {
	Text             string         `json:"text" validate:"required,max=4000"`
	Scope            string         `json:"scope" validate:"omitempty,oneof=archive focused compare"`
	IncludeTaxTables bool           `json:"includeTaxTables"`
	Attachment       *AttachmentDTO `json:"attachment,omitempty"`
}

func (dto AskDTO) Validate() error {
	return validation.Struct(dto)
}

func (dto AskDTO) ToRequest() AskRequest {
	req := AskRequest{Text: dto.Text, Scope: dto.Scope, IncludeTaxTables: dto.IncludeTaxTables}
	if req.Scope == "" {
		req.Scope = ScopeArchive
	}
	if dto.Attachment != nil {
		req.Attachment = &assistant.Attachment{
			Name:     dto.Attachment.Name,
			MimeType: dto.Attachment.MimeType,
			Data:     dto.Attachment.Data,
		}
	}
	return req
}
