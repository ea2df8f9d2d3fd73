package gemini

import (
	"google.golang.org/genai"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Request is one model call: the conversation so far plus generation settings
// (system instruction, response MIME type and schema).
type Request struct {
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

func TextPart(text string) *genai.Part {
	return &genai.Part{Text: text}
}

// InlinePart embeds a file. The SDK base64-encodes it on the wire.
func InlinePart(mimeType string, data []byte) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

func NewContent(role string, parts ...*genai.Part) *genai.Content {
	return &genai.Content{Role: role, Parts: parts}
}

// UserText is the common single-turn request body.
func UserText(text string) []*genai.Content {
	return []*genai.Content{NewContent(RoleUser, TextPart(text))}
}
