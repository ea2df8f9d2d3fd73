package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/gemini"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// FailureText replaces the answer when the model call fails.
const FailureText = "Spiacente, non sono riuscito a elaborare la tua richiesta. Riprova."

var ErrSuperseded = errors.New("assistant: response superseded by a newer question")

type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

type Question struct {
	Text       string
	Context    Context
	Attachment *Attachment
}

// Streamer delivers a model answer chunk by chunk. *gemini.Client satisfies it.
type Streamer interface {
	Stream(ctx context.Context, req *gemini.Request, onChunk func(text string) error) error
}

// Conversation is one chat with the assistant. A new question supersedes the
// answer still streaming: its context is cancelled and its late chunks are dropped.
type Conversation struct {
	mu         sync.Mutex
	streamer   Streamer
	taxTables  string
	logger     *slog.Logger
	messages   []Message
	generation uint64
	cancel     context.CancelFunc
	contextKey string
}

func NewConversation(streamer Streamer, taxTables string, logger *slog.Logger) *Conversation {
	return &Conversation{streamer: streamer, taxTables: taxTables, logger: logger}
}

// Ask appends the question and a new answer to the conversation and streams the
// answer into it, calling onDelta for every accepted chunk. A model failure is not
// returned as an error: the answer carries FailureText instead. ErrSuperseded is
// returned when a newer question or Clear took over while streaming.
func (c *Conversation) Ask(ctx context.Context, q Question, onDelta func(delta string)) (Message, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Message{}, apperrors.NewValidationFieldError("text", "text is required", apperrors.ErrCodeValidationFailed)
	}
	if q.Attachment != nil && len(q.Attachment.Data) == 0 {
		return Message{}, apperrors.NewValidationFieldError("file", "file is empty", apperrors.ErrCodeInvalidFile)
	}

	c.mu.Lock()
	if key := q.Context.Key(); key != c.contextKey {
		c.messages = nil
		c.contextKey = key
	}
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	history := c.historyLocked()
	answer := Message{ID: uuid.NewString(), Sender: SenderAI}
	c.messages = append(c.messages, Message{ID: uuid.NewString(), Text: text, Sender: SenderUser}, answer)
	c.mu.Unlock()
	defer cancel()

	req := c.request(history, text, q)
	err := c.streamer.Stream(streamCtx, req, func(chunk string) error {
		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return ErrSuperseded
		}
		c.appendLocked(answer.ID, chunk)
		c.mu.Unlock()
		if onDelta != nil {
			onDelta(chunk)
		}
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug("assistant answer superseded", "message_id", answer.ID)
		if msg, ok := c.findLocked(answer.ID); ok {
			return msg, ErrSuperseded
		}
		return answer, ErrSuperseded
	}
	c.cancel = nil
	if err != nil {
		c.logger.Error("assistant answer failed", "message_id", answer.ID, "error", err)
		c.setLocked(answer.ID, FailureText)
	}
	msg, _ := c.findLocked(answer.ID)
	return msg, nil
}

func (c *Conversation) request(history []*genai.Content, text string, q Question) *gemini.Request {
	qc := q.Context
	qc.HasAttachment = q.Attachment != nil

	parts := []*genai.Part{gemini.TextPart(text)}
	if q.Attachment != nil {
		parts = append([]*genai.Part{gemini.InlinePart(q.Attachment.MimeType, q.Attachment.Data)}, parts...)
	}
	return &gemini.Request{
		Contents: append(history, gemini.NewContent(gemini.RoleUser, parts...)),
		Config: &genai.GenerateContentConfig{
			SystemInstruction: gemini.NewContent("", gemini.TextPart(BuildInstruction(qc, c.taxTables))),
		},
	}
}

func (c *Conversation) historyLocked() []*genai.Content {
	out := make([]*genai.Content, 0, len(c.messages)+1)
	for _, m := range c.messages {
		if m.Text == "" {
			continue
		}
		role := gemini.RoleModel
		if m.Sender == SenderUser {
			role = gemini.RoleUser
		}
		out = append(out, gemini.NewContent(role, gemini.TextPart(m.Text)))
	}
	return out
}

func (c *Conversation) findLocked(id string) (Message, bool) {
	for _, m := range c.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

func (c *Conversation) appendLocked(id, chunk string) {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Text += chunk
			return
		}
	}
}

func (c *Conversation) setLocked(id, text string) {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Text = text
			return
		}
	}
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Streaming reports whether an answer is still being received.
func (c *Conversation) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Clear drops the history and abandons any answer in flight.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.messages = nil
	c.contextKey = ""
}
