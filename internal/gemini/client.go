package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

var ErrNotConfigured = errors.New("gemini: api key not configured")

type Config struct {
	APIKey            string
	BaseURL           string
	APIVersion        string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	HTTPClient        *http.Client
}

// Client wraps the genai models service. Every call waits on a shared token
// bucket first.
type Client struct {
	models  *genai.Models
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient builds the client. Without an api key it still succeeds, but every
// call fails with ErrNotConfigured.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	c := &Client{
		model:   model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "gemini", "model", model),
	}
	if cfg.APIKey == "" {
		c.logger.Warn("gemini api key missing, model calls are disabled")
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Configured() bool {
	return c.models != nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.models == nil {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// Generate performs a single generateContent call.
func (c *Client) Generate(ctx context.Context, req *Request) (*genai.GenerateContentResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, req.Contents, req.Config)
	if err != nil {
		c.logger.Warn("generateContent failed", "error", err)
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.logger.Debug("generateContent completed", "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// Stream performs a streamGenerateContent call and hands every text chunk to
// onChunk in arrival order. An error from onChunk stops the stream.
// Streams are bounded by the caller's context, not the client timeout.
func (c *Client) Stream(ctx context.Context, req *Request, onChunk func(text string) error) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	for chunk, err := range c.models.GenerateContentStream(ctx, c.model, req.Contents, req.Config) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gemini stream: %w", err)
		}
		if text := chunk.Text(); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
	return ctx.Err()
}
