package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	apperrors "github.com/gianix81/payAnalyst/internal"
	"github.com/gianix81/payAnalyst/internal/gemini"
	"github.com/gianix81/payAnalyst/internal/payslip"
)

// Generator is the single-shot model call the analysis operations depend on.
type Generator interface {
	Generate(ctx context.Context, req *gemini.Request) (*genai.GenerateContentResponse, error)
}

// Runner bounds concurrent model calls. *gemini.Pool satisfies it.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// File is an uploaded document to extract a payslip from.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

type ServiceAPI interface {
	AnalyzePayslip(ctx context.Context, file File) (payslip.Payslip, error)
	CompareSummary(ctx context.Context, p1, p2 payslip.Payslip) (string, error)
	Summary(ctx context.Context, p payslip.Payslip) (string, error)
	Historical(ctx context.Context, current payslip.Payslip, archive []payslip.Payslip) (payslip.HistoricalAnalysis, error)
}

type Service struct {
	ai     Generator
	runner Runner
	logger *slog.Logger
}

// NewService builds the analysis service. runner may be nil, in which case calls
// go straight to the generator.
func NewService(ai Generator, runner Runner, logger *slog.Logger) *Service {
	return &Service{ai: ai, runner: runner, logger: logger}
}

func SupportedMimeType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return strings.HasPrefix(mime, "image/") || mime == "application/pdf"
}

func (s *Service) generate(ctx context.Context, req *gemini.Request) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		resp, err := s.ai.Generate(ctx, req)
		if err != nil {
			return err
		}
		text = resp.Text()
		return nil
	}

	var err error
	if s.runner != nil {
		err = s.runner.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", apperrors.NewExternalError("Il servizio di analisi non è al momento disponibile.", apperrors.ErrCodeAIUnavailable, err)
	}
	return text, nil
}

// AnalyzePayslip extracts a structured payslip from an image or PDF.
func (s *Service) AnalyzePayslip(ctx context.Context, file File) (payslip.Payslip, error) {
	if len(file.Data) == 0 {
		return payslip.Payslip{}, apperrors.NewValidationFieldError("file", "file is empty", apperrors.ErrCodeInvalidFile)
	}
	if !SupportedMimeType(file.MimeType) {
		return payslip.Payslip{}, apperrors.NewValidationFieldError("file", "file must be an image or a PDF", apperrors.ErrCodeInvalidFile)
	}

	req := &gemini.Request{
		Contents: []*genai.Content{gemini.NewContent(gemini.RoleUser,
			gemini.TextPart(extractionPrompt),
			gemini.InlinePart(file.MimeType, file.Data),
		)},
		Config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   PayslipSchema(),
		},
	}

	text, err := s.generate(ctx, req)
	if err != nil {
		s.logger.Error("payslip extraction failed", "file", file.Name, "error", err)
		return payslip.Payslip{}, err
	}

	var p payslip.Payslip
	if err := json.Unmarshal([]byte(stripFence(text)), &p); err != nil {
		s.logger.Warn("extraction returned unparsable output", "file", file.Name, "error", err)
		return payslip.Payslip{}, apperrors.ErrExtractionFailed
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}

	s.logger.Info("payslip extracted",
		"file", file.Name,
		"payslip_id", p.ID,
		"month", p.Period.Month,
		"year", p.Period.Year,
	)
	return p, nil
}

func (s *Service) CompareSummary(ctx context.Context, p1, p2 payslip.Payslip) (string, error) {
	prompt, err := comparisonPrompt(p1, p2)
	if err != nil {
		return "", apperrors.NewInternalError("failed to build comparison prompt", err)
	}
	return s.generate(ctx, textRequest(prompt))
}

// Summary explains a single payslip in two or three plain paragraphs.
func (s *Service) Summary(ctx context.Context, p payslip.Payslip) (string, error) {
	prompt, err := summaryPrompt(p)
	if err != nil {
		return "", apperrors.NewInternalError("failed to build summary prompt", err)
	}
	return s.generate(ctx, textRequest(prompt))
}

// Historical compares current against the archive entries strictly older than it.
// Averages the model leaves out are filled in locally.
func (s *Service) Historical(ctx context.Context, current payslip.Payslip, archive []payslip.Payslip) (payslip.HistoricalAnalysis, error) {
	history := payslip.Before(archive, current.Period)
	if len(history) == 0 {
		return payslip.HistoricalAnalysis{}, apperrors.ErrNoHistory
	}

	prompt, err := historicalPrompt(current, history)
	if err != nil {
		return payslip.HistoricalAnalysis{}, apperrors.NewInternalError("failed to build historical prompt", err)
	}
	req := textRequest(prompt)
	req.Config = &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   HistoricalSchema(),
	}

	text, err := s.generate(ctx, req)
	if err != nil {
		return payslip.HistoricalAnalysis{}, err
	}

	var result payslip.HistoricalAnalysis
	if err := json.Unmarshal([]byte(stripFence(text)), &result); err != nil {
		s.logger.Warn("historical analysis returned unparsable output", "payslip_id", current.ID, "error", err)
		return payslip.HistoricalAnalysis{}, apperrors.ErrHistoryInvalid
	}
	result.Normalize(history)

	s.logger.Info("historical analysis completed",
		"payslip_id", current.ID,
		"history_size", len(history),
		"differing_items", len(result.DifferingItems),
	)
	return result, nil
}

func textRequest(prompt string) *gemini.Request {
	return &gemini.Request{Contents: gemini.UserText(prompt)}
}

// stripFence removes a ```json ... ``` wrapper some models add around JSON output.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
