// Package parser extracts structured job details from free-text postings.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

// MaxInputChars caps how much of a posting is sent to the model
const MaxInputChars = 20000

// ErrNotConfigured is returned by every call when no model credentials are set
var ErrNotConfigured = fmt.Errorf("job parser is %w", domain.ErrNotConfigured)

type Parser interface {
	Parse(ctx context.Context, rawText string) (*domain.ParsedPosting, error)
}

type Config struct {
	APIKey string
	Model  string
}

// New builds the model backed parser, or a parser that always reports
// ErrNotConfigured when no API key is set
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Parser, error) {
	if cfg.APIKey == "" {
		logger.Warn("Job parser disabled, no API key configured")
		return Unconfigured{}, nil
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return NewLLMParser(llm, logger), nil
}

// Unconfigured rejects every parse request
type Unconfigured struct{}

func (Unconfigured) Parse(context.Context, string) (*domain.ParsedPosting, error) {
	return nil, ErrNotConfigured
}

// LLMParser prompts a language model and decodes its JSON answer
type LLMParser struct {
	model  llms.Model
	logger *slog.Logger
}

func NewLLMParser(model llms.Model, logger *slog.Logger) *LLMParser {
	return &LLMParser{model: model, logger: logger}
}

const extractionPrompt = `You extract structured data from job postings.

Read the posting below and answer with a single JSON object and nothing else.
Ignore navigation menus, footers, similar job lists and advertisements.

Schema:
{
  "company": "company name",
  "position": "job title",
  "location": "job location or Remote",
  "salary": "salary range exactly as written, or null",
  "description": "short plain text summary of responsibilities and requirements"
}

Use null for anything the posting does not state. Do not guess.

Posting:
%s
`

func (p *LLMParser) Parse(ctx context.Context, rawText string) (*domain.ParsedPosting, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	text = truncate(text, MaxInputChars)

	resp, err := llms.GenerateFromSinglePrompt(ctx, p.model, fmt.Sprintf(extractionPrompt, text),
		llms.WithTemperature(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}

	posting, err := decode(resp)
	if err != nil {
		p.logger.Warn("Model answer is not a posting", slog.Int("answer_size", len(resp)), slog.Any("error", err))
		return nil, err
	}
	return posting, nil
}

// truncate cuts s to at most n characters without splitting a rune
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

type answer struct {
	Company     *string `json:"company"`
	Position    *string `json:"position"`
	Location    *string `json:"location"`
	Salary      *string `json:"salary"`
	Description *string `json:"description"`
}

var errNoJSON = errors.New("model answer holds no JSON object")

func decode(resp string) (*domain.ParsedPosting, error) {
	body := stripFences(resp)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, errNoJSON
	}

	var a answer
	if err := json.Unmarshal([]byte(body[start:end+1]), &a); err != nil {
		return nil, fmt.Errorf("failed to decode model answer: %w", err)
	}
	return &domain.ParsedPosting{
		Company:     deref(a.Company),
		Position:    deref(a.Position),
		Location:    deref(a.Location),
		Salary:      deref(a.Salary),
		Description: deref(a.Description),
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
