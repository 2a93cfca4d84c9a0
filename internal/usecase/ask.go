package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"strings"
	"text/template"
	"time"

	"papertalk/internal/domain"
	"papertalk/internal/logger"
	"papertalk/internal/port"
)

// NoInformationAnswer is returned when no retrieved context fits the budget.
const NoInformationAnswer = "No relevant information found."

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

// AskConfig holds the tunables of the question answering path.
type AskConfig struct {
	TokenBudget int
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// AskUseCase answers questions from the chunks of one space.
type AskUseCase struct {
	retrieve  *RetrieveUseCase
	assembler *ContextAssembler
	generator port.Generator
	cfg       AskConfig
}

// NewAskUseCase creates a new ask use case. generator may be nil, in which
// case Ask fails with ErrInvalidConfiguration once it has context to send.
func NewAskUseCase(retrieve *RetrieveUseCase, assembler *ContextAssembler, generator port.Generator, cfg AskConfig) *AskUseCase {
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = 2500
	}
	return &AskUseCase{
		retrieve:  retrieve,
		assembler: assembler,
		generator: generator,
		cfg:       cfg,
	}
}

// RenderPrompt fills the answer prompt with an assembled context.
func RenderPrompt(contextText, question string) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Context  string
		Question string
	}{contextText, question})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Ask retrieves, assembles and generates an answer. When the context is
// empty the generator is not called and the answer says so. A failed or
// empty generation returns both an error and an Answer carrying the
// sources that were retrieved.
func (u *AskUseCase) Ask(ctx context.Context, spaceID, query string) (*domain.Answer, error) {
	const op = "ask"
	logger.Section("ask")

	resp, err := u.retrieve.Search(ctx, spaceID, query, SearchOptions{})
	if err != nil {
		return nil, err
	}

	assembled := u.assembler.Assemble(resp.Results, u.cfg.TokenBudget)
	answer := &domain.Answer{
		Query:   query,
		Sources: assembled.Sources,
		Debug: domain.AnswerDebug{
			ContextTokens:   assembled.TokensUsed,
			ChunksUsed:      len(assembled.Sources),
			ChunksAvailable: len(resp.Results),
		},
	}

	if assembled.Empty() {
		logger.Debug("ask: no context for %q in space %q", query, spaceID)
		answer.Text = NoInformationAnswer
		return answer, nil
	}

	if u.generator == nil {
		return answer, domain.Errorf(domain.ErrInvalidConfiguration, op, "no generation provider configured")
	}

	prompt, err := RenderPrompt(assembled.Text, query)
	if err != nil {
		return answer, domain.E(domain.ErrGenerationFailed, op, err)
	}

	genCtx := ctx
	if u.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, u.cfg.Timeout)
		defer cancel()
	}

	done := logger.Timed("generate")
	text, err := u.generator.Generate(genCtx, prompt, port.GenerateOptions{
		Temperature: u.cfg.Temperature,
		MaxTokens:   u.cfg.MaxTokens,
	})
	done()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return answer, domain.E(domain.ErrTimeout, op, err)
		}
		return answer, domain.Classify(domain.ErrGenerationFailed, op, err)
	}
	if strings.TrimSpace(text) == "" {
		return answer, domain.Errorf(domain.ErrGenerationFailed, op, "empty response from %s", u.generator.ModelName())
	}

	answer.Text = text
	answer.Grounded = true
	return answer, nil
}
