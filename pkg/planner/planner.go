// Package planner turns a page snapshot and a task description into the raw
// text of a candidate plan. The text is untrusted: it still has to pass
// plan.Parse, the domain policy and human approval before anything runs.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/entrhq/browserguard/pkg/llm"
	"github.com/entrhq/browserguard/pkg/logging"
)

// DefaultMaxPageChars bounds the page text sent to the model.
const DefaultMaxPageChars = 3000

// ErrPlannerUnavailable wraps every failure to obtain a reply.
var ErrPlannerUnavailable = errors.New("planner unavailable")

// Request is what the planner knows about the page and the task.
type Request struct {
	PageURL  string
	PageText string
	Task     string
}

// Planner produces candidate plan text.
type Planner interface {
	Plan(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Planner.
type Func func(ctx context.Context, req Request) (string, error)

// Plan calls f.
func (f Func) Plan(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// LLMPlanner asks a chat model for a plan.
type LLMPlanner struct {
	provider     llm.Provider
	maxPageChars int
	logger       *logging.Logger
}

// Option configures an LLMPlanner.
type Option func(*LLMPlanner)

// WithMaxPageChars sets how much page text is included in the prompt.
func WithMaxPageChars(n int) Option {
	return func(p *LLMPlanner) {
		if n > 0 {
			p.maxPageChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *LLMPlanner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewLLMPlanner creates a planner backed by provider.
func NewLLMPlanner(provider llm.Provider, opts ...Option) *LLMPlanner {
	p := &LLMPlanner{
		provider:     provider,
		maxPageChars: DefaultMaxPageChars,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan sends one completion request and returns the trimmed reply.
func (p *LLMPlanner) Plan(ctx context.Context, req Request) (string, error) {
	if p.provider == nil {
		return "", fmt.Errorf("%w: no LLM provider configured", ErrPlannerUnavailable)
	}

	messages := BuildMessages(req, p.maxPageChars)
	p.logger.Infof("requesting plan from %s (%d chars of page text)", p.provider.GetModel(), utf8.RuneCountInString(req.PageText))

	reply, err := p.provider.Complete(ctx, messages)
	if err != nil {
		p.logger.Errorf("plan request failed: %v", err)
		return "", fmt.Errorf("%w: %w", ErrPlannerUnavailable, err)
	}
	if reply == nil {
		return "", fmt.Errorf("%w: empty reply", ErrPlannerUnavailable)
	}

	text := strings.TrimSpace(reply.Content)
	p.logger.Debugf("planner reply: %s", text)
	return text, nil
}

// BuildMessages renders the system and user prompts. Page text is cut to
// at most maxPageChars characters.
func BuildMessages(req Request, maxPageChars int) []*llm.Message {
	user := fmt.Sprintf(userPromptTemplate,
		req.PageURL, truncate(req.PageText, maxPageChars), req.Task, ExampleOutput)
	return []*llm.Message{
		llm.NewSystemMessage(SystemPrompt),
		llm.NewUserMessage(user),
	}
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
