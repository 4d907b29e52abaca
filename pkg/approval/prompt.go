package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/entrhq/browserguard/pkg/plan"
)

// DefaultToken is the answer that approves a plan or a domain.
const DefaultToken = "yes"

// Prompt is a line-oriented terminal approver. It also implements
// policy.Decider for the session entry gate.
type Prompt struct {
	out      io.Writer
	lines    *lineReader
	token    string
	renderer *Renderer
}

// PromptOption configures a Prompt.
type PromptOption func(*Prompt)

// WithToken sets the affirmation token. Empty tokens are ignored.
func WithToken(token string) PromptOption {
	return func(p *Prompt) {
		if token != "" {
			p.token = token
		}
	}
}

// WithRenderer sets how plans are displayed.
func WithRenderer(r *Renderer) PromptOption {
	return func(p *Prompt) {
		p.renderer = r
	}
}

// NewPrompt creates a prompt reading answers from in and writing to out.
func NewPrompt(in io.Reader, out io.Writer, opts ...PromptOption) *Prompt {
	p := &Prompt{
		out:   out,
		lines: &lineReader{r: bufio.NewReader(in)},
		token: DefaultToken,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = NewRenderer(out)
	}
	return p
}

// Token returns the affirmation token.
func (p *Prompt) Token() string {
	return p.token
}

// RequestApproval prints the full plan and approves only when the answer,
// with surrounding whitespace removed, equals the token exactly.
func (p *Prompt) RequestApproval(ctx context.Context, pl plan.Plan) (bool, error) {
	fmt.Fprintln(p.out, p.renderer.Plan(pl))

	answer, err := p.Ask(ctx, fmt.Sprintf("Approve execution of the above plan? Type '%s' to execute: ", p.token))
	if err != nil {
		return false, err
	}
	return answer == p.token, nil
}

// AllowDomain asks whether an unlisted domain may be used for this session.
func (p *Prompt) AllowDomain(ctx context.Context, domain string) (bool, error) {
	fmt.Fprintln(p.out, p.renderer.Warning(fmt.Sprintf("WARNING: %s is not in the allowed domains.", domain)))

	answer, err := p.Ask(ctx, fmt.Sprintf("Add it for this session only? (type '%s' to continue): ", p.token))
	if err != nil {
		return false, err
	}
	return answer == p.token, nil
}

// Ask prints question and returns the next input line without surrounding
// whitespace. It gives up when ctx is done.
func (p *Prompt) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.lines.next(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// lineReader reads lines on a single background goroutine so a blocked read
// can be abandoned when the context ends without two readers racing later.
type lineReader struct {
	r     *bufio.Reader
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func (lr *lineReader) next(ctx context.Context) (string, error) {
	lr.once.Do(func() {
		lr.lines = make(chan lineResult)
		go lr.loop()
	})

	select {
	case res, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (lr *lineReader) loop() {
	defer close(lr.lines)
	for {
		line, err := lr.r.ReadString('\n')
		if line != "" {
			lr.lines <- lineResult{line: line}
		}
		if err != nil {
			lr.lines <- lineResult{err: err}
			return
		}
	}
}
