package approval

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/browserguard/pkg/plan"
)

// Renderer formats plans and notices for the terminal.
type Renderer struct {
	color       bool
	defaultWait time.Duration

	header  lipgloss.Style
	index   lipgloss.Style
	kind    lipgloss.Style
	warning lipgloss.Style
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithColor enables ANSI styling and JSON syntax highlighting.
func WithColor(enabled bool) RendererOption {
	return func(r *Renderer) {
		r.color = enabled
	}
}

// WithDefaultWait sets the duration shown for waits without explicit seconds.
func WithDefaultWait(d time.Duration) RendererOption {
	return func(r *Renderer) {
		r.defaultWait = d
	}
}

// NewRenderer creates a renderer for out. Color is off unless enabled.
func NewRenderer(out io.Writer, opts ...RendererOption) *Renderer {
	lg := lipgloss.NewRenderer(out)
	r := &Renderer{
		defaultWait: 2 * time.Second,
		header:      lg.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		index:       lg.NewStyle().Foreground(lipgloss.Color("8")),
		kind:        lg.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Width(9),
		warning:     lg.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Warning formats a warning line.
func (r *Renderer) Warning(text string) string {
	return r.style(r.warning, text)
}

// Plan renders every step in order with its resolved fields, followed by the
// plan's JSON form.
func (r *Renderer) Plan(p plan.Plan) string {
	var b strings.Builder

	b.WriteString(r.style(r.header, "--- PLAN ---"))
	b.WriteString("\n")

	if len(p) == 0 {
		b.WriteString("(no steps: the plan does nothing)\n")
	}
	for i, a := range p {
		idx := fmt.Sprintf("%*d.", len(strconv.Itoa(len(p))), i+1)
		kind := fmt.Sprintf("%-9s", a.Kind())
		fmt.Fprintf(&b, "%s %s %s\n", r.style(r.index, idx), r.style(r.kind, kind), r.fields(a))
	}

	b.WriteString("\n")
	b.WriteString(r.json(p.Indented()))
	b.WriteString("\n")
	b.WriteString(r.style(r.header, "--- END PLAN ---"))
	return b.String()
}

func (r *Renderer) fields(a plan.Action) string {
	switch act := a.(type) {
	case plan.Click:
		return fmt.Sprintf("by=%s selector=%q", act.By, act.Selector)
	case plan.Submit:
		return fmt.Sprintf("by=%s selector=%q (click if the element has no form)", act.By, act.Selector)
	case plan.Fill:
		return fmt.Sprintf("by=%s selector=%q value=%q", act.By, act.Selector, act.Value)
	case plan.Navigate:
		return "url=" + act.URL
	case plan.Wait:
		if act.Seconds == nil {
			return fmt.Sprintf("seconds=%s (default)", formatSeconds(r.defaultWait.Seconds()))
		}
		return "seconds=" + formatSeconds(*act.Seconds)
	}
	return fmt.Sprintf("%v", a)
}

func (r *Renderer) json(src string) string {
	if !r.color {
		return src
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, src, "json", "terminal256", "monokai"); err != nil {
		return src
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
