// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/browserguard/pkg/browser"
	"github.com/entrhq/browserguard/pkg/plan"
)

// Call records one operation performed against the fake page.
type Call struct {
	Op       string // open, find, click, clear, type, submit
	By       plan.SelectorKind
	Selector string
	Arg      string
}

// Page is a scripted browser.Page. Elements are registered up front; every
// operation is appended to Calls.
type Page struct {
	mu       sync.Mutex
	Current  string
	Body     string
	BodyErr  error
	OpenErr  error
	FindErr  error
	elements map[string]*Element
	calls    []Call
}

var _ browser.Page = (*Page)(nil)

// NewPage returns an empty page showing url.
func NewPage(url string) *Page {
	return &Page{Current: url, elements: make(map[string]*Element)}
}

// Add registers an element reachable through by and selector.
func (p *Page) Add(by plan.SelectorKind, selector string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &Element{page: p, by: by, selector: selector}
	p.elements[key(by, selector)] = el
	return el
}

// Calls returns a copy of the recorded operations.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Ops returns just the operation names of the recorded calls.
func (p *Page) Ops() []string {
	calls := p.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func (p *Page) record(c Call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

func (p *Page) Open(_ context.Context, url string) error {
	p.record(Call{Op: "open", Arg: url})
	if p.OpenErr != nil {
		return p.OpenErr
	}
	p.mu.Lock()
	p.Current = url
	p.mu.Unlock()
	return nil
}

func (p *Page) BodyText(context.Context) (string, error) {
	return p.Body, p.BodyErr
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Current
}

func (p *Page) FindElement(_ context.Context, by plan.SelectorKind, selector string) (browser.Element, error) {
	p.record(Call{Op: "find", By: by, Selector: selector})
	if p.FindErr != nil {
		return nil, p.FindErr
	}
	p.mu.Lock()
	el, ok := p.elements[key(by, selector)]
	p.mu.Unlock()
	if !ok {
		return nil, &browser.LookupError{By: by, Selector: selector, Err: browser.ErrElementNotFound}
	}
	return el, nil
}

// Element is a scripted browser.Element.
type Element struct {
	page     *Page
	by       plan.SelectorKind
	selector string

	ClickErr  error
	ClearErr  error
	TypeErr   error
	SubmitErr error

	Value string
}

var _ browser.Element = (*Element)(nil)

func (e *Element) call(op, arg string) {
	e.page.record(Call{Op: op, By: e.by, Selector: e.selector, Arg: arg})
}

func (e *Element) Click(context.Context) error {
	e.call("click", "")
	return e.ClickErr
}

func (e *Element) Clear(context.Context) error {
	e.call("clear", "")
	if e.ClearErr == nil {
		e.Value = ""
	}
	return e.ClearErr
}

func (e *Element) Type(_ context.Context, text string) error {
	e.call("type", text)
	if e.TypeErr == nil {
		e.Value += text
	}
	return e.TypeErr
}

func (e *Element) Submit(context.Context) error {
	e.call("submit", "")
	return e.SubmitErr
}

func key(by plan.SelectorKind, selector string) string {
	return fmt.Sprintf("%s\x00%s", by, selector)
}
