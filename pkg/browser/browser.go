// Package browser defines the browser capability the plan executor drives and
// provides a Playwright-backed implementation of it.
//
// # Capability
//
// The executor only ever sees two small interfaces:
//
//   - Page: open a URL, read the body text, look up one element
//   - Element: click, clear, type, submit
//
// Resolve is the single entry point for element lookup. It rejects selector
// kinds outside css, xpath, id, name and link_text before the page is asked
// for anything, and reports a missing element as ErrElementNotFound.
//
// # Playwright
//
// Manager owns the Playwright driver and launches one Session per run. A
// Session wraps the browser, its context and its page, and translates each
// selector kind into a Playwright selector:
//
//	css        css=<selector>
//	xpath      xpath=<selector>
//	id         css=[id="<selector>"]
//	name       css=[name="<selector>"]
//	link_text  css=a:text-is("<selector>")
//
// Element lookups wait for the element to be attached for at most the
// session's lookup timeout.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/browserguard/pkg/plan"
)

// Sentinel errors reported by lookups and element operations.
var (
	ErrElementNotFound         = errors.New("element not found")
	ErrUnsupportedSelectorKind = plan.ErrUnsupportedSelectorKind
	// ErrSubmitUnsupported means the element has no form to submit. It is the
	// only submit failure the executor answers with a click.
	ErrSubmitUnsupported = errors.New("element does not support submit")
)

// Page is the part of a live browser page a plan can act on.
type Page interface {
	// Open navigates the page to url.
	Open(ctx context.Context, url string) error

	// BodyText returns the visible text of the current document.
	BodyText(ctx context.Context) (string, error)

	// FindElement returns the element matched by selector, or an error
	// matching ErrElementNotFound when nothing matches.
	FindElement(ctx context.Context, by plan.SelectorKind, selector string) (Element, error)

	// URL returns the address of the current document.
	URL() string
}

// Element is a handle to one element of the current page.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// Submit submits the element's form. It returns ErrSubmitUnsupported when
	// the element is not a form and does not belong to one.
	Submit(ctx context.Context) error
}

// LookupError describes a failed element lookup.
type LookupError struct {
	By       plan.SelectorKind
	Selector string
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("find %s=%q: %v", e.By, e.Selector, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Resolve looks up exactly one element on page. Unsupported selector kinds
// fail before the page is consulted.
func Resolve(ctx context.Context, page Page, by plan.SelectorKind, selector string) (Element, error) {
	if !by.Valid() {
		return nil, &LookupError{By: by, Selector: selector, Err: ErrUnsupportedSelectorKind}
	}

	el, err := page.FindElement(ctx, by, selector)
	if err != nil {
		var le *LookupError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LookupError{By: by, Selector: selector, Err: err}
	}
	if el == nil {
		return nil, &LookupError{By: by, Selector: selector, Err: ErrElementNotFound}
	}
	return el, nil
}
