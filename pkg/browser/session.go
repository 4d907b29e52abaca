package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/browserguard/pkg/plan"
	"github.com/playwright-community/playwright-go"
)

// submitScript submits the form owning the element. It resolves to false when
// there is no such form.
const submitScript = `el => {
	const form = el instanceof HTMLFormElement ? el : el.form;
	if (!form) {
		return false;
	}
	if (typeof form.requestSubmit === "function") {
		form.requestSubmit();
	} else {
		form.submit();
	}
	return true;
}`

var _ Page = (*Session)(nil)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

// Open navigates the session's page to url and waits for the load event.
func (s *Session) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.UpdateLastUsed()

	opts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}
	if s.navTimeout > 0 {
		opts.Timeout = playwright.Float(s.navTimeout)
	}

	if _, err := s.Page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.CurrentURL = s.Page.URL()
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// BodyText returns the rendered text of the body. When that is unavailable it
// falls back to the text of the page source, capped at FallbackSnapshotChars.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.UpdateLastUsed()

	text, err := s.Page.InnerText("body")
	if err == nil {
		return text, nil
	}

	source, srcErr := s.Page.Content()
	if srcErr != nil {
		return "", fmt.Errorf("body text: %w", errors.Join(err, srcErr))
	}
	return TextFromHTML(source, FallbackSnapshotChars)
}

// FindElement waits for the first element matching the selector to be
// attached to the DOM.
func (s *Session) FindElement(ctx context.Context, by plan.SelectorKind, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.UpdateLastUsed()

	pwSelector, err := Selector(by, selector)
	if err != nil {
		return nil, &LookupError{By: by, Selector: selector, Err: err}
	}

	opts := playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateAttached,
	}
	if s.lookupTimeout > 0 {
		opts.Timeout = playwright.Float(s.lookupTimeout)
	}

	handle, err := s.Page.WaitForSelector(pwSelector, opts)
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, &LookupError{By: by, Selector: selector, Err: ErrElementNotFound}
		}
		return nil, &LookupError{By: by, Selector: selector, Err: err}
	}
	if handle == nil {
		return nil, &LookupError{By: by, Selector: selector, Err: ErrElementNotFound}
	}

	return &element{session: s, handle: handle}, nil
}

// Selector translates a selector kind and value into a Playwright selector.
func Selector(by plan.SelectorKind, selector string) (string, error) {
	switch by {
	case plan.ByCSS:
		return "css=" + selector, nil
	case plan.ByXPath:
		return "xpath=" + selector, nil
	case plan.ByID:
		return "css=[id=" + cssString(selector) + "]", nil
	case plan.ByName:
		return "css=[name=" + cssString(selector) + "]", nil
	case plan.ByLinkText:
		return "css=a:text-is(" + cssString(selector) + ")", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSelectorKind, by)
}

// cssString quotes s as a CSS string literal. Quotes and backslashes are
// escaped with a backslash, control characters with a hex escape, and NUL
// becomes U+FFFD.
func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case r < 0x20 || r == 0x7f:
			b.WriteByte('\\')
			b.WriteString(strconv.FormatInt(int64(r), 16))
			b.WriteByte(' ')
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// element adapts a Playwright element handle to Element.
type element struct {
	session *Session
	handle  playwright.ElementHandle
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.handle.Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	// A click may have navigated.
	e.session.CurrentURL = e.session.Page.URL()
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.handle.Fill(""); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.handle.Type(text); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

func (e *element) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := e.handle.Evaluate(submitScript)
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	if submitted, ok := result.(bool); !ok || !submitted {
		return ErrSubmitUnsupported
	}
	e.session.CurrentURL = e.session.Page.URL()
	return nil
}
