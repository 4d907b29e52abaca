package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/browserguard/pkg/logging"
	"github.com/entrhq/browserguard/pkg/plan"
)

// Sentinel errors returned by the gate.
var (
	// ErrDomainNotAllowed is returned when the page about to be opened is not
	// allowed and the human declined to allow it.
	ErrDomainNotAllowed = errors.New("domain not allowed")

	// ErrDisallowedNavigationTarget is returned when a plan navigates to a
	// domain outside the allowlist.
	ErrDisallowedNavigationTarget = errors.New("disallowed navigation target")
)

// DomainError names the domain the entry gate refused.
type DomainError struct {
	Domain string
	Err    error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Domain)
}

func (e *DomainError) Unwrap() error { return e.Err }

// DisallowedNavigationError names the first Navigate step whose target is
// outside the allowlist.
type DisallowedNavigationError struct {
	Domain string
	URL    string
	Index  int // zero-based step index
}

func (e *DisallowedNavigationError) Error() string {
	return fmt.Sprintf("disallowed navigation target: step %d navigates to %q (domain %q is not allowed)",
		e.Index+1, e.URL, e.Domain)
}

func (e *DisallowedNavigationError) Is(target error) bool {
	return target == ErrDisallowedNavigationTarget
}

// Decider is asked once when the entry page's domain is not allowed. It
// returns true to allow the domain for the rest of this session.
type Decider interface {
	AllowDomain(ctx context.Context, domain string) (bool, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, domain string) (bool, error)

// AllowDomain calls f.
func (f DeciderFunc) AllowDomain(ctx context.Context, domain string) (bool, error) {
	return f(ctx, domain)
}

// Gate applies the allowlist at session entry and to whole plans.
type Gate struct {
	allowlist *Allowlist
	logger    *logging.Logger
}

// NewGate creates a gate over allowlist. A nil logger discards output.
func NewGate(allowlist *Allowlist, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{allowlist: allowlist, logger: logger}
}

// Allowlist returns the allowlist the gate consults.
func (g *Gate) Allowlist() *Allowlist {
	return g.allowlist
}

// CheckEntry decides whether the page at rawURL may be opened. An allowed
// domain passes silently. Otherwise decider is consulted exactly once; a
// yes adds the domain to the session overlay, anything else refuses.
// There is no implicit allowance for any host, localhost included.
func (g *Gate) CheckEntry(ctx context.Context, rawURL string, decider Decider) error {
	domain := NormalizeDomain(rawURL)
	if domain == "" {
		return &DomainError{Domain: rawURL, Err: ErrDomainNotAllowed}
	}
	if g.allowlist.allowsNormalized(domain) {
		g.logger.Debugf("entry domain %s is allowed", domain)
		return nil
	}

	g.logger.Warnf("entry domain %s is not in the allowlist", domain)
	if decider == nil {
		return &DomainError{Domain: domain, Err: ErrDomainNotAllowed}
	}

	allow, err := decider.AllowDomain(ctx, domain)
	if err != nil {
		return fmt.Errorf("asking whether to allow %s: %w", domain, err)
	}
	if !allow {
		g.logger.Infof("entry domain %s refused", domain)
		return &DomainError{Domain: domain, Err: ErrDomainNotAllowed}
	}

	g.allowlist.addNormalized(domain)
	g.logger.Infof("entry domain %s allowed for this session", domain)
	return nil
}

// CheckPlan vetoes the whole plan if any Navigate step targets a domain
// outside the allowlist, wherever that step sits in the plan.
func (g *Gate) CheckPlan(p plan.Plan) error {
	for i, a := range p {
		nav, ok := a.(plan.Navigate)
		if !ok {
			continue
		}
		domain := NormalizeDomain(nav.URL)
		if g.allowlist.allowsNormalized(domain) {
			continue
		}
		g.logger.Warnf("plan rejected: step %d navigates to disallowed domain %q", i+1, domain)
		return &DisallowedNavigationError{Domain: domain, URL: nav.URL, Index: i}
	}
	return nil
}
