// Package policy decides which domains a plan may act on.
//
// An Allowlist is a static baseline read from configuration plus a
// session overlay that only grows through explicit human decisions. The
// baseline is never mutated and nothing is persisted: a new process starts
// from configuration again.
//
// Domains are compared after normalization (host of the URL, lowercase,
// one leading "www." removed) by exact string equality. There is no
// subdomain wildcarding; "app.example.com" is not covered by "example.com".
package policy

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// NormalizeDomain returns the comparable form of a URL or bare host.
// Ports are kept. It returns "" when no host can be found.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	host := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		host = u.Host
	} else if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		// Bare "host/path" as written in configuration.
		host = raw[:i]
	}

	// Drop userinfo so "user@host" compares as "host".
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}

	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return host
}

// Allowlist is the set of domains execution may touch.
type Allowlist struct {
	mu       sync.RWMutex
	baseline map[string]struct{}
	session  map[string]struct{}
}

// NewAllowlist builds an allowlist whose baseline holds the normalized form
// of each entry. Entries that normalize to "" are ignored.
func NewAllowlist(domains []string) *Allowlist {
	baseline := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		if n := NormalizeDomain(d); n != "" {
			baseline[n] = struct{}{}
		}
	}
	return &Allowlist{
		baseline: baseline,
		session:  make(map[string]struct{}),
	}
}

// Allows reports whether domain (a URL or host) is in the baseline or the
// session overlay. domain is normalized exactly once.
func (a *Allowlist) Allows(domain string) bool {
	return a.allowsNormalized(NormalizeDomain(domain))
}

// allowsNormalized looks up a key that has already been normalized.
func (a *Allowlist) allowsNormalized(n string) bool {
	if n == "" {
		return false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.baseline[n]; ok {
		return true
	}
	_, ok := a.session[n]
	return ok
}

// AllowForSession adds domain to the session overlay. It returns the
// normalized domain, or "" when domain has no host.
func (a *Allowlist) AllowForSession(domain string) string {
	return a.addNormalized(NormalizeDomain(domain))
}

// addNormalized records an already normalized key in the session overlay.
func (a *Allowlist) addNormalized(n string) string {
	if n == "" {
		return ""
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.baseline[n]; !ok {
		a.session[n] = struct{}{}
	}
	return n
}

// Baseline returns the configured domains, sorted.
func (a *Allowlist) Baseline() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedKeys(a.baseline)
}

// SessionDomains returns the domains added during this session, sorted.
func (a *Allowlist) SessionDomains() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedKeys(a.session)
}

// ResetSession drops every session addition, leaving the baseline.
func (a *Allowlist) ResetSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = make(map[string]struct{})
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
