package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/browserguard/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.example.com/path?q=1", "example.com"},
		{"http://Example.COM", "example.com"},
		{"https://app.example.com", "app.example.com"},
		{"http://localhost:8080/admin", "localhost:8080"},
		{"https://user:pw@www.example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"example.com/login", "example.com"},
		{"  example.com  ", "example.com"},
		{"https://wwwexample.com", "wwwexample.com"},
		{"https://www.www.example.com", "www.example.com"},
		{"", ""},
		{"https://", ""},
		{"http://[::1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDomain(tt.raw))
		})
	}
}

func TestAllowlist_ExactMatchOnly(t *testing.T) {
	al := NewAllowlist([]string{"example.com", "www.school.edu", ""})

	assert.True(t, al.Allows("example.com"))
	assert.True(t, al.Allows("https://www.example.com/x"))
	assert.True(t, al.Allows("https://school.edu"))
	assert.False(t, al.Allows("https://app.example.com"))
	assert.False(t, al.Allows("https://example.com.evil.test"))
	assert.False(t, al.Allows("https://example.com:8443"))
	assert.False(t, al.Allows(""))

	assert.Equal(t, []string{"example.com", "school.edu"}, al.Baseline())
}

func TestAllowlist_SessionOverlay(t *testing.T) {
	al := NewAllowlist([]string{"example.com"})

	assert.False(t, al.Allows("docs.test"))
	assert.Equal(t, "docs.test", al.AllowForSession("https://www.docs.test/start"))
	assert.True(t, al.Allows("docs.test"))

	// Baseline entries are not duplicated into the overlay.
	al.AllowForSession("example.com")
	assert.Equal(t, []string{"docs.test"}, al.SessionDomains())
	assert.Equal(t, []string{"example.com"}, al.Baseline())

	al.ResetSession()
	assert.False(t, al.Allows("docs.test"))
	assert.True(t, al.Allows("example.com"))
	assert.Empty(t, al.SessionDomains())

	assert.Equal(t, "", al.AllowForSession("https://"))
}

func TestAllowlist_NoImplicitLocalhost(t *testing.T) {
	al := NewAllowlist(nil)
	assert.False(t, al.Allows("http://localhost"))
	assert.False(t, al.Allows("http://127.0.0.1"))
}

type recordingDecider struct {
	answer bool
	err    error
	asked  []string
}

func (d *recordingDecider) AllowDomain(_ context.Context, domain string) (bool, error) {
	d.asked = append(d.asked, domain)
	return d.answer, d.err
}

func TestGate_CheckEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed domain does not ask", func(t *testing.T) {
		gate := NewGate(NewAllowlist([]string{"example.com"}), nil)
		d := &recordingDecider{}
		require.NoError(t, gate.CheckEntry(ctx, "https://www.example.com", d))
		assert.Empty(t, d.asked)
	})

	t.Run("unknown domain accepted for session", func(t *testing.T) {
		al := NewAllowlist([]string{"example.com"})
		gate := NewGate(al, nil)
		d := &recordingDecider{answer: true}

		require.NoError(t, gate.CheckEntry(ctx, "https://shop.test/cart", d))
		assert.Equal(t, []string{"shop.test"}, d.asked)
		assert.True(t, al.Allows("shop.test"))
		assert.Equal(t, []string{"example.com"}, al.Baseline(), "baseline must not change")

		// Second entry is allowed without asking again.
		require.NoError(t, gate.CheckEntry(ctx, "https://shop.test/other", d))
		assert.Len(t, d.asked, 1)
	})

	t.Run("unknown domain refused", func(t *testing.T) {
		al := NewAllowlist(nil)
		gate := NewGate(al, nil)
		d := &recordingDecider{answer: false}

		err := gate.CheckEntry(ctx, "http://localhost:3000", d)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
		assert.Equal(t, []string{"localhost:3000"}, d.asked)
		assert.False(t, al.Allows("localhost:3000"))

		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "localhost:3000", de.Domain)
	})

	t.Run("overlay records the domain that was asked about", func(t *testing.T) {
		al := NewAllowlist([]string{"docs.test"})
		gate := NewGate(al, nil)
		d := &recordingDecider{answer: true}

		require.NoError(t, gate.CheckEntry(ctx, "https://www.www.docs.test/", d))
		assert.Equal(t, []string{"www.docs.test"}, d.asked)
		assert.Equal(t, []string{"www.docs.test"}, al.SessionDomains())
		assert.Equal(t, []string{"docs.test"}, al.Baseline())
	})

	t.Run("decider error aborts", func(t *testing.T) {
		gate := NewGate(NewAllowlist(nil), nil)
		boom := errors.New("stdin closed")
		err := gate.CheckEntry(ctx, "https://a.test", &recordingDecider{answer: true, err: boom})
		assert.ErrorIs(t, err, boom)
		assert.False(t, gate.Allowlist().Allows("a.test"))
	})

	t.Run("no decider refuses", func(t *testing.T) {
		gate := NewGate(NewAllowlist(nil), nil)
		assert.ErrorIs(t, gate.CheckEntry(ctx, "https://a.test", nil), ErrDomainNotAllowed)
	})

	t.Run("func adapter", func(t *testing.T) {
		gate := NewGate(NewAllowlist(nil), nil)
		called := 0
		d := DeciderFunc(func(context.Context, string) (bool, error) {
			called++
			return true, nil
		})
		require.NoError(t, gate.CheckEntry(ctx, "https://b.test", d))
		assert.Equal(t, 1, called)
	})
}

func TestGate_CheckPlan(t *testing.T) {
	gate := NewGate(NewAllowlist([]string{"example.com", "localhost"}), nil)

	t.Run("no navigation", func(t *testing.T) {
		p := plan.Plan{plan.Click{By: plan.ByCSS, Selector: "#go"}, plan.Wait{}}
		assert.NoError(t, gate.CheckPlan(p))
	})

	t.Run("empty plan", func(t *testing.T) {
		assert.NoError(t, gate.CheckPlan(plan.Plan{}))
	})

	t.Run("allowed navigation", func(t *testing.T) {
		p := plan.Plan{
			plan.Navigate{URL: "https://www.example.com/a"},
			plan.Navigate{URL: "http://localhost/b"},
		}
		assert.NoError(t, gate.CheckPlan(p))
	})

	t.Run("disallowed navigation late in plan vetoes whole plan", func(t *testing.T) {
		p := plan.Plan{
			plan.Click{By: plan.ByCSS, Selector: "#go"},
			plan.Navigate{URL: "https://example.com/ok"},
			plan.Fill{By: plan.ByName, Selector: "q", Value: "x"},
			plan.Navigate{URL: "https://evil.test/steal"},
		}
		err := gate.CheckPlan(p)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDisallowedNavigationTarget)

		var dn *DisallowedNavigationError
		require.True(t, errors.As(err, &dn))
		assert.Equal(t, "evil.test", dn.Domain)
		assert.Equal(t, 3, dn.Index)
		assert.Contains(t, err.Error(), "evil.test")
	})

	t.Run("subdomain is not covered", func(t *testing.T) {
		p := plan.Plan{plan.Navigate{URL: "https://api.example.com"}}
		assert.ErrorIs(t, gate.CheckPlan(p), ErrDisallowedNavigationTarget)
	})

	t.Run("only one leading www is stripped", func(t *testing.T) {
		p := plan.Plan{plan.Navigate{URL: "https://www.www.example.com/"}}
		err := gate.CheckPlan(p)
		assert.ErrorIs(t, err, ErrDisallowedNavigationTarget)

		var dn *DisallowedNavigationError
		require.True(t, errors.As(err, &dn))
		assert.Equal(t, "www.example.com", dn.Domain)
	})

	t.Run("session additions count", func(t *testing.T) {
		al := NewAllowlist(nil)
		g := NewGate(al, nil)
		p := plan.Plan{plan.Navigate{URL: "https://docs.test"}}
		require.Error(t, g.CheckPlan(p))
		al.AllowForSession("docs.test")
		assert.NoError(t, g.CheckPlan(p))
	})
}
