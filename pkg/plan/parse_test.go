package plan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "no fence", raw: "  [1]  ", want: "[1]"},
		{name: "json fence", raw: "```json\n[1]\n```", want: "[1]"},
		{name: "bare fence", raw: "```\n[\n1\n]\n```", want: "[\n1\n]"},
		{name: "last line dropped regardless of content", raw: "```\n[1]\nnot a fence", want: "[1]"},
		{name: "fence only", raw: "```json", want: ""},
		{name: "fence without body", raw: "```\n```", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.raw))
		})
	}
}

func TestParse_ValidActions(t *testing.T) {
	raw := `[
		{"action":"click","by":"css","selector":"#go"},
		{"action":"fill","by":"name","selector":"email","value":"a@example.com"},
		{"action":"fill","by":"id","selector":"zip","value":12345},
		{"action":"submit","by":"xpath","selector":"//form"},
		{"action":"navigate","value":"https://example.com/next"},
		{"action":"wait","value":"1.5"},
		{"action":"wait","seconds":3},
		{"action":"wait"},
		{"action":"click","by":"link_text","selector":"Sign in","reasoning":"extra fields are fine"}
	]`

	p, err := Parse(raw)
	require.NoError(t, err)

	want := Plan{
		Click{By: ByCSS, Selector: "#go"},
		Fill{By: ByName, Selector: "email", Value: "a@example.com"},
		Fill{By: ByID, Selector: "zip", Value: "12345"},
		Submit{By: ByXPath, Selector: "//form"},
		Navigate{URL: "https://example.com/next"},
		Wait{Seconds: Seconds(1.5)},
		Wait{Seconds: Seconds(3)},
		Wait{},
		Click{By: ByLinkText, Selector: "Sign in"},
	}
	assert.Equal(t, want, p)
}

func TestParse_EmptyPlan(t *testing.T) {
	p, err := Parse("[]")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestParse_FencedMatchesUnfenced(t *testing.T) {
	inner := `[{"action":"click","by":"css","selector":"#go"}]`

	plain, err := Parse(inner)
	require.NoError(t, err)

	fenced, err := Parse("```json\n" + inner + "\n```")
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
}

func TestParse_Malformed(t *testing.T) {
	inputs := map[string]string{
		"prose":             "Sure! Here is your plan.",
		"truncated":         `[{"action":"click"`,
		"object":            `{"action":"click","by":"css","selector":"#go"}`,
		"null":              "null",
		"string":            `"click"`,
		"number":            "42",
		"empty":             "",
		"non-object record": `[{"action":"wait"}, "click #go"]`,
		"nested array":      `[[{"action":"wait"}]]`,
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			p, err := Parse(raw)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrMalformedPlan)

			var mp *MalformedPlanError
			require.True(t, errors.As(err, &mp))
			assert.Equal(t, StripFence(raw), mp.Raw)
			assert.Error(t, mp.Err)
		})
	}
}

func TestParse_UnknownAction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "unrecognized name", raw: `[{"action":"scroll","by":"css","selector":"body"}]`},
		{name: "missing action", raw: `[{"by":"css","selector":"#go"}]`},
		{name: "non-string action", raw: `[{"action":1}]`},
		{name: "case sensitive", raw: `[{"action":"Click","by":"css","selector":"#go"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownAction)
			assert.NotErrorIs(t, err, ErrInvalidActionShape)
		})
	}
}

func TestParse_InvalidShape(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
		index int
	}{
		{name: "click without by", raw: `[{"action":"click","selector":"#go"}]`, field: "by"},
		{name: "click without selector", raw: `[{"action":"click","by":"css"}]`, field: "selector"},
		{name: "submit with blank selector", raw: `[{"action":"submit","by":"css","selector":"  "}]`, field: "selector"},
		{name: "fill without value", raw: `[{"action":"fill","by":"css","selector":"#q"}]`, field: "value"},
		{name: "fill with object value", raw: `[{"action":"fill","by":"css","selector":"#q","value":{}}]`, field: "value"},
		{name: "navigate without value", raw: `[{"action":"navigate"}]`, field: "value"},
		{name: "navigate relative url", raw: `[{"action":"navigate","value":"/login"}]`, field: "value"},
		{name: "navigate javascript url", raw: `[{"action":"navigate","value":"javascript:alert(1)"}]`, field: "value"},
		{name: "wait negative", raw: `[{"action":"wait","value":-1}]`, field: "value"},
		{name: "wait too long", raw: `[{"action":"wait","value":1e10}]`, field: "value"},
		{name: "wait not numeric", raw: `[{"action":"wait","value":"soon"}]`, field: "value"},
		{name: "second record", raw: `[{"action":"wait"},{"action":"click","by":"css"}]`, field: "selector", index: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidActionShape)

			var ae *ActionError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.field, ae.Field)
			assert.Equal(t, tt.index, ae.Index)
		})
	}
}

func TestParse_UnsupportedSelectorKind(t *testing.T) {
	_, err := Parse(`[{"action":"click","by":"tag_name","selector":"button"}]`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidActionShape)
	assert.ErrorIs(t, err, ErrUnsupportedSelectorKind)
	assert.Contains(t, err.Error(), "tag_name")
}

func TestParse_Idempotent(t *testing.T) {
	raw := "```\n" + `[
		{"action":"fill","by":"name","selector":"q","value":""},
		{"action":"submit","by":"css","selector":"form"},
		{"action":"navigate","value":"https://example.com"},
		{"action":"wait","value":0.25},
		{"action":"wait"}
	]` + "\n```"

	first, err := Parse(raw)
	require.NoError(t, err)
	require.NoError(t, Validate(first))

	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := Parse(string(encoded))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr error
	}{
		{name: "empty", plan: Plan{}},
		{name: "valid", plan: Plan{Click{By: ByID, Selector: "go"}, Wait{Seconds: Seconds(0)}}},
		{name: "bad selector kind", plan: Plan{Click{By: "tag", Selector: "a"}}, wantErr: ErrUnsupportedSelectorKind},
		{name: "empty selector", plan: Plan{Fill{By: ByCSS, Value: "x"}}, wantErr: ErrInvalidActionShape},
		{name: "bad url", plan: Plan{Navigate{URL: "example.com"}}, wantErr: ErrInvalidActionShape},
		{name: "negative wait", plan: Plan{Wait{Seconds: Seconds(-2)}}, wantErr: ErrInvalidActionShape},
		{name: "wait overflowing a duration", plan: Plan{Wait{Seconds: Seconds(MaxWaitSeconds)}}, wantErr: ErrInvalidActionShape},
		{name: "nil action", plan: Plan{nil}, wantErr: ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.plan)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckURL(t *testing.T) {
	assert.NoError(t, CheckURL("https://example.com"))
	assert.NoError(t, CheckURL("http://localhost:8080/path?q=1"))
	assert.Error(t, CheckURL("example.com"))
	assert.Error(t, CheckURL("ftp://example.com"))
	assert.Error(t, CheckURL("https://"))
	assert.Error(t, CheckURL("http://[::1"))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, `click css="#go"`, Click{By: ByCSS, Selector: "#go"}.String())
	assert.Equal(t, `fill name="q" with "hello"`, Fill{By: ByName, Selector: "q", Value: "hello"}.String())
	assert.Equal(t, "navigate to https://example.com", Navigate{URL: "https://example.com"}.String())
	assert.Equal(t, "wait 1.5s", Wait{Seconds: Seconds(1.5)}.String())
	assert.Equal(t, "wait (default)", Wait{}.String())
}

func TestPlan_Indented(t *testing.T) {
	p := Plan{Click{By: ByCSS, Selector: "#go"}}
	out := p.Indented()
	assert.Contains(t, out, `"action": "click"`)
	assert.Contains(t, out, `"selector": "#go"`)
	assert.NotContains(t, out, `"value"`)
}
