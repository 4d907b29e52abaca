package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const codeFence = "```"

// StripFence removes an enclosing Markdown code fence. When the trimmed text
// starts with a fence, its first and last lines are dropped whatever they
// contain; otherwise the trimmed text is returned unchanged.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, codeFence) {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// Parse turns raw planner output into a Plan. It never touches a browser.
//
// Extra fields on a record are ignored. Errors match ErrMalformedPlan,
// ErrUnknownAction or ErrInvalidActionShape via errors.Is.
func Parse(raw string) (Plan, error) {
	text := StripFence(raw)

	var probe any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, &MalformedPlanError{Raw: text, Err: err}
	}

	root := gjson.Parse(text)
	if !root.IsArray() {
		return nil, &MalformedPlanError{Raw: text, Err: fmt.Errorf("top-level value is %s, not an array", describe(root))}
	}

	records := root.Array()
	p := make(Plan, 0, len(records))
	for i, rec := range records {
		if !rec.IsObject() {
			return nil, &MalformedPlanError{Raw: text, Err: fmt.Errorf("element %d is %s, not an object", i, describe(rec))}
		}
		a, err := decodeRecord(i, rec)
		if err != nil {
			return nil, err
		}
		p = append(p, a)
	}
	return p, nil
}

func decodeRecord(i int, rec gjson.Result) (Action, error) {
	name := rec.Get("action")
	if name.Type != gjson.String {
		return nil, unknownAction(i, name.Raw)
	}

	kind := Kind(name.Str)
	switch kind {
	case KindClick:
		by, sel, err := decodeTarget(i, kind, rec)
		if err != nil {
			return nil, err
		}
		return Click{By: by, Selector: sel}, nil

	case KindSubmit:
		by, sel, err := decodeTarget(i, kind, rec)
		if err != nil {
			return nil, err
		}
		return Submit{By: by, Selector: sel}, nil

	case KindFill:
		by, sel, err := decodeTarget(i, kind, rec)
		if err != nil {
			return nil, err
		}
		value := rec.Get("value")
		switch value.Type {
		case gjson.String:
			return Fill{By: by, Selector: sel, Value: value.Str}, nil
		case gjson.Number:
			return Fill{By: by, Selector: sel, Value: value.Raw}, nil
		case gjson.Null:
			return nil, invalidShape(i, kind, "value", "required")
		default:
			return nil, invalidShape(i, kind, "value", "must be a string")
		}

	case KindNavigate:
		value := rec.Get("value")
		if value.Type != gjson.String || strings.TrimSpace(value.Str) == "" {
			return nil, invalidShape(i, kind, "value", "a URL is required")
		}
		target := strings.TrimSpace(value.Str)
		if err := CheckURL(target); err != nil {
			return nil, invalidShape(i, kind, "value", err.Error())
		}
		return Navigate{URL: target}, nil

	case KindWait:
		value := rec.Get("value")
		if !value.Exists() {
			value = rec.Get("seconds")
		}
		secs, err := decodeSeconds(value)
		if err != nil {
			return nil, invalidShape(i, kind, "value", err.Error())
		}
		return Wait{Seconds: secs}, nil
	}

	return nil, unknownAction(i, name.Str)
}

func decodeTarget(i int, kind Kind, rec gjson.Result) (SelectorKind, string, error) {
	by := rec.Get("by")
	if by.Type != gjson.String || by.Str == "" {
		return "", "", invalidShape(i, kind, "by", "selector kind is required")
	}
	sk := SelectorKind(by.Str)
	if !sk.Valid() {
		return "", "", &ActionError{
			Index:  i,
			Action: string(kind),
			Field:  "by",
			Reason: fmt.Sprintf("%q is not one of %v", by.Str, SelectorKinds),
			Err:    ErrInvalidActionShape,
			Cause:  ErrUnsupportedSelectorKind,
		}
	}

	sel := rec.Get("selector")
	if sel.Type != gjson.String || strings.TrimSpace(sel.Str) == "" {
		return "", "", invalidShape(i, kind, "selector", "selector is required")
	}
	return sk, sel.Str, nil
}

// decodeSeconds accepts a number or a numeric string. Absent, null and empty
// values mean "use the default".
func decodeSeconds(v gjson.Result) (*float64, error) {
	var secs float64
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		secs = v.Num
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", v.Str)
		}
		secs = f
	default:
		return nil, fmt.Errorf("seconds must be a number")
	}
	if err := checkSeconds(secs); err != nil {
		return nil, err
	}
	return &secs, nil
}

// MaxWaitSeconds bounds a wait so that it still fits in a time.Duration.
// Waits must be strictly below it.
const MaxWaitSeconds = float64(math.MaxInt64 / 1_000_000_000)

func checkSeconds(secs float64) error {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return fmt.Errorf("seconds must be a non-negative number, got %v", secs)
	}
	if secs >= MaxWaitSeconds {
		return fmt.Errorf("seconds must be below %.0f, got %v", MaxWaitSeconds, secs)
	}
	return nil
}

// CheckURL reports whether raw is an absolute http(s) URL with a host.
func CheckURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("URL %q must be absolute", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q: scheme %q is not allowed", raw, u.Scheme)
	}
	return nil
}

func describe(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "an array"
	case r.IsObject():
		return "an object"
	case r.Type == gjson.Null:
		return "null"
	case r.Type == gjson.String:
		return "a string"
	case r.Type == gjson.Number:
		return "a number"
	default:
		return "a boolean"
	}
}

// Validate re-checks a typed plan, for plans built in code rather than
// parsed. A plan produced by Parse always validates.
func Validate(p Plan) error {
	for i, a := range p {
		switch act := a.(type) {
		case Click:
			if err := checkTarget(i, act); err != nil {
				return err
			}
		case Fill:
			if err := checkTarget(i, act); err != nil {
				return err
			}
		case Submit:
			if err := checkTarget(i, act); err != nil {
				return err
			}
		case Navigate:
			if err := CheckURL(act.URL); err != nil {
				return invalidShape(i, KindNavigate, "value", err.Error())
			}
		case Wait:
			if act.Seconds != nil {
				if err := checkSeconds(*act.Seconds); err != nil {
					return invalidShape(i, KindWait, "value", err.Error())
				}
			}
		default:
			return &ActionError{Index: i, Err: ErrUnknownAction, Reason: fmt.Sprintf("unsupported action type %T", a)}
		}
	}
	return nil
}

func checkTarget(i int, a Targeted) error {
	by, sel := a.Target()
	if !by.Valid() {
		return &ActionError{Index: i, Action: string(a.Kind()), Field: "by",
			Reason: fmt.Sprintf("%q is not one of %v", by, SelectorKinds),
			Err:    ErrInvalidActionShape, Cause: ErrUnsupportedSelectorKind}
	}
	if strings.TrimSpace(sel) == "" {
		return invalidShape(i, a.Kind(), "selector", "selector is required")
	}
	return nil
}
