// Package plan defines the browser action plan produced by a planner and the
// validator that turns raw planner output into one.
//
// A Plan is an ordered, finite list of actions with no branching and no data
// flowing between steps. Each action is one of five concrete types (Click,
// Fill, Submit, Navigate, Wait); Parse maps untyped JSON records onto them or
// rejects the whole input.
//
// The wire shape accepted by Parse is a JSON array of records:
//
//	[
//	  {"action": "fill", "by": "name", "selector": "email", "value": "a@b.c"},
//	  {"action": "click", "by": "css", "selector": "button.submit"},
//	  {"action": "wait", "value": 1.5}
//	]
package plan

import (
	"encoding/json"
)

// Plan is an ordered sequence of actions. It is treated as immutable once
// validated.
type Plan []Action

// record is the wire form of one action.
type record struct {
	Action   Kind         `json:"action"`
	By       SelectorKind `json:"by,omitempty"`
	Selector string       `json:"selector,omitempty"`
	Value    any          `json:"value,omitempty"`
}

func toRecord(a Action) record {
	switch act := a.(type) {
	case Click:
		return record{Action: KindClick, By: act.By, Selector: act.Selector}
	case Fill:
		return record{Action: KindFill, By: act.By, Selector: act.Selector, Value: act.Value}
	case Submit:
		return record{Action: KindSubmit, By: act.By, Selector: act.Selector}
	case Navigate:
		return record{Action: KindNavigate, Value: act.URL}
	case Wait:
		r := record{Action: KindWait}
		if act.Seconds != nil {
			r.Value = *act.Seconds
		}
		return r
	}
	return record{}
}

// MarshalJSON encodes the plan in the same shape Parse accepts, so a
// validated plan survives a round trip unchanged.
func (p Plan) MarshalJSON() ([]byte, error) {
	records := make([]record, len(p))
	for i, a := range p {
		records[i] = toRecord(a)
	}
	return json.Marshal(records)
}

// Indented returns the plan as indented JSON for display.
func (p Plan) Indented() string {
	records := make([]record, len(p))
	for i, a := range p {
		records[i] = toRecord(a)
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(out)
}
