package plan

import (
	"fmt"
	"strconv"
)

// Kind identifies one of the five action variants.
type Kind string

const (
	KindClick    Kind = "click"
	KindFill     Kind = "fill"
	KindSubmit   Kind = "submit"
	KindNavigate Kind = "navigate"
	KindWait     Kind = "wait"
)

// Kinds lists every recognized action kind in prompt order.
var Kinds = []Kind{KindClick, KindFill, KindSubmit, KindNavigate, KindWait}

// SelectorKind names the strategy used to locate an element.
type SelectorKind string

const (
	ByCSS      SelectorKind = "css"
	ByXPath    SelectorKind = "xpath"
	ByID       SelectorKind = "id"
	ByName     SelectorKind = "name"
	ByLinkText SelectorKind = "link_text"
)

// SelectorKinds lists the recognized selector kinds.
var SelectorKinds = []SelectorKind{ByCSS, ByXPath, ByID, ByName, ByLinkText}

// Valid reports whether k is one of the recognized selector kinds.
func (k SelectorKind) Valid() bool {
	switch k {
	case ByCSS, ByXPath, ByID, ByName, ByLinkText:
		return true
	}
	return false
}

// Action is a single step of a plan. The set of implementations is closed:
// Click, Fill, Submit, Navigate and Wait.
type Action interface {
	Kind() Kind
	String() string
	action()
}

// Targeted is implemented by actions that operate on a page element.
type Targeted interface {
	Action
	Target() (SelectorKind, string)
}

// Click clicks the element matched by the selector.
type Click struct {
	By       SelectorKind
	Selector string
}

// Fill clears the matched element and types Value into it.
type Fill struct {
	By       SelectorKind
	Selector string
	Value    string
}

// Submit submits the matched element's form, falling back to a click when
// the element cannot be submitted.
type Submit struct {
	By       SelectorKind
	Selector string
}

// Navigate opens URL in the current page.
type Navigate struct {
	URL string
}

// Wait pauses the plan. A nil Seconds means the configured default.
type Wait struct {
	Seconds *float64
}

func (Click) Kind() Kind    { return KindClick }
func (Fill) Kind() Kind     { return KindFill }
func (Submit) Kind() Kind   { return KindSubmit }
func (Navigate) Kind() Kind { return KindNavigate }
func (Wait) Kind() Kind     { return KindWait }

func (Click) action()    {}
func (Fill) action()     {}
func (Submit) action()   {}
func (Navigate) action() {}
func (Wait) action()     {}

func (a Click) Target() (SelectorKind, string)  { return a.By, a.Selector }
func (a Fill) Target() (SelectorKind, string)   { return a.By, a.Selector }
func (a Submit) Target() (SelectorKind, string) { return a.By, a.Selector }

func (a Click) String() string {
	return fmt.Sprintf("click %s=%q", a.By, a.Selector)
}

func (a Fill) String() string {
	return fmt.Sprintf("fill %s=%q with %q", a.By, a.Selector, a.Value)
}

func (a Submit) String() string {
	return fmt.Sprintf("submit %s=%q", a.By, a.Selector)
}

func (a Navigate) String() string {
	return "navigate to " + a.URL
}

func (a Wait) String() string {
	if a.Seconds == nil {
		return "wait (default)"
	}
	return "wait " + strconv.FormatFloat(*a.Seconds, 'f', -1, 64) + "s"
}

// Seconds returns a pointer to s, for building Wait actions in code.
func Seconds(s float64) *float64 {
	return &s
}
