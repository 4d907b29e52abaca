package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents a launched browser with its context and page.
type Session struct {
	// Name identifies the session in logs
	Name string

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Page is the page plans act on
	Page playwright.Page

	// Headless indicates if the browser is running without a window
	Headless bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// LastUsedAt is the timestamp of the last operation on this session
	LastUsedAt time.Time

	// CurrentURL is the URL of the current page
	CurrentURL string

	lookupTimeout float64 // milliseconds
	navTimeout    float64 // milliseconds
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout bounds navigation and other page operations
	Timeout time.Duration

	// LookupTimeout bounds how long FindElement waits for a match
	LookupTimeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for sessions.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultLookupTimeout  = 10 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// FallbackSnapshotChars caps the page-source fallback of BodyText.
	FallbackSnapshotChars = 5000
)
