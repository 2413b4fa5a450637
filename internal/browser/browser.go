package browser

import "context"

// Link is an anchor extracted from the current page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Session is one isolated automated-browser tab. Implementations carry a
// randomized fingerprint fixed at session creation; sessions are never
// reused across platform checks.
type Session interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// Links returns the anchors matching the CSS selector.
	Links(ctx context.Context, selector string) ([]Link, error)
	// BodyText returns the visible text of the page body.
	BodyText(ctx context.Context) (string, error)
	// Click clicks the first element matching the selector. A missing
	// element is an error; callers treat optional targets accordingly.
	Click(ctx context.Context, selector string) error
	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// SimulateHuman performs mouse movement, scrolling and short pauses.
	SimulateHuman(ctx context.Context) error
	// Close tears the session down and releases the tab.
	Close() error
}

// Launcher creates sessions. The social crawler holds a Launcher so tests
// can substitute a fake without a real browser.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
}
