// Package extract defines the collaborators that turn a search page into raw
// listing records, plus offline implementations that read listings from
// fixture files or a JSON listing API.
package extract

import (
	"context"

	"github.com/sells-group/navigator/internal/model"
)

// Request is what an extractor is asked for.
type Request struct {
	Query      string
	MaxResults int
	MaxPrice   *int
}

// Extractor pulls raw listings for one site.
type Extractor interface {
	Extract(ctx context.Context, sess Session, req Request) ([]model.ListingRecord, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, sess Session, req Request) ([]model.ListingRecord, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, sess Session, req Request) ([]model.ListingRecord, error) {
	return f(ctx, sess, req)
}

// Session is the page an extractor works against.
type Session interface {
	// Reload refreshes the current page before another attempt.
	Reload(ctx context.Context) error
	// URL is the page's current address, or "" if unknown.
	URL() string
	Close() error
}

// Capturer is implemented by sessions that can persist what they show.
type Capturer interface {
	Screenshot(ctx context.Context, path string) error
	SaveHTML(ctx context.Context, path string) error
}

// SessionProvider opens a session for one run. runDir is where the session
// may write its own artifacts.
type SessionProvider interface {
	Open(ctx context.Context, runDir string) (Session, error)
}

// NopSession has nothing to reload or capture.
type NopSession struct{}

// Reload does nothing.
func (NopSession) Reload(context.Context) error { return nil }

// URL returns "".
func (NopSession) URL() string { return "" }

// Close does nothing.
func (NopSession) Close() error { return nil }

// NopProvider opens NopSessions.
type NopProvider struct{}

// Open returns a NopSession.
func (NopProvider) Open(context.Context, string) (Session, error) { return NopSession{}, nil }
