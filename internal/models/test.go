package models

import "time"

// DefaultTolerance is the tolerance given to queries that do not set one.
const DefaultTolerance = 0.8

// Viewport is a page size in CSS pixels.
type Viewport struct {
	Width  int `json:"width" toml:"width"`
	Height int `json:"height" toml:"height"`
}

// Query is one natural-language assertion about a page.
// A non-nil ScreenshotIntervalMs selects dynamic capture.
type Query struct {
	Question             string  `json:"question" toml:"question"`
	ExpectedResponse     string  `json:"expected_response" toml:"expected"`
	ScreenshotIntervalMs *int    `json:"screenshot_interval_ms,omitempty" toml:"screenshot_interval_ms"`
	Tolerance            float64 `json:"tolerance" toml:"tolerance"`
}

// NewQuery returns a single-shot query with the default tolerance.
func NewQuery(question, expected string) Query {
	return Query{
		Question:         question,
		ExpectedResponse: expected,
		Tolerance:        DefaultTolerance,
	}
}

// NewDynamicQuery returns a query captured as a burst spaced intervalMs apart.
func NewDynamicQuery(question, expected string, intervalMs int) Query {
	q := NewQuery(question, expected)
	q.ScreenshotIntervalMs = &intervalMs
	return q
}

// IsDynamic reports whether the query uses burst capture.
func (q Query) IsDynamic() bool {
	return q.ScreenshotIntervalMs != nil
}

// Interval returns the burst spacing, zero for single-shot queries.
func (q Query) Interval() time.Duration {
	if q.ScreenshotIntervalMs == nil {
		return 0
	}
	return time.Duration(*q.ScreenshotIntervalMs) * time.Millisecond
}

// Test is a URL plus the ordered queries asked about it.
type Test struct {
	Name     string    `json:"name" toml:"name"`
	URL      string    `json:"url" toml:"url"`
	Queries  []Query   `json:"queries" toml:"query"`
	Viewport *Viewport `json:"viewport,omitempty" toml:"viewport"`
}

// Screenshot is a captured image on disk. Index is its position in the
// capture sequence.
type Screenshot struct {
	Path       string    `json:"path"`
	Index      int       `json:"index"`
	CapturedAt time.Time `json:"captured_at"`
}
