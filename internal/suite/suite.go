// Package suite loads test definitions from TOML files.
//
//	[[test]]
//	name = "Simple Button Test"
//	url  = "{{base_url}}/static/passing/simple_button/"
//
//	[[test.query]]
//	question = "Is there a blue button labeled 'Submit'?"
//	expected = "Yes"
//	screenshot_interval_ms = 500 # optional, selects burst capture
package suite

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/moontest/internal/models"
)

// BaseURLVar is replaced in test URLs by the fixture server address.
const BaseURLVar = "{{base_url}}"

type file struct {
	Tests []fileTest `toml:"test"`
}

type fileTest struct {
	Name     string           `toml:"name"`
	URL      string           `toml:"url"`
	Queries  []fileQuery      `toml:"query"`
	Viewport *models.Viewport `toml:"viewport"`
}

// fileQuery keeps Tolerance as a pointer so an explicit 0 is told apart
// from an absent key.
type fileQuery struct {
	Question             string   `toml:"question"`
	Expected             string   `toml:"expected"`
	ScreenshotIntervalMs *int     `toml:"screenshot_interval_ms"`
	Tolerance            *float64 `toml:"tolerance"`
}

func (ft fileTest) test() models.Test {
	t := models.Test{Name: ft.Name, URL: ft.URL, Viewport: ft.Viewport}
	for _, fq := range ft.Queries {
		q := models.Query{
			Question:             fq.Question,
			ExpectedResponse:     fq.Expected,
			ScreenshotIntervalMs: fq.ScreenshotIntervalMs,
			Tolerance:            models.DefaultTolerance,
		}
		if fq.Tolerance != nil {
			q.Tolerance = *fq.Tolerance
		}
		t.Queries = append(t.Queries, q)
	}
	return t
}

// Load reads every file in order and returns their tests concatenated.
func Load(paths ...string) ([]models.Test, error) {
	var tests []models.Test
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read suite %s: %w", path, err)
		}
		parsed, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", path, err)
		}
		tests = append(tests, parsed...)
	}
	return tests, nil
}

// Parse decodes and validates one suite document. Queries without a
// tolerance get models.DefaultTolerance.
func Parse(data []byte) ([]models.Test, error) {
	var f file
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	tests := make([]models.Test, 0, len(f.Tests))
	for i, ft := range f.Tests {
		t := ft.test()
		if issues := Validate(t); len(issues) > 0 {
			return nil, fmt.Errorf("test %d (%q): %s", i+1, t.Name, strings.Join(issues, "; "))
		}
		tests = append(tests, t)
	}
	return tests, nil
}

// Validate returns the problems with t, if any.
func Validate(t models.Test) []string {
	var issues []string
	if strings.TrimSpace(t.Name) == "" {
		issues = append(issues, "name is required")
	}
	if strings.TrimSpace(t.URL) == "" {
		issues = append(issues, "url is required")
	}
	if t.Viewport != nil && (t.Viewport.Width <= 0 || t.Viewport.Height <= 0) {
		issues = append(issues, "viewport width and height must be positive")
	}
	for i, q := range t.Queries {
		if strings.TrimSpace(q.Question) == "" {
			issues = append(issues, fmt.Sprintf("query %d: question is required", i+1))
		}
		if q.ScreenshotIntervalMs != nil && *q.ScreenshotIntervalMs <= 0 {
			issues = append(issues, fmt.Sprintf("query %d: screenshot_interval_ms must be positive", i+1))
		}
		if q.Tolerance < 0 || q.Tolerance > 1 {
			issues = append(issues, fmt.Sprintf("query %d: tolerance must be between 0 and 1", i+1))
		}
	}
	return issues
}

// WithBaseURL returns copies of tests with BaseURLVar in each URL replaced
// by baseURL.
func WithBaseURL(tests []models.Test, baseURL string) []models.Test {
	baseURL = strings.TrimRight(baseURL, "/")
	out := make([]models.Test, len(tests))
	for i, t := range tests {
		t.URL = strings.ReplaceAll(t.URL, BaseURLVar, baseURL)
		out[i] = t
	}
	return out
}

// NeedsBaseURL reports whether any test URL refers to BaseURLVar.
func NeedsBaseURL(tests []models.Test) bool {
	for _, t := range tests {
		if strings.Contains(t.URL, BaseURLVar) {
			return true
		}
	}
	return false
}
