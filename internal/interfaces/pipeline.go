// Package interfaces declares the boundaries between pipeline stages so the
// orchestrator can be driven with fakes.
package interfaces

import (
	"context"

	"github.com/bobmcallan/moontest/internal/models"
)

// Capturer produces the screenshots for one query of a test.
type Capturer interface {
	Capture(ctx context.Context, test models.Test, query models.Query) ([]models.Screenshot, error)
}

// Analyzer answers a query from an ordered screenshot sequence.
type Analyzer interface {
	Analyze(ctx context.Context, screenshots []models.Screenshot, query models.Query) (string, error)
}

// ResultStore persists finished test results. Append never fails from the
// caller's point of view.
type ResultStore interface {
	Append(ctx context.Context, result *models.TestResult)
	Load(ctx context.Context) ([]models.Record, error)
}
