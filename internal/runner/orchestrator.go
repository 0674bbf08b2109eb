// Package runner executes one test at a time: capture then analysis per
// query, with the result persisted whatever happens.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/interfaces"
	"github.com/bobmcallan/moontest/internal/models"
)

// Orchestrator runs tests through the capture and vision stages.
type Orchestrator struct {
	capturer interfaces.Capturer
	analyzer interfaces.Analyzer
	store    interfaces.ResultStore
	logger   *common.Logger
	now      func() time.Time
}

// New creates an orchestrator.
func New(capturer interfaces.Capturer, analyzer interfaces.Analyzer, store interfaces.ResultStore, logger *common.Logger) *Orchestrator {
	return &Orchestrator{
		capturer: capturer,
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes test and always returns its result. The first failing query
// stops the run and its message becomes result.Error; later queries are not
// attempted. The result is persisted on every exit path, panics included.
func (o *Orchestrator) Run(ctx context.Context, test models.Test) (result *models.TestResult) {
	logger := o.logger.WithCorrelationId(uuid.New().String())
	result = models.NewTestResult(test, o.now())

	logger.Info().
		Str("test", test.Name).
		Str("url", test.URL).
		Int("queries", len(test.Queries)).
		Msg("test started")

	defer func() {
		if r := recover(); r != nil {
			result.Fail(fmt.Sprintf("panic: %v", r))
		}
		result.Finish(o.now())
		o.store.Append(context.WithoutCancel(ctx), result)

		duration := result.EndTime.Sub(result.StartTime).String()
		if result.Error != nil {
			logger.Warn().
				Str("test", test.Name).
				Int("completed", len(result.QueryResults)).
				Str("duration", duration).
				Str("error", *result.Error).
				Msg("test failed")
			return
		}
		logger.Info().
			Str("test", test.Name).
			Int("completed", len(result.QueryResults)).
			Str("duration", duration).
			Msg("test completed")
	}()

	for i, query := range test.Queries {
		qr, err := o.runQuery(ctx, test, query)
		if err != nil {
			logger.Warn().
				Int("query", i+1).
				Str("question", query.Question).
				Err(err).
				Msg("query failed, aborting test")
			result.Fail(err.Error())
			return result
		}
		result.QueryResults = append(result.QueryResults, qr)
	}

	return result
}

func (o *Orchestrator) runQuery(ctx context.Context, test models.Test, query models.Query) (models.QueryResult, error) {
	screenshots, err := o.capturer.Capture(ctx, test, query)
	if err != nil {
		return models.QueryResult{}, err
	}

	answer, err := o.analyzer.Analyze(ctx, screenshots, query)
	if err != nil {
		return models.QueryResult{}, err
	}

	return models.QueryResult{
		Query:          query,
		ActualResponse: answer,
		Screenshots:    screenshots,
	}, nil
}
