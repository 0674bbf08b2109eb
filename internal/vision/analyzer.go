package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/bobmcallan/moontest/internal/cache"
	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/models"
)

// Analyzer implements interfaces.Analyzer on top of a Model.
type Analyzer struct {
	model   Model
	answers *cache.AnswerCache
	logger  *common.Logger
}

// NewAnalyzer creates an analyzer. answers may be nil to always ask the model.
func NewAnalyzer(model Model, answers *cache.AnswerCache, logger *common.Logger) *Analyzer {
	return &Analyzer{
		model:   model,
		answers: answers,
		logger:  logger,
	}
}

// Analyze asks query.Question about every screenshot in order and returns
// the answer for the last one, which shows the settled state. The first
// failing screenshot aborts the call with a *models.AnalysisError. An empty
// list yields "".
func (a *Analyzer) Analyze(ctx context.Context, screenshots []models.Screenshot, query models.Query) (string, error) {
	var last string
	for _, shot := range screenshots {
		answer, err := a.ask(ctx, shot, query.Question)
		if err != nil {
			return "", err
		}
		a.logger.Debug().
			Str("screenshot", shot.Path).
			Int("index", shot.Index).
			Str("answer", answer).
			Msg("vision answer")
		last = answer
	}
	return last, nil
}

func (a *Analyzer) ask(ctx context.Context, shot models.Screenshot, question string) (string, error) {
	data, err := os.ReadFile(shot.Path)
	if err != nil {
		return "", &models.AnalysisError{Screenshot: shot.Path, Op: "load", Err: err}
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", &models.AnalysisError{Screenshot: shot.Path, Op: "load", Err: fmt.Errorf("not a PNG image: %w", err)}
	}

	var key string
	if a.answers != nil {
		key = cache.MakeKey(data, question)
		if answer, ok := a.answers.Get(key); ok {
			return answer, nil
		}
	}

	encoded, err := a.model.Encode(ctx, data)
	if err != nil {
		return "", &models.AnalysisError{Screenshot: shot.Path, Op: "encode", Err: err}
	}
	answer, err := a.model.Query(ctx, encoded, question)
	if err != nil {
		return "", &models.AnalysisError{Screenshot: shot.Path, Op: "query", Err: err}
	}

	if a.answers != nil {
		a.answers.Set(key, answer.Answer)
	}
	return answer.Answer, nil
}
