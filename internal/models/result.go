package models

import "time"

// RunState is the lifecycle position of a test run.
type RunState string

const (
	StateNotStarted RunState = "not_started"
	StateRunning    RunState = "running"
	StateCompleted  RunState = "completed"
	StateFailed     RunState = "failed"
)

// QueryResult is the outcome of one query.
// Passed is never computed; it is carried so records keep their shape.
type QueryResult struct {
	Query          Query        `json:"query"`
	ActualResponse string       `json:"actual_response"`
	Screenshots    []Screenshot `json:"screenshots"`
	Passed         *bool        `json:"passed"`
	Error          *string      `json:"error"`
}

// TestResult accumulates query results for one run of a Test.
type TestResult struct {
	Test         Test          `json:"test"`
	QueryResults []QueryResult `json:"query_results"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time"`
	Error        *string       `json:"error"`
}

// NewTestResult starts a result for test at start.
func NewTestResult(test Test, start time.Time) *TestResult {
	return &TestResult{
		Test:         test,
		QueryResults: []QueryResult{},
		StartTime:    start,
	}
}

// State derives the run state from the recorded fields.
func (r *TestResult) State() RunState {
	switch {
	case r == nil || r.StartTime.IsZero():
		return StateNotStarted
	case r.EndTime == nil:
		return StateRunning
	case r.Error != nil:
		return StateFailed
	default:
		return StateCompleted
	}
}

// Fail records msg as the run's error.
func (r *TestResult) Fail(msg string) {
	r.Error = &msg
}

// Finish stamps the end time.
func (r *TestResult) Finish(end time.Time) {
	r.EndTime = &end
}

// Record is the persisted form of a TestResult.
type Record struct {
	TestName  string        `json:"test_name"`
	URL       string        `json:"url"`
	StartTime string        `json:"start_time"`
	EndTime   *string       `json:"end_time"`
	Error     *string       `json:"error"`
	Queries   []QueryRecord `json:"queries"`
}

// QueryRecord is the persisted form of a QueryResult.
type QueryRecord struct {
	Question    string   `json:"question"`
	Expected    string   `json:"expected"`
	Actual      string   `json:"actual"`
	Passed      *bool    `json:"passed"`
	Error       *string  `json:"error"`
	Screenshots []string `json:"screenshots"`
}

// TimeLayout is the ISO-8601 layout used in records.
const TimeLayout = time.RFC3339Nano

// ToRecord maps the result to its persisted form.
func (r *TestResult) ToRecord() Record {
	rec := Record{
		TestName:  r.Test.Name,
		URL:       r.Test.URL,
		StartTime: r.StartTime.Format(TimeLayout),
		Error:     r.Error,
		Queries:   make([]QueryRecord, 0, len(r.QueryResults)),
	}
	if r.EndTime != nil {
		end := r.EndTime.Format(TimeLayout)
		rec.EndTime = &end
	}

	for _, qr := range r.QueryResults {
		paths := make([]string, 0, len(qr.Screenshots))
		for _, s := range qr.Screenshots {
			paths = append(paths, s.Path)
		}
		rec.Queries = append(rec.Queries, QueryRecord{
			Question:    qr.Query.Question,
			Expected:    qr.Query.ExpectedResponse,
			Actual:      qr.ActualResponse,
			Passed:      qr.Passed,
			Error:       qr.Error,
			Screenshots: paths,
		})
	}
	return rec
}
