package models

import "fmt"

// SessionSetupError means no browser session could be established after all
// retry attempts. Err is the cause of the last attempt.
type SessionSetupError struct {
	Attempts int
	Err      error
}

func (e *SessionSetupError) Error() string {
	return fmt.Sprintf("browser session setup failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SessionSetupError) Unwrap() error { return e.Err }

// CaptureError means navigation or a screenshot failed on an established
// session.
type CaptureError struct {
	URL string
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// AnalysisError means an image could not be loaded, encoded or queried.
type AnalysisError struct {
	Screenshot string
	Op         string
	Err        error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze %s (%s): %v", e.Screenshot, e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// PersistenceError means the result store could not be read or written.
// The store logs it; callers never see it.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("result store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
