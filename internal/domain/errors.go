package domain

import "fmt"

// UpstreamError is a non-success response or malformed body from the
// market data provider. Fatal to the run; not retried.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream error: %s", e.Body)
	}
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Body)
}

// PersistenceError is a failure during the snapshot replace or read.
// Fatal to the run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RenderError is a chart construction failure. Soft: the run degrades to
// "no artifact produced" and keeps serving the previous artifact.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PublishError is a failure copying the artifact to the serving path.
// Soft: logged, prior artifact stays in place.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
