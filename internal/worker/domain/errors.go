package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownJob is returned when no handler is registered for a job name
var ErrUnknownJob = errors.New("unknown job")

// JobExecutionError wraps a failure raised while a handler ran. Such jobs are
// retried until the attempt budget is spent.
type JobExecutionError struct {
	Job     string
	Attempt int
	Err     error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job %s failed on attempt %d: %v", e.Job, e.Attempt, e.Err)
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}

// NewJobExecutionError creates a new JobExecutionError
func NewJobExecutionError(job string, attempt int, err error) error {
	return &JobExecutionError{Job: job, Attempt: attempt, Err: err}
}
