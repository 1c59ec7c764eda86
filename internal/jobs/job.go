// Package jobs defines the payload exchanged between the API service and the
// worker service over the job queue.
package jobs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateMonthlyReport renders a statement for one user
const GenerateMonthlyReport = "generate_monthly_report"

// ContentType is the content type jobs are published with
const ContentType = "application/json"

// ErrInvalidJob is returned when a payload cannot be turned into a runnable job.
// Such jobs are never retried.
var ErrInvalidJob = errors.New("invalid job")

// Job is a named unit of deferred work. It is immutable once published; a
// retry publishes a copy with a bumped Attempt.
type Job struct {
	// ID only correlates log lines across services
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	Attempt    int            `json:"attempt"`
}

// NewReportJob builds a generate_monthly_report job for userID
func NewReportJob(userID int64, now time.Time) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Name:       GenerateMonthlyReport,
		Args:       map[string]any{"user_id": userID},
		EnqueuedAt: now.UTC(),
	}
}

// Marshal encodes the job for publishing
func (j *Job) Marshal() ([]byte, error) {
	body, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return body, nil
}

// Decode parses a published job. Numbers in Args are kept as json.Number.
func Decode(body []byte) (*Job, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var job Job
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	if job.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidJob)
	}

	if job.Attempt < 0 {
		return nil, fmt.Errorf("%w: negative attempt %d", ErrInvalidJob, job.Attempt)
	}

	return &job, nil
}

// UserID returns the user_id argument
func (j *Job) UserID() (int64, error) {
	raw, ok := j.Args["user_id"]
	if !ok {
		return 0, fmt.Errorf("%w: missing user_id", ErrInvalidJob)
	}

	var id int64
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: user_id %q is not an integer", ErrInvalidJob, v)
		}
		id = n
	case int64:
		id = v
	case int:
		id = int64(v)
	default:
		return 0, fmt.Errorf("%w: user_id has type %T", ErrInvalidJob, raw)
	}

	if id <= 0 {
		return 0, fmt.Errorf("%w: user_id must be positive, got %d", ErrInvalidJob, id)
	}

	return id, nil
}

// NextAttempt returns a copy of the job for redelivery
func (j *Job) NextAttempt() *Job {
	next := *j
	next.Args = make(map[string]any, len(j.Args))
	for k, v := range j.Args {
		next.Args[k] = v
	}
	next.Attempt++
	return &next
}
