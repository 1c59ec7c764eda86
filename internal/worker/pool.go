package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/spendwise/internal/jobs"
	"github.com/cuongbtq/spendwise/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context, g *errgroup.Group) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			w.workerLoop(ctx, i)
			return nil
		})
	}
}

// workerLoop runs jobs until the dispatcher closes jobsChan
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for msg := range w.jobsChan {
		w.logger.Info("Worker received job",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.Job.ID),
			slog.String("job_name", msg.Job.Name),
			slog.Int("attempt", msg.Job.Attempt),
		)

		err := w.processJob(ctx, msg.Job)
		w.settle(ctx, workerName, msg, err)
	}

	w.logger.Debug("Worker goroutine stopping - jobsChan closed",
		slog.String("worker_name", workerName),
	)
}

// decide maps a job result onto what happens to its delivery
func decide(job *jobs.Job, err error, maxAttempts int) domain.Outcome {
	if err == nil {
		return domain.OutcomeAck
	}

	if errors.Is(err, jobs.ErrInvalidJob) || errors.Is(err, domain.ErrUnknownJob) {
		return domain.OutcomeDeadLetter
	}

	if job.Attempt+1 < maxAttempts {
		return domain.OutcomeRetry
	}

	return domain.OutcomeDeadLetter
}

// settle acknowledges, retries or dead-letters the delivery of a finished job
func (w *Worker) settle(ctx context.Context, workerName string, msg *domain.JobMessage, err error) {
	job := msg.Job
	outcome := decide(job, err, w.maxAttempts)

	attrs := []any{
		slog.String("worker_name", workerName),
		slog.String("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
		slog.String("outcome", outcome.String()),
	}

	switch outcome {
	case domain.OutcomeAck:
		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message", append(attrs, slog.Any("error", ackErr))...)
			return
		}
		w.logger.Info("Job completed successfully", attrs...)

	case domain.OutcomeRetry:
		w.logger.Warn("Job failed, scheduling retry", append(attrs,
			slog.Int("max_attempts", w.maxAttempts),
			slog.Any("error", err),
		)...)

		if retryErr := w.republish(ctx, job); retryErr != nil {
			// keep the original so the broker hands it out again
			w.logger.Error("Failed to republish job, requeueing", append(attrs, slog.Any("error", retryErr))...)
			if nackErr := msg.Delivery.Nack(false, true); nackErr != nil {
				w.logger.Error("Failed to NACK message", append(attrs, slog.Any("error", nackErr))...)
			}
			return
		}

		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK retried message", append(attrs, slog.Any("error", ackErr))...)
		}

	case domain.OutcomeDeadLetter:
		w.logger.Error("Job failed permanently", append(attrs,
			slog.Int("max_attempts", w.maxAttempts),
			slog.Any("error", err),
		)...)
		if nackErr := msg.Delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK message", append(attrs, slog.Any("error", nackErr))...)
		}
	}
}

func (w *Worker) republish(ctx context.Context, job *jobs.Job) error {
	body, err := job.NextAttempt().Marshal()
	if err != nil {
		return err
	}
	return w.publisher.PublishWithRetry(context.WithoutCancel(ctx), body, jobs.ContentType)
}
