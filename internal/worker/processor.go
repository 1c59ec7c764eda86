package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/spendwise/internal/jobs"
	"github.com/cuongbtq/spendwise/internal/report"
	"github.com/cuongbtq/spendwise/internal/worker/domain"
)

// processJob runs the registered handler under the job timeout. A job that
// started is allowed to finish even when the worker is shutting down.
func (w *Worker) processJob(ctx context.Context, job *jobs.Job) error {
	handler, ok := w.handlers[job.Name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownJob, job.Name)
	}

	jobCtx := context.WithoutCancel(ctx)
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := handler(jobCtx, job)

	w.logger.Debug("Job handler returned",
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", err == nil),
	)

	return err
}

// generateMonthlyReport fetches, summarizes and renders one user's statement,
// strictly in that order
func (w *Worker) generateMonthlyReport(ctx context.Context, job *jobs.Job) error {
	userID, err := job.UserID()
	if err != nil {
		return err
	}

	txs, err := w.transactions.FetchTransactions(ctx, userID)
	if err != nil {
		return domain.NewJobExecutionError(job.Name, job.Attempt, err)
	}

	summary := report.Summarize(txs)

	if err := ctx.Err(); err != nil {
		return domain.NewJobExecutionError(job.Name, job.Attempt, err)
	}

	name, err := w.renderer.Render(summary, userID)
	if err != nil {
		return domain.NewJobExecutionError(job.Name, job.Attempt, err)
	}

	w.logger.Info("Monthly report generated",
		slog.String("job_id", job.ID),
		slog.Int64("user_id", userID),
		slog.String("file", name),
		slog.Int("transactions", summary.TransactionCount),
	)

	return nil
}
