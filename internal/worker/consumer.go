package worker

import (
	"context"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/spendwise/internal/jobs"
	"github.com/cuongbtq/spendwise/internal/worker/domain"
)

// ErrDeliveriesClosed is returned when the broker stops delivering, usually
// because the connection dropped
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// startMessageDispatcher listens to RabbitMQ deliveries and dispatches jobs to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}

			job, err := jobs.Decode(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode job",
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				w.reject(delivery, "", err)
				continue
			}

			if _, ok := w.handlers[job.Name]; !ok {
				w.logger.Error("No handler registered for job",
					slog.String("job_id", job.ID),
					slog.String("job_name", job.Name),
				)
				w.reject(delivery, job.ID, domain.ErrUnknownJob)
				continue
			}

			msg := &domain.JobMessage{Job: job, Delivery: delivery}

			select {
			case w.jobsChan <- msg:
				w.logger.Debug("Job dispatched to worker pool",
					slog.String("job_id", job.ID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching job")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("job_id", job.ID),
						slog.Any("error", nackErr),
					)
				}
				return nil
			}
		}
	}
}

// reject sends a delivery that can never succeed to the dead-letter exchange
func (w *Worker) reject(delivery amqp.Delivery, jobID string, reason error) {
	if err := delivery.Nack(false, false); err != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return
	}
	w.logger.Warn("Message dead-lettered",
		slog.String("job_id", jobID),
		slog.Any("reason", reason),
	)
}
