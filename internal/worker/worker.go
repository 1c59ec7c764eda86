// Package worker consumes report jobs from the queue and runs them on a
// bounded pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/spendwise/internal/jobs"
	"github.com/cuongbtq/spendwise/internal/report"
	"github.com/cuongbtq/spendwise/internal/worker/domain"
)

// Consumer delivers queued jobs
type Consumer interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// Publisher puts a retried job back on the queue
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// TransactionFetcher loads a user's transaction history
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, userID int64) ([]report.Transaction, error)
}

// StatementRenderer writes a statement and returns its file name
type StatementRenderer interface {
	Render(summary report.StatementSummary, userID int64) (string, error)
}

// Handler runs one job. Returning an error wrapping jobs.ErrInvalidJob marks
// the job as permanently broken.
type Handler func(ctx context.Context, job *jobs.Job) error

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Consumer     Consumer
	Publisher    Publisher
	Transactions TransactionFetcher
	Renderer     StatementRenderer
	Concurrency  int
	Prefetch     int
	MaxAttempts  int
	JobTimeout   time.Duration
}

// Worker represents the background job worker
type Worker struct {
	logger       *slog.Logger
	consumer     Consumer
	publisher    Publisher
	transactions TransactionFetcher
	renderer     StatementRenderer
	concurrency  int
	prefetch     int
	maxAttempts  int
	jobTimeout   time.Duration
	workerID     string
	handlers     map[string]Handler
	jobsChan     chan *domain.JobMessage
}

// NewWorker creates a new worker instance with the report handler registered
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = concurrency
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	w := &Worker{
		logger:       cfg.Logger,
		consumer:     cfg.Consumer,
		publisher:    cfg.Publisher,
		transactions: cfg.Transactions,
		renderer:     cfg.Renderer,
		concurrency:  concurrency,
		prefetch:     prefetch,
		maxAttempts:  maxAttempts,
		jobTimeout:   cfg.JobTimeout,
		workerID:     "worker-" + uuid.NewString()[:8],
		handlers:     make(map[string]Handler),
	}

	w.Register(jobs.GenerateMonthlyReport, w.generateMonthlyReport)

	return w
}

// Register binds a handler to a job name
func (w *Worker) Register(name string, h Handler) {
	w.handlers[name] = h
}

// Start consumes and runs jobs until ctx is canceled. Jobs already handed to
// the pool run to completion before Start returns.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch", w.prefetch),
		slog.Int("max_attempts", w.maxAttempts),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.consumer.Consume(w.workerID, w.prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.jobsChan = make(chan *domain.JobMessage)

	g := new(errgroup.Group)

	g.Go(func() error {
		defer close(w.jobsChan)
		return w.startMessageDispatcher(ctx, deliveries)
	})

	w.spawnWorkerPool(ctx, g)

	err = g.Wait()

	w.logger.Info("Worker stopped",
		slog.String("worker_id", w.workerID),
	)

	return err
}
