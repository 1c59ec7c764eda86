// Package producer turns a report request into a queued job.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cuongbtq/spendwise/internal/jobs"
)

const (
	lockKeyPrefix         = "report_lock:user:"
	defaultPublishTimeout = 5 * time.Second
)

var (
	// ErrQueueUnavailable is returned when the job could not be handed to the queue
	ErrQueueUnavailable = errors.New("job queue unavailable")
	// ErrReportInProgress is returned while an earlier request of the same user is still marked
	ErrReportInProgress = errors.New("report already requested")
)

// Publisher hands a job body to the queue
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Locker holds short-lived exclusion markers
type Locker interface {
	Acquire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Config controls publishing and request deduplication
type Config struct {
	PublishTimeout time.Duration
	// DedupeTTL is how long a request blocks further requests of the same
	// user. Zero disables the check.
	DedupeTTL time.Duration
}

// Producer enqueues report jobs
type Producer struct {
	publisher Publisher
	locker    Locker
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Producer. locker may be nil when DedupeTTL is zero.
func New(publisher Publisher, locker Locker, config Config, logger *slog.Logger) *Producer {
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaultPublishTimeout
	}
	return &Producer{
		publisher: publisher,
		locker:    locker,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

func lockKey(userID int64) string {
	return lockKeyPrefix + strconv.FormatInt(userID, 10)
}

// TriggerReport enqueues a generate_monthly_report job for userID and returns
// without waiting for it to run.
func (p *Producer) TriggerReport(ctx context.Context, userID int64) error {
	job := jobs.NewReportJob(userID, p.now())

	body, err := job.Marshal()
	if err != nil {
		return err
	}

	locked := false
	if p.config.DedupeTTL > 0 && p.locker != nil {
		ok, err := p.locker.Acquire(ctx, lockKey(userID), job.ID, p.config.DedupeTTL)
		if err != nil {
			p.logger.Error("Failed to acquire report lock",
				slog.Int64("user_id", userID),
				slog.Any("error", err),
			)
			return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		if !ok {
			p.logger.Info("Report already requested",
				slog.Int64("user_id", userID),
			)
			return ErrReportInProgress
		}
		locked = true
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.publisher.Publish(pubCtx, body, jobs.ContentType); err != nil {
		p.logger.Error("Failed to enqueue report job",
			slog.String("job_id", job.ID),
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		if locked {
			// the request never reached the queue, so it must not block a retry
			if relErr := p.locker.Release(context.WithoutCancel(ctx), lockKey(userID)); relErr != nil {
				p.logger.Warn("Failed to release report lock",
					slog.Int64("user_id", userID),
					slog.Any("error", relErr),
				)
			}
		}
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	p.logger.Info("Report job enqueued",
		slog.String("job_id", job.ID),
		slog.Int64("user_id", userID),
	)

	return nil
}
