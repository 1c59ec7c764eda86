package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/spendwise/internal/jobs"
	"github.com/cuongbtq/spendwise/shared/logger"
)

type fakePublisher struct {
	mu          sync.Mutex
	err         error
	bodies      [][]byte
	contentType string
	deadline    bool
}

func (f *fakePublisher) Publish(ctx context.Context, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	f.contentType = contentType
	return nil
}

type fakeLocker struct {
	mu         sync.Mutex
	held       map[string]string
	ttl        time.Duration
	acquireErr error
	released   []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (f *fakeLocker) Acquire(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if _, ok := f.held[key]; ok {
		return false, nil
	}
	f.held[key] = value
	f.ttl = ttl
	return true, nil
}

func (f *fakeLocker) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	f.released = append(f.released, key)
	return nil
}

func TestProducer_TriggerReport(t *testing.T) {
	pub := &fakePublisher{}
	p := New(pub, nil, Config{}, logger.NewNop())
	p.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, p.TriggerReport(context.Background(), 7))

	require.Len(t, pub.bodies, 1)
	assert.Equal(t, jobs.ContentType, pub.contentType)
	assert.True(t, pub.deadline, "publish should be bounded by a timeout")

	job, err := jobs.Decode(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, jobs.GenerateMonthlyReport, job.Name)
	assert.Equal(t, 0, job.Attempt)
	assert.NotEmpty(t, job.ID)

	userID, err := job.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestProducer_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	p := New(pub, nil, Config{}, logger.NewNop())

	err := p.TriggerReport(context.Background(), 7)
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestProducer_Dedupe(t *testing.T) {
	pub := &fakePublisher{}
	locker := newFakeLocker()
	p := New(pub, locker, Config{DedupeTTL: time.Minute}, logger.NewNop())

	require.NoError(t, p.TriggerReport(context.Background(), 7))
	assert.Equal(t, time.Minute, locker.ttl)

	err := p.TriggerReport(context.Background(), 7)
	assert.ErrorIs(t, err, ErrReportInProgress)

	// other users are unaffected
	require.NoError(t, p.TriggerReport(context.Background(), 9))

	assert.Len(t, pub.bodies, 2)
	assert.Contains(t, locker.held, "report_lock:user:7")
	assert.Contains(t, locker.held, "report_lock:user:9")
}

func TestProducer_DedupeReleasedOnPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	locker := newFakeLocker()
	p := New(pub, locker, Config{DedupeTTL: time.Minute}, logger.NewNop())

	err := p.TriggerReport(context.Background(), 7)
	require.ErrorIs(t, err, ErrQueueUnavailable)
	assert.Equal(t, []string{"report_lock:user:7"}, locker.released)
	assert.Empty(t, locker.held)

	pub.err = nil
	require.NoError(t, p.TriggerReport(context.Background(), 7))
}

func TestProducer_LockerUnavailable(t *testing.T) {
	pub := &fakePublisher{}
	locker := newFakeLocker()
	locker.acquireErr = errors.New("dial tcp: connection refused")
	p := New(pub, locker, Config{DedupeTTL: time.Minute}, logger.NewNop())

	err := p.TriggerReport(context.Background(), 7)
	assert.ErrorIs(t, err, ErrQueueUnavailable)
	assert.Empty(t, pub.bodies)
}

func TestProducer_DedupeDisabledIgnoresLocker(t *testing.T) {
	pub := &fakePublisher{}
	locker := newFakeLocker()
	p := New(pub, locker, Config{}, logger.NewNop())

	require.NoError(t, p.TriggerReport(context.Background(), 7))
	require.NoError(t, p.TriggerReport(context.Background(), 7))

	assert.Len(t, pub.bodies, 2)
	assert.Empty(t, locker.held)
}
