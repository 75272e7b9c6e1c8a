package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/marketplace/services/api/internal/app"
	"github.com/estatehub/marketplace/services/api/internal/clock"
)

type recordingExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	res   app.AutoExpireResult
	ran   chan struct{}
}

func (e *recordingExpirer) AutoExpireDue(_ context.Context, now time.Time) (app.AutoExpireResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, now)
	e.mu.Unlock()
	if e.ran != nil {
		select {
		case e.ran <- struct{}{}:
		default:
		}
	}
	return e.res, e.err
}

func (e *recordingExpirer) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func TestExpiryWorker_RunOnceUsesClock(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	exp := &recordingExpirer{res: app.AutoExpireResult{Expired: 2, Failures: []app.ExpireFailure{{ListingID: "l-1", Err: errors.New("boom")}}}}
	w := NewExpiryWorker(exp, clock.NewManual(now), time.Second, nil)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Expired)
	require.Len(t, exp.calls, 1)
	assert.Equal(t, now, exp.calls[0])
}

func TestExpiryWorker_RunOncePropagatesQueryError(t *testing.T) {
	exp := &recordingExpirer{err: errors.New("db down")}
	w := NewExpiryWorker(exp, clock.NewSystem(), time.Second, nil)

	_, err := w.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestExpiryWorker_RunTicksUntilCancelled(t *testing.T) {
	exp := &recordingExpirer{ran: make(chan struct{}, 1), err: errors.New("transient")}
	w := NewExpiryWorker(exp, clock.NewSystem(), 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-exp.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("worker did not run (iteration %d)", i)
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop after cancel")
	}
	assert.GreaterOrEqual(t, exp.callCount(), 3)
}

func TestNewExpiryWorker_DefaultsInterval(t *testing.T) {
	w := NewExpiryWorker(&recordingExpirer{}, clock.NewSystem(), 0, nil)
	assert.Equal(t, defaultInterval, w.interval)
}
