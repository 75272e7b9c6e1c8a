package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/estatehub/marketplace/services/api/internal/app"
	"github.com/estatehub/marketplace/services/api/internal/clock"
)

const defaultInterval = time.Minute

// Expirer is the part of the status service the worker drives.
type Expirer interface {
	AutoExpireDue(ctx context.Context, now time.Time) (app.AutoExpireResult, error)
}

// ExpiryWorker runs the auto-expire batch once at start and then on every tick.
type ExpiryWorker struct {
	expirer  Expirer
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
}

func NewExpiryWorker(expirer Expirer, clk clock.Clock, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryWorker{
		expirer:  expirer,
		clock:    clk,
		interval: interval,
		logger:   logger.With(zap.String("component", "expiry_worker")),
	}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (w *ExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("auto-expire run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ExpiryWorker) RunOnce(ctx context.Context) (app.AutoExpireResult, error) {
	res, err := w.expirer.AutoExpireDue(ctx, w.clock.Now())
	if err != nil {
		return res, err
	}
	if len(res.Failures) > 0 {
		w.logger.Warn("auto-expire run had failures",
			zap.Int("expired", res.Expired),
			zap.Int("failed", len(res.Failures)),
		)
	}
	return res, nil
}
