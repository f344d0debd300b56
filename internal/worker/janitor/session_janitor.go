package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/permit-map/internal/worker"
)

// Sweeper закрывает сессии, простаивающие дольше ttl
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// SessionJanitor периодически закрывает простаивающие сессии карты
type SessionJanitor struct {
	*worker.BaseWorker
	sweeper  Sweeper
	ttl      time.Duration
	interval time.Duration
}

// NewSessionJanitor создает новый SessionJanitor
func NewSessionJanitor(sweeper Sweeper, ttl, interval time.Duration, logger *zap.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionJanitor{
		BaseWorker: worker.NewBaseWorker("session-janitor", "", logger),
		sweeper:    sweeper,
		ttl:        ttl,
		interval:   interval,
	}
}

// Start запускает воркер
func (j *SessionJanitor) Start(ctx context.Context) error {
	j.Logger().Info("Starting SessionJanitor",
		zap.Duration("ttl", j.ttl),
		zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.StopChan():
			j.Logger().Info("Worker stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.sweeper.Sweep(j.ttl); n > 0 {
				j.Logger().Debug("Idle sessions swept", zap.Int("closed", n))
			}
		}
	}
}
