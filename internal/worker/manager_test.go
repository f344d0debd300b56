package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tickingWorker struct {
	*BaseWorker
	ticks atomic.Int32
}

func (w *tickingWorker) Start(ctx context.Context) error {
	for w.Pause(ctx, 5*time.Millisecond) {
		w.ticks.Add(1)
	}
	return nil
}

type stuckWorker struct {
	*BaseWorker
	release chan struct{}
}

func (w *stuckWorker) Start(context.Context) error {
	<-w.release
	return nil
}

func TestWorkerManager_NoWorkers(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), 0)
	assert.Error(t, m.Start(context.Background()))
}

func TestWorkerManager_StartStop(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), time.Second)
	w := &tickingWorker{BaseWorker: NewBaseWorker("ticker", "", zap.NewNop())}
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return w.ticks.Load() > 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.True(t, w.IsStopped())
	require.NoError(t, w.Stop())
}

func TestWorkerManager_StopTimesOut(t *testing.T) {
	m := NewWorkerManager(zap.NewNop(), 20*time.Millisecond)
	w := &stuckWorker{BaseWorker: NewBaseWorker("stuck", "", zap.NewNop()), release: make(chan struct{})}
	defer close(w.release)
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Stop())
}

func TestBaseWorker_PauseCancelled(t *testing.T) {
	w := NewBaseWorker("pause", "", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, w.Pause(ctx, time.Hour))

	assert.True(t, w.Pause(context.Background(), time.Millisecond))
	require.NoError(t, w.Stop())
	assert.False(t, w.Pause(context.Background(), time.Hour))
}
