package janitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	ttls  []time.Duration
}

func (s *countingSweeper) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ttls = append(s.ttls, ttl)
	return 1
}

func (s *countingSweeper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSessionJanitor_SweepsOnTick(t *testing.T) {
	sweeper := &countingSweeper{}
	j := NewSessionJanitor(sweeper, 30*time.Minute, 5*time.Millisecond, zap.NewNop())
	assert.Equal(t, "session-janitor", j.Name())

	done := make(chan error, 1)
	go func() { done <- j.Start(context.Background()) }()

	assert.Eventually(t, func() bool { return sweeper.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, j.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}

	sweeper.mu.Lock()
	defer sweeper.mu.Unlock()
	assert.Equal(t, 30*time.Minute, sweeper.ttls[0])
}

func TestSessionJanitor_ContextCancel(t *testing.T) {
	j := NewSessionJanitor(&countingSweeper{}, time.Minute, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, j.Start(ctx), context.Canceled)
}
