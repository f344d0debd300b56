package mapview

import (
	"context"
	"sync"
)

const loopBuffer = 64

// eventLoop - единственный поток управления сессии. Все реакции
// выполняются последовательно в run.
type eventLoop struct {
	events   chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		events: make(chan func(), loopBuffer),
		done:   make(chan struct{}),
	}
}

func (l *eventLoop) run() {
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-l.done:
			return
		}
	}
}

// post ставит fn в очередь. false - цикл остановлен.
func (l *eventLoop) post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// call выполняет fn в цикле и ждёт завершения
func (l *eventLoop) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrSessionClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *eventLoop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
