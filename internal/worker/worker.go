package worker

import "context"

// Worker - фоновая задача процесса: импорт из стрима в cmd/worker, очистка
// простаивающих сессий в cmd/api. Start блокирует до отмены ctx или Stop.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}
