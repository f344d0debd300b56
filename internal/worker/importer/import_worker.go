package importer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
	"github.com/permit-map/internal/pkg/errors"
	"github.com/permit-map/internal/worker"
)

const (
	defaultBatchSize = 10
	defaultBlock     = 5 * time.Second
	errorPause       = time.Second
	retryBackoff     = 500 * time.Millisecond
)

// Importer выполняет задание импорта
type Importer interface {
	ImportEvent(ctx context.Context, event *domain.PermitImportEvent) (*domain.ImportResult, error)
}

// Options - параметры чтения стрима
type Options struct {
	ConsumerGroup string
	MaxRetries    int
	BatchSize     int
	Block         time.Duration
	RetryBackoff  time.Duration
}

// PermitImportWorker читает задания из stream:permit:import, импортирует
// коллекции и публикует итог в stream:permit:import:done
type PermitImportWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	importer     Importer
	consumerName string
	opts         Options
}

// NewPermitImportWorker создает новый PermitImportWorker
func NewPermitImportWorker(
	streamRepo repository.StreamRepository,
	importer Importer,
	opts Options,
	logger *zap.Logger,
) *PermitImportWorker {
	hostname, _ := os.Hostname()
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Block <= 0 {
		opts.Block = defaultBlock
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = retryBackoff
	}

	return &PermitImportWorker{
		BaseWorker:   worker.NewBaseWorker("permit-import", opts.ConsumerGroup, logger),
		streamRepo:   streamRepo,
		importer:     importer,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		opts:         opts,
	}
}

// Start запускает воркер
func (w *PermitImportWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting PermitImportWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("batch_size", w.opts.BatchSize))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamPermitImport, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		if _, err := w.ProcessBatch(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("Failed to process batch", zap.Error(err))
			w.Pause(ctx, errorPause)
		}
	}
}

// ProcessBatch читает пачку заданий и обрабатывает их по очереди.
// Возвращает число прочитанных сообщений.
func (w *PermitImportWorker) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := w.streamRepo.ConsumeBatch(
		ctx,
		domain.StreamPermitImport,
		w.ConsumerGroup(),
		w.consumerName,
		int64(w.opts.BatchSize),
		w.opts.Block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}

	for _, msg := range messages {
		w.handle(ctx, msg)
	}
	return len(messages), nil
}

func (w *PermitImportWorker) handle(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger().With(zap.String("message_id", msg.ID))

	var event domain.PermitImportEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		logger.Warn("Failed to parse message, skipping", zap.Error(err))
		w.ack(ctx, msg.ID)
		return
	}

	result, err := w.importWithRetry(ctx, &event)

	done := &domain.PermitImportDoneEvent{JobID: event.JobID, Result: result}
	if err != nil {
		done.Error = err.Error()
		logger.Error("Import failed",
			zap.String("job_id", event.JobID.String()),
			zap.String("township", event.Township),
			zap.Error(err))
	}

	if err := w.streamRepo.PublishToStream(ctx, domain.StreamPermitImportDone, done); err != nil {
		logger.Error("Failed to publish done event",
			zap.String("job_id", event.JobID.String()),
			zap.Error(err))
	}
	w.ack(ctx, msg.ID)
}

// importWithRetry повторяет только временные ошибки; ошибки запроса
// (4xx) возвращаются сразу
func (w *PermitImportWorker) importWithRetry(ctx context.Context, event *domain.PermitImportEvent) (*domain.ImportResult, error) {
	var (
		result *domain.ImportResult
		err    error
	)
	for attempt := 1; attempt <= w.opts.MaxRetries; attempt++ {
		result, err = w.importer.ImportEvent(ctx, event)
		if err == nil || !retryable(err) || attempt == w.opts.MaxRetries {
			break
		}
		w.Logger().Warn("Import attempt failed, retrying",
			zap.String("job_id", event.JobID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if !w.Pause(ctx, time.Duration(attempt)*w.opts.RetryBackoff) {
			break
		}
	}
	return result, err
}

func (w *PermitImportWorker) ack(ctx context.Context, id string) {
	if err := w.streamRepo.AckMessage(ctx, domain.StreamPermitImport, w.ConsumerGroup(), id); err != nil {
		w.Logger().Error("Failed to ack message", zap.String("message_id", id), zap.Error(err))
	}
}

func retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode >= 500
	}
	return true
}
