package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/mapview"
	"github.com/permit-map/internal/mapview/headless"
	pkgerrors "github.com/permit-map/internal/pkg/errors"
	"github.com/permit-map/internal/pkg/utils"
	"github.com/permit-map/internal/usecase/dto"
)

// SessionSettings - параметры новых сессий карты
type SessionSettings struct {
	Map      mapview.Options
	Palette  map[string]string
	Fallback string
}

type sessionEntry struct {
	session  *mapview.Session
	surface  *headless.Surface
	lastSeen time.Time
}

// SessionUseCase - реестр серверных сессий карты. Каждая сессия отрисовывает
// на headless-поверхность; клиент читает снимки и присылает клики и idle.
type SessionUseCase struct {
	source   mapview.RegionSource
	lookup   mapview.Lookup
	settings SessionSettings
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

// NewSessionUseCase создаёт реестр сессий
func NewSessionUseCase(
	source mapview.RegionSource,
	lookup mapview.Lookup,
	settings SessionSettings,
	logger *zap.Logger,
	now func() time.Time,
) *SessionUseCase {
	if now == nil {
		now = time.Now
	}
	return &SessionUseCase{
		source:   source,
		lookup:   lookup,
		settings: settings,
		logger:   logger,
		now:      now,
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

// Create создаёт и запускает сессию. Палитра из запроса заменяет палитру
// по умолчанию.
func (uc *SessionUseCase) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	id := uuid.New()

	binding := mapview.NewBinding()
	palette, fallback := uc.settings.Palette, uc.settings.Fallback
	if req != nil {
		if req.Filters != nil {
			binding.SetFilters(req.Filters)
		}
		if len(req.Palette) > 0 {
			palette = req.Palette
		}
		if req.Fallback != "" {
			fallback = req.Fallback
		}
	}
	if len(palette) > 0 {
		binding.SetColorFunc(mapview.PaletteColorFunc(palette, fallback))
	}

	var surface *headless.Surface
	factory := func(opts mapview.SurfaceOptions) mapview.Surface {
		surface = headless.NewSurface(opts)
		return surface
	}
	session := mapview.NewSession(factory, binding, uc.source, uc.lookup, uc.settings.Map,
		uc.logger.With(zap.String("session_id", id.String())))
	session.Start()

	entry := &sessionEntry{session: session, surface: surface, lastSeen: uc.now()}

	uc.mu.Lock()
	uc.sessions[id] = entry
	total := len(uc.sessions)
	uc.mu.Unlock()

	uc.logger.Info("Map session created",
		zap.String("session_id", id.String()),
		zap.Int("sessions", total))

	return uc.describe(ctx, id, entry)
}

// Get возвращает текущее состояние сессии
func (uc *SessionUseCase) Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	return uc.describe(ctx, id, entry)
}

// SetFilters заменяет фильтры сессии
func (uc *SessionUseCase) SetFilters(ctx context.Context, id uuid.UUID, filters *domain.FilterState) (*dto.SessionResponse, error) {
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	entry.session.Binding().SetFilters(filters)
	return uc.describe(ctx, id, entry)
}

// SetPalette устанавливает функцию цвета по таблице категорий
func (uc *SessionUseCase) SetPalette(ctx context.Context, id uuid.UUID, palette map[string]string, fallback string) (*dto.SessionResponse, error) {
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	if fallback == "" {
		fallback = uc.settings.Fallback
	}
	entry.session.Binding().SetColorFunc(mapview.PaletteColorFunc(palette, fallback))
	entry.surface.Refresh()
	return uc.describe(ctx, id, entry)
}

// Search ищет разрешения и при успехе заменяет выбранный список сессии
func (uc *SessionUseCase) Search(ctx context.Context, id uuid.UUID, query string) (*dto.SessionResponse, error) {
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	if _, err := entry.session.Search(ctx, query); err != nil {
		return nil, uc.mapErr(err)
	}
	return uc.describe(ctx, id, entry)
}

// Click передаёт клик по карте. Поиск по точке асинхронный: новый список
// появится в одном из следующих снимков.
func (uc *SessionUseCase) Click(ctx context.Context, id uuid.UUID, lat, lon float64) (*dto.ClickResponse, error) {
	if !utils.ValidateCoordinates(lat, lon) {
		return nil, pkgerrors.ErrInvalidCoordinates
	}
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	hit := entry.surface.Click(orb.Point{lon, lat})
	resp, err := uc.describe(ctx, id, entry)
	if err != nil {
		return nil, err
	}
	return &dto.ClickResponse{Hit: hit, Session: resp}, nil
}

// Idle сообщает о стабильном кадре на клиенте
func (uc *SessionUseCase) Idle(ctx context.Context, id uuid.UUID) (*dto.IdleResponse, error) {
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	fired := entry.surface.Idle()
	resp, err := uc.describe(ctx, id, entry)
	if err != nil {
		return nil, err
	}
	return &dto.IdleResponse{Fired: fired, Session: resp}, nil
}

// Reload повторяет загрузку регионов
func (uc *SessionUseCase) Reload(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	entry, err := uc.entry(id)
	if err != nil {
		return nil, err
	}
	if err := entry.session.Reload(ctx); err != nil {
		if errors.Is(err, mapview.ErrSessionClosed) {
			return nil, pkgerrors.ErrSessionNotFound
		}
		uc.logger.Warn("Region reload failed",
			zap.String("session_id", id.String()),
			zap.Error(err))
		return nil, pkgerrors.ErrRegionsNotLoaded.WithDetails(map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return uc.describe(ctx, id, entry)
}

// Delete закрывает и удаляет сессию
func (uc *SessionUseCase) Delete(id uuid.UUID) error {
	uc.mu.Lock()
	entry, ok := uc.sessions[id]
	delete(uc.sessions, id)
	uc.mu.Unlock()
	if !ok {
		return pkgerrors.ErrSessionNotFound
	}
	entry.session.Close()
	uc.logger.Info("Map session closed", zap.String("session_id", id.String()))
	return nil
}

// Sweep закрывает сессии, к которым не обращались дольше ttl
func (uc *SessionUseCase) Sweep(ttl time.Duration) int {
	cutoff := uc.now().Add(-ttl)

	uc.mu.Lock()
	var expired []*sessionEntry
	for id, entry := range uc.sessions {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, entry)
			delete(uc.sessions, id)
		}
	}
	uc.mu.Unlock()

	for _, entry := range expired {
		entry.session.Close()
	}
	if len(expired) > 0 {
		uc.logger.Info("Expired map sessions closed", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// CloseAll закрывает все сессии (остановка сервера)
func (uc *SessionUseCase) CloseAll() {
	uc.mu.Lock()
	all := uc.sessions
	uc.sessions = make(map[uuid.UUID]*sessionEntry)
	uc.mu.Unlock()

	for _, entry := range all {
		entry.session.Close()
	}
}

// Count - число открытых сессий
func (uc *SessionUseCase) Count() int {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return len(uc.sessions)
}

func (uc *SessionUseCase) entry(id uuid.UUID) (*sessionEntry, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	entry, ok := uc.sessions[id]
	if !ok {
		return nil, pkgerrors.ErrSessionNotFound
	}
	entry.lastSeen = uc.now()
	return entry, nil
}

// describe ждёт обработки поставленных событий и снимает состояние
func (uc *SessionUseCase) describe(ctx context.Context, id uuid.UUID, entry *sessionEntry) (*dto.SessionResponse, error) {
	if err := entry.session.Sync(ctx); err != nil {
		return nil, uc.mapErr(err)
	}
	status, err := entry.session.Status(ctx)
	if err != nil {
		return nil, uc.mapErr(err)
	}
	binding := entry.session.Binding()
	return &dto.SessionResponse{
		ID:       id,
		Status:   status,
		Filters:  binding.Filters(),
		List:     binding.List(),
		Snapshot: entry.surface.Snapshot(),
	}, nil
}

func (uc *SessionUseCase) mapErr(err error) error {
	if errors.Is(err, mapview.ErrSessionClosed) {
		return pkgerrors.ErrSessionNotFound
	}
	return err
}
