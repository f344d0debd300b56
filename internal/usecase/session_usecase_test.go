package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/mapview"
	"github.com/permit-map/internal/mapview/headless"
	pkgerrors "github.com/permit-map/internal/pkg/errors"
	"github.com/permit-map/internal/usecase"
	"github.com/permit-map/internal/usecase/dto"
)

type stubLookup struct {
	mu     sync.Mutex
	at     []*domain.PermitItem
	search []*domain.PermitItem
	err    error
}

func (l *stubLookup) At(context.Context, float64, float64) ([]*domain.PermitItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.at, l.err
}

func (l *stubLookup) Search(context.Context, string) ([]*domain.PermitItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.search, l.err
}

type stubSource struct {
	mu   sync.Mutex
	fail bool
}

func (s *stubSource) Regions(context.Context) (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, pkgerrors.ErrDatabaseError
	}
	return regionCollection(), nil
}

func (s *stubSource) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

type SessionUseCaseTestSuite struct {
	suite.Suite
	ctx    context.Context
	source *stubSource
	lookup *stubLookup
	clock  time.Time
	uc     *usecase.SessionUseCase
}

func (s *SessionUseCaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.source = &stubSource{}
	s.lookup = &stubLookup{}
	s.clock = time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)
	s.uc = usecase.NewSessionUseCase(s.source, s.lookup, usecase.SessionSettings{
		Map: mapview.Options{
			DefaultExtent: domain.BoundsFromBBox(-78.95, 35.70, -78.75, 35.85),
		},
		Palette:  map[string]string{"Rezoning Case": "#d62728"},
		Fallback: "#7f7f7f",
	}, zap.NewNop(), func() time.Time { return s.clock })
}

func (s *SessionUseCaseTestSuite) TearDownTest() {
	s.uc.CloseAll()
}

func (s *SessionUseCaseTestSuite) create(req *dto.CreateSessionRequest) *dto.SessionResponse {
	resp, err := s.uc.Create(s.ctx, req)
	s.Require().NoError(err)
	return resp
}

func (s *SessionUseCaseTestSuite) waitLoaded(id uuid.UUID) *dto.SessionResponse {
	var last *dto.SessionResponse
	s.Require().Eventually(func() bool {
		resp, err := s.uc.Get(s.ctx, id)
		if err != nil {
			return false
		}
		last = resp
		return resp.Status.Loaded
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

func (s *SessionUseCaseTestSuite) TestCreate_DefaultPaletteAndCamera() {
	resp := s.create(nil)
	s.Equal(1, s.uc.Count())
	s.True(resp.Snapshot.DisableDefaultUI)
	s.Equal("fit", resp.Snapshot.Camera.Action)

	loaded := s.waitLoaded(resp.ID)
	s.Equal(1, loaded.Status.Regions)
	s.Require().Len(loaded.Snapshot.Features.Features, 1)
	s.Equal("#d62728", loaded.Snapshot.Features.Features[0].Properties[headless.PropFillColor])
}

func (s *SessionUseCaseTestSuite) TestSetPalette_ReplacesColors() {
	resp := s.create(nil)
	loaded := s.waitLoaded(resp.ID)
	rev := loaded.Snapshot.Revision

	first, err := s.uc.SetPalette(s.ctx, resp.ID, map[string]string{"Rezoning Case": "#1f77b4"}, "")
	s.Require().NoError(err)
	s.Equal("#1f77b4", first.Snapshot.Features.Features[0].Properties[headless.PropFillColor])
	s.Greater(first.Snapshot.Revision, rev)

	second, err := s.uc.SetPalette(s.ctx, resp.ID, map[string]string{"Business": "#2ca02c"}, "#17becf")
	s.Require().NoError(err)
	s.Equal("#17becf", second.Snapshot.Features.Features[0].Properties[headless.PropFillColor])
}

func (s *SessionUseCaseTestSuite) TestCreate_WithFiltersHidesRegion() {
	lo, err := domain.ParseMonth("2022-01")
	s.Require().NoError(err)
	hi, err := domain.ParseMonth("2022-12")
	s.Require().NoError(err)

	resp := s.create(&dto.CreateSessionRequest{
		Filters: &domain.FilterState{
			Categories: []domain.FilterEntry{{Name: "Rezoning Case", Value: true}},
			Towns:      []domain.FilterEntry{{Name: "cary", Value: true}},
			DateMin:    lo,
			DateMax:    hi,
		},
	})

	loaded := s.waitLoaded(resp.ID)
	s.Require().NotNil(loaded.Filters)
	s.Equal(false, loaded.Snapshot.Features.Features[0].Properties[headless.PropVisible])

	unhidden, err := s.uc.SetFilters(s.ctx, resp.ID, &domain.FilterState{
		Categories: []domain.FilterEntry{{Name: "Rezoning Case", Value: true}},
		Towns:      []domain.FilterEntry{{Name: "cary", Value: true}},
		DateMin:    lo - 24,
		DateMax:    hi,
	})
	s.Require().NoError(err)
	s.Equal(true, unhidden.Snapshot.Features.Features[0].Properties[headless.PropVisible])
}

func (s *SessionUseCaseTestSuite) TestUnknownSession() {
	id := uuid.New()

	_, err := s.uc.Get(s.ctx, id)
	s.True(errors.Is(err, pkgerrors.ErrSessionNotFound))
	_, err = s.uc.Idle(s.ctx, id)
	s.True(errors.Is(err, pkgerrors.ErrSessionNotFound))
	s.True(errors.Is(s.uc.Delete(id), pkgerrors.ErrSessionNotFound))
}

func (s *SessionUseCaseTestSuite) TestDelete() {
	resp := s.create(nil)

	s.Require().NoError(s.uc.Delete(resp.ID))
	s.Zero(s.uc.Count())

	_, err := s.uc.Get(s.ctx, resp.ID)
	s.True(errors.Is(err, pkgerrors.ErrSessionNotFound))
}

func (s *SessionUseCaseTestSuite) TestSearchPlacesMarkers() {
	s.lookup.search = []*domain.PermitItem{
		{ID: 1, Centroid: orb.Point{-78.795, 35.785}, Extent: orb.Bound{Min: orb.Point{-78.80, 35.78}, Max: orb.Point{-78.79, 35.79}}},
	}
	resp := s.create(nil)
	s.waitLoaded(resp.ID)

	found, err := s.uc.Search(s.ctx, resp.ID, "towne")
	s.Require().NoError(err)
	s.Require().NotNil(found.List)
	s.Len(found.List.Permits, 1)
	s.Len(found.Snapshot.Markers, 1)
	s.Equal("center", found.Snapshot.Camera.Action)

	idle, err := s.uc.Idle(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Equal(1, idle.Fired)
	s.Equal("pan", idle.Session.Snapshot.Camera.Action)
}

func (s *SessionUseCaseTestSuite) TestSearchFailureKeepsList() {
	s.lookup.search = []*domain.PermitItem{{ID: 1, Centroid: orb.Point{-78.795, 35.785}}}
	resp := s.create(nil)

	_, err := s.uc.Search(s.ctx, resp.ID, "towne")
	s.Require().NoError(err)

	s.lookup.mu.Lock()
	s.lookup.err = pkgerrors.ErrDatabaseError
	s.lookup.mu.Unlock()

	_, err = s.uc.Search(s.ctx, resp.ID, "plaza")
	s.True(errors.Is(err, pkgerrors.ErrDatabaseError))

	current, err := s.uc.Get(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Len(current.List.Permits, 1)
}

func (s *SessionUseCaseTestSuite) TestClick() {
	s.lookup.at = []*domain.PermitItem{{ID: 1, Name: "Cary Towne Center", Centroid: orb.Point{-78.795, 35.785}}}
	resp := s.create(nil)
	s.waitLoaded(resp.ID)

	miss, err := s.uc.Click(s.ctx, resp.ID, 35.0, -78.0)
	s.Require().NoError(err)
	s.False(miss.Hit)

	hit, err := s.uc.Click(s.ctx, resp.ID, 35.785, -78.795)
	s.Require().NoError(err)
	s.True(hit.Hit)

	s.Eventually(func() bool {
		cur, err := s.uc.Get(s.ctx, resp.ID)
		return err == nil && cur.List != nil && len(cur.Snapshot.Markers) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = s.uc.Click(s.ctx, resp.ID, 120, 0)
	s.True(errors.Is(err, pkgerrors.ErrInvalidCoordinates))
}

func (s *SessionUseCaseTestSuite) TestReload() {
	s.source.setFail(true)
	resp := s.create(nil)

	s.Eventually(func() bool {
		cur, err := s.uc.Get(s.ctx, resp.ID)
		return err == nil && cur.Status.LoadError != ""
	}, 2*time.Second, 10*time.Millisecond)

	_, err := s.uc.Reload(s.ctx, resp.ID)
	s.True(errors.Is(err, pkgerrors.ErrRegionsNotLoaded))

	s.source.setFail(false)
	reloaded, err := s.uc.Reload(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.True(reloaded.Status.Loaded)
	s.Empty(reloaded.Status.LoadError)
}

func (s *SessionUseCaseTestSuite) TestSweepExpiresIdleSessions() {
	stale := s.create(nil)
	s.clock = s.clock.Add(20 * time.Minute)
	fresh := s.create(nil)
	s.clock = s.clock.Add(15 * time.Minute)

	s.Equal(1, s.uc.Sweep(30*time.Minute))
	s.Equal(1, s.uc.Count())

	_, err := s.uc.Get(s.ctx, stale.ID)
	s.True(errors.Is(err, pkgerrors.ErrSessionNotFound))
	_, err = s.uc.Get(s.ctx, fresh.ID)
	s.NoError(err)
}

func TestSessionUseCaseTestSuite(t *testing.T) {
	suite.Run(t, new(SessionUseCaseTestSuite))
}
