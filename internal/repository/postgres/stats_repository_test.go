package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/permit-map/internal/domain"
	"github.com/permit-map/internal/domain/repository"
	"github.com/permit-map/internal/repository/postgres/testhelpers"
)

// StatsRepositoryTestSuite тестирует StatsRepository
type StatsRepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDB
	repo   repository.StatsRepository
	ctx    context.Context
}

func (s *StatsRepositoryTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDB(s.T())
	_ = testhelpers.ApplyMigrations(s.testDB.DB.DB, "../../../migrations")
	s.repo = testhelpers.NewStatsRepositoryForTest(s.testDB.DB, s.testDB.Logger)
}

func (s *StatsRepositoryTestSuite) TearDownSuite() {
	if s.testDB != nil {
		s.testDB.Close()
	}
}

func (s *StatsRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.testDB.Cleanup(s.ctx))
}

func (s *StatsRepositoryTestSuite) TestGetStatistics() {
	s.Require().NoError(testhelpers.LoadFixtures(s.testDB.DB.DB, "testdata", []string{"permits.sql"}))

	stats, err := s.repo.GetStatistics(s.ctx)
	s.Require().NoError(err)

	s.Equal(3, stats.TotalAreas)
	s.Equal(4, stats.TotalRecords)
	s.Equal(map[string]int{"cary": 2, "apex": 1}, stats.ByTownship)
	s.Equal(1, stats.ByCategory["Mixed Use"])
	s.Require().NotNil(stats.FirstSeen)
	s.Equal(domain.NewMonth(2020, time.June), *stats.FirstSeen)
	s.Require().NotNil(stats.LastSeen)
	s.Equal(domain.NewMonth(2021, time.March), *stats.LastSeen)
	s.Require().NotNil(stats.Extent)
	s.InDelta(-78.85, stats.Extent.Min.Lon(), 1e-9)

	filters := stats.DefaultFilters()
	s.Len(filters.Towns, 2)
	s.Equal("apex", filters.Towns[0].Name)
}

func (s *StatsRepositoryTestSuite) TestGetStatistics_Empty() {
	stats, err := s.repo.GetStatistics(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.TotalAreas)
	s.Nil(stats.FirstSeen)
	s.Nil(stats.Extent)
}

func TestStatsRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(StatsRepositoryTestSuite))
}
