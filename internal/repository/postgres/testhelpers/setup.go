package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const connectAttempts = 3

// permit_data ссылается на permit_area, порядок важен
var permitTables = []string{"permit_data", "permit_area"}

// TestDB - подключение к тестовой базе PostGIS
type TestDB struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

// SetupTestDB подключается к TEST_DB_* (по умолчанию localhost:5433,
// permit_map_test). Без PostgreSQL или PostGIS тест пропускается.
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5433"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "permit_map_test"),
		getEnv("TEST_DB_SSLMODE", "disable"),
	)

	db, err := connect(t, dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available for integration tests after %d attempts: %v", connectAttempts, err)
	}

	var version string
	if err := db.Get(&version, "SELECT PostGIS_Version()"); err != nil {
		db.Close()
		t.Skipf("PostGIS not available: %v", err)
	}
	t.Logf("PostGIS version: %s", version)

	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}

	return &TestDB{DB: db, Logger: logger}
}

func connect(t testing.TB, dsn string) (*sqlx.DB, error) {
	delay := 200 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if attempt < connectAttempts {
			t.Logf("Database not ready (attempt %d/%d), waiting %v...", attempt, connectAttempts, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return nil, lastErr
}

// Close закрывает подключение
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		tdb.DB.Close()
	}
}

// Cleanup очищает таблицы разрешений и сбрасывает последовательности
func (tdb *TestDB) Cleanup(ctx context.Context) error {
	for _, table := range permitTables {
		if _, err := tdb.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
