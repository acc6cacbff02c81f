package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/wallet-insights/internal/config"
	"github.com/wallet-insights/internal/models"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testPostgresConfig() *config.PostgresConfig {
	getenv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return &config.PostgresConfig{
		Host:           getenv("POSTGRES_HOST", "localhost"),
		Port:           getenv("POSTGRES_PORT", "5432"),
		Database:       getenv("POSTGRES_DB", "wallet_insights_test"),
		User:           getenv("POSTGRES_USER", "wallet_insights"),
		Password:       getenv("POSTGRES_PASSWORD", "wallet_insights_dev"),
		MaxConnections: 5,
	}
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", DefaultMigrationsPath)
}

// setupTestDB connects to Postgres, applies migrations and empties the tables.
// The test is skipped in short mode or when Postgres is unavailable.
func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := RunMigrations(cfg.PostgresURL(), migrationsDir()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	ctx := testContext(t)
	if _, err := db.Pool().Exec(ctx, `TRUNCATE users CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return db
}

// createTestUser inserts a user with a unique email
func createTestUser(t *testing.T, db *PostgresDB) string {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplac",
	}
	if err := NewUserRepository(db).Create(testContext(t), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user.ID
}
