/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"

	"identity-merge-go/internal/lock"
	"identity-merge-go/internal/models"
	"identity-merge-go/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy store.Store and lock.Locker.
var (
	_ store.Store = (*Service)(nil)
	_ lock.Locker = (*Service)(nil)
)

type Service struct {
	db *sqlx.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Opening database", zap.String("driver", cfg.Driver))
	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx, cfg.CreateDummyUsers); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func dataSourceName(cfg models.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "sqlite3":
		if cfg.Path == "" {
			return "", fmt.Errorf("database path cannot be empty")
		}
		params := url.Values{}
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "NORMAL")
		params.Set("_cache_size", "1000")
		params.Set("_foreign_keys", "on")
		busyTimeout := cfg.BusyTimeout.Milliseconds()
		if busyTimeout <= 0 {
			busyTimeout = 5000
		}
		params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout))
		return cfg.Path + "?" + params.Encode(), nil
	case "postgres":
		if cfg.Url == "" {
			return "", fmt.Errorf("DATABASE_URL cannot be empty for postgres")
		}
		return cfg.Url, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// rebind rewrites ? placeholders for the active driver.
func (s *Service) rebind(query string) string {
	return s.db.Rebind(query)
}

func (s *Service) initSchema(ctx context.Context, createDummyUsers bool) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// Insert 3 dummy identities for testing if configured to do so
	if createDummyUsers {
		identities := []store.CreateIdentityParams{
			{Id: uuid.New().String(), Username: "alice", Email: "alice.johnson@example.com", FullName: "Alice Johnson"},
			{Id: uuid.New().String(), Username: "bob", Email: "bob.smith@example.com", FullName: "Bob Smith"},
			{Id: uuid.New().String(), Username: "carol", Email: "carol.williams@example.com", FullName: "Carol Williams"},
		}

		for _, identity := range identities {
			_, err := s.CreateIdentity(ctx, identity)
			if err != nil && !errors.Is(err, store.ErrDuplicateKey) {
				zap.L().Error("Failed to insert dummy identity", zap.String("username", identity.Username), zap.Error(err))
			} else if err == nil {
				zap.L().Info("Dummy identity created", zap.String("id", identity.Id), zap.String("username", identity.Username))
			}
		}
	} else {
		zap.L().Info("Skipping dummy identity creation (CREATE_DUMMY_USERS=false)")
	}

	return nil
}

// classify maps driver errors onto the store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", store.ErrDuplicateKey, err)
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", store.ErrTransient, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// connection exceptions, serialization failures, deadlocks
		class := pqErr.Code.Class()
		return class == "08" || pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
