package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"identity-merge-go/internal/achievement"
	"identity-merge-go/internal/api"
	"identity-merge-go/internal/auth"
	"identity-merge-go/internal/database"
	"identity-merge-go/internal/lock"
	"identity-merge-go/internal/merge"
	"identity-merge-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Locker    lock.Locker
	Catalog   *achievement.Catalog
	Engine    *merge.Engine
	Admin     *api.AdminService

	redisLocker *lock.RedisLocker
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the database, merge lock, catalog and merge engine.
// Merge locks live in Redis when REDIS_URL is set and in the database otherwise.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService, Locker: dbService}

	if cfg.Redis.Url != "" {
		zap.L().Info("Using Redis for merge locks")
		redisLocker, err := lock.NewRedisLockerFromURL(ctx, cfg.Redis.Url)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.redisLocker = redisLocker
		services.Locker = redisLocker
	}

	zap.L().Info("Loading achievement catalog", zap.String("file", cfg.Catalog.File))
	catalog, err := achievement.LoadCatalog(cfg.Catalog.File)
	if err != nil {
		services.Close()
		return nil, err
	}
	zap.L().Info("Achievement catalog loaded",
		zap.Int("version", catalog.Version),
		zap.Int("achievements", len(catalog.Achievements)))

	services.Catalog = catalog
	services.Engine = merge.NewEngine(dbService, services.Locker, cfg.Merge)
	services.Admin = api.NewAdminService(dbService, services.Engine, catalog, cfg.Progression)
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like listing identities
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.redisLocker != nil {
		cs.redisLocker.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

// LocalOperator is the caller used by command-line tools, which already have
// direct database access.
func LocalOperator() auth.Caller {
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return auth.Caller{Subject: fmt.Sprintf("cli:%s", user), Scopes: auth.AllScopes}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
