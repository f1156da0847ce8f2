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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"identity-merge-go/internal/models"
)

func Load() (*models.Config, error) {
	durations := map[string]time.Duration{
		"DB_CONN_MAX_LIFETIME":   5 * time.Minute,
		"DB_CONN_MAX_IDLE_TIME":  30 * time.Second,
		"DB_PING_TIMEOUT":        5 * time.Second,
		"DB_BUSY_TIMEOUT":        5 * time.Second,
		"MERGE_STEP_TIMEOUT":     10 * time.Second,
		"MERGE_LOCK_TTL":         2 * time.Minute,
		"MERGE_LOCK_WAIT":        5 * time.Second,
		"OPERATOR_TOKEN_TTL":     15 * time.Minute,
		"OPERATOR_CLOCK_SKEW":    30 * time.Second,
		"SERVER_READ_TIMEOUT":    15 * time.Second,
		"SERVER_WRITE_TIMEOUT":   60 * time.Second,
		"SERVER_SHUTDOWN_PERIOD": 10 * time.Second,
	}
	for key, defaultValue := range durations {
		value, err := getEnvDuration(key, defaultValue)
		if err != nil {
			return nil, err
		}
		durations[key] = value
	}

	driver := getEnvString("DB_DRIVER", "sqlite3")
	if driver != "sqlite3" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (expected sqlite3 or postgres)", driver)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Driver:           driver,
			Path:             getEnvString("DATABASE_PATH", "identities.db"),
			Url:              getEnvString("DATABASE_URL", ""),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  durations["DB_CONN_MAX_LIFETIME"],
			ConnMaxIdleTime:  durations["DB_CONN_MAX_IDLE_TIME"],
			PingTimeout:      durations["DB_PING_TIMEOUT"],
			BusyTimeout:      durations["DB_BUSY_TIMEOUT"],
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Merge: models.MergeConfig{
			DefaultTargetEmail: getEnvString("MERGE_DEFAULT_TARGET_EMAIL", ""),
			DefaultSourceEmail: getEnvString("MERGE_DEFAULT_SOURCE_EMAIL", ""),
			StepTimeout:        durations["MERGE_STEP_TIMEOUT"],
			LockTTL:            durations["MERGE_LOCK_TTL"],
			LockWait:           durations["MERGE_LOCK_WAIT"],
		},
		Auth: models.AuthConfig{
			TokenSecret: getEnvString("OPERATOR_TOKEN_SECRET", ""),
			Issuer:      getEnvString("OPERATOR_TOKEN_ISSUER", "identity-merge"),
			TokenTTL:    durations["OPERATOR_TOKEN_TTL"],
			ClockSkew:   durations["OPERATOR_CLOCK_SKEW"],
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ReadTimeout:     durations["SERVER_READ_TIMEOUT"],
			WriteTimeout:    durations["SERVER_WRITE_TIMEOUT"],
			ShutdownTimeout: durations["SERVER_SHUTDOWN_PERIOD"],
		},
		Redis: models.RedisConfig{
			Url: getEnvString("REDIS_URL", ""),
		},
		Catalog: models.CatalogConfig{
			File: getEnvString("ACHIEVEMENTS_FILE", "achievements.yaml"),
		},
		Progression: models.ProgressionConfig{
			Defaults: models.Progression{
				Level:         int64(getEnvInt("PROGRESSION_DEFAULT_LEVEL", 1)),
				TotalXp:       int64(getEnvInt("PROGRESSION_DEFAULT_XP", 0)),
				CurrentStreak: int64(getEnvInt("PROGRESSION_DEFAULT_STREAK", 0)),
				LongestStreak: int64(getEnvInt("PROGRESSION_DEFAULT_LONGEST_STREAK", 0)),
			},
			Targets: models.Progression{
				Level:         int64(getEnvInt("PROGRESSION_TARGET_LEVEL", 100)),
				TotalXp:       int64(getEnvInt("PROGRESSION_TARGET_XP", 999999)),
				CurrentStreak: int64(getEnvInt("PROGRESSION_TARGET_STREAK", 365)),
				LongestStreak: int64(getEnvInt("PROGRESSION_TARGET_LONGEST_STREAK", 365)),
			},
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
