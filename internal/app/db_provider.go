package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/data/db"
	"github.com/substationlabs/assetview-backend/internal/platform/envutil"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type DatabaseDriver string

const (
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

type DatabaseProviderConfigErrorCode string

const (
	DatabaseProviderConfigErrorInvalidDriver DatabaseProviderConfigErrorCode = "invalid_driver"
)

type DatabaseProviderConfigError struct {
	Code   DatabaseProviderConfigErrorCode
	Driver string
	Cause  error
}

func (e *DatabaseProviderConfigError) Error() string {
	if e == nil {
		return "invalid database provider config"
	}
	return fmt.Sprintf("invalid database provider config (code=%s driver=%q): %v", e.Code, e.Driver, e.Cause)
}

func (e *DatabaseProviderConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type DatabaseProviderConfig struct {
	Driver     DatabaseDriver
	ModeSource string
}

// resolveDatabaseProviderConfig picks the database driver. An explicit
// DB_DRIVER wins; otherwise a set SQLITE_PATH implies sqlite so local
// stacks need only the one variable, and postgres is the default.
func resolveDatabaseProviderConfig() (DatabaseProviderConfig, error) {
	raw := envutil.Get("DB_DRIVER", "")
	switch DatabaseDriver(strings.ToLower(raw)) {
	case "":
		if envutil.Get("SQLITE_PATH", "") != "" {
			return DatabaseProviderConfig{Driver: DatabaseDriverSQLite, ModeSource: "sqlite_path_implied"}, nil
		}
		return DatabaseProviderConfig{Driver: DatabaseDriverPostgres, ModeSource: "default"}, nil
	case DatabaseDriverPostgres:
		return DatabaseProviderConfig{Driver: DatabaseDriverPostgres, ModeSource: "db_driver_env"}, nil
	case DatabaseDriverSQLite:
		return DatabaseProviderConfig{Driver: DatabaseDriverSQLite, ModeSource: "db_driver_env"}, nil
	default:
		return DatabaseProviderConfig{}, &DatabaseProviderConfigError{
			Code:   DatabaseProviderConfigErrorInvalidDriver,
			Driver: raw,
			Cause:  fmt.Errorf("unsupported database driver %q (allowed: %q, %q)", raw, DatabaseDriverPostgres, DatabaseDriverSQLite),
		}
	}
}

func openDatabase(log *logger.Logger, cfg DatabaseProviderConfig) (*gorm.DB, error) {
	log.Info("Selecting database driver", "driver", cfg.Driver, "mode_source", cfg.ModeSource)

	switch cfg.Driver {
	case DatabaseDriverSQLite:
		svc, err := db.NewSQLiteService(log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("sqlite automigrate: %w", err)
		}
		return svc.DB(), nil
	case DatabaseDriverPostgres:
		svc, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		return svc.DB(), nil
	default:
		return nil, &DatabaseProviderConfigError{
			Code:   DatabaseProviderConfigErrorInvalidDriver,
			Driver: string(cfg.Driver),
			Cause:  fmt.Errorf("unsupported database driver %q", cfg.Driver),
		}
	}
}
