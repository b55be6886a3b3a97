package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/substationlabs/assetview-backend/internal/platform/envutil"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

// SQLiteService is the single-file fallback store for local development and
// demo instances that run without a Postgres.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := envutil.Get("SQLITE_PATH", "assetview.db")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite at %s: %w", path, err)
	}

	serviceLog.Info("SQLite opened", "path", path)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
