package database

import (
	"fmt"
	"strings"
	"time"

	"tempspec/internal/model"

	"github.com/ncruces/go-sqlite3/gormlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "github.com/ncruces/go-sqlite3/embed"
)

// Driver names accepted by NewConnection
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sqliteTimeFormat stores timestamps as integer nanoseconds so ORDER BY on
// time columns is chronological at any precision and zone.
const sqliteTimeFormat = "unixepoch_nano"

// SQLiteDSN normalises dsn to a file: URI and pins the driver time format
// unless the caller already chose one.
func SQLiteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "_timefmt=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_timefmt=" + sqliteTimeFormat
}

// NewConnection initializes a new connection pool using GORM and migrates the schema
func NewConnection(driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case DriverSQLite, "sqlite3":
		dialector = gormlite.Open(SQLiteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		logger.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.TempSpec{},
		&model.Upload{},
		&model.SpecHistory{},
	)
}

// Reset drops every table and recreates the schema. All data is lost.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(
		&model.SpecHistory{},
		&model.Upload{},
		&model.TempSpec{},
		&model.User{},
	); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return Migrate(db)
}
