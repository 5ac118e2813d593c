package db

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/communitylink/communitylink/internal/config"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory SQLite database
const MemoryPath = ":memory:"

// sqliteDriver is go-sqlite3 with LOWER and UPPER replaced by Unicode-aware
// versions. The built-in ones only fold ASCII letters.
const sqliteDriver = "sqlite3_unicode"

var registerDriver sync.Once

func unicodeDriver() string {
	registerDriver.Do(func() {
		sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.RegisterFunc("lower", foldCase(strings.ToLower), true); err != nil {
					return err
				}
				return conn.RegisterFunc("upper", foldCase(strings.ToUpper), true)
			},
		})
	})
	return sqliteDriver
}

// foldCase applies fn to TEXT arguments and passes NULL and other types through
func foldCase(fn func(string) string) func(any) any {
	return func(v any) any {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	}
}

// SQLiteDSN builds the driver DSN with foreign keys on and immediate write transactions
func SQLiteDSN(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if path == MemoryPath {
		return "file::memory:?" + params
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params + "&_journal_mode=WAL"
}

// NewSQLiteDB opens the SQLite database configured in cfg
func NewSQLiteDB(cfg *config.Config, logger zerolog.Logger) (*gorm.DB, error) {
	return OpenSQLite(cfg.Database.SQLitePath, logger)
}

// OpenSQLite opens a SQLite database through gorm. SQLite allows a single writer,
// so the pool is limited to one connection.
func OpenSQLite(path string, logger zerolog.Logger) (*gorm.DB, error) {
	gormLog := gormlogger.New(&logger, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: unicodeDriver(), DSN: SQLiteDSN(path)}), &gorm.Config{
		Logger:  gormLog,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return db, nil
}

// CloseSQLite closes the underlying connection pool
func CloseSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
