package db

import (
	"context"
	"fmt"
	"time"

	"github.com/communitylink/communitylink/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectTimeout = 10 * time.Second
	txTimeout      = 30 * time.Second
	appName        = "communitylink"
)

// PostgresDB wraps the pgx pool backing the PostgreSQL store
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// NewPostgresDB connects using the database section of cfg
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	return NewPostgresDBFromURL(cfg.GetPostgresConnectionString(), cfg)
}

// NewPostgresDBFromURL connects to connString with the pool limits taken from cfg.
// The pool is verified with a ping before it is returned.
func NewPostgresDBFromURL(connString string, cfg *config.Config) (*PostgresDB, error) {
	poolCfg, err := poolConfig(connString, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}
	return &PostgresDB{Pool: pool}, nil
}

func poolConfig(connString string, cfg *config.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}

	dbCfg := cfg.Database
	if dbCfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(dbCfg.MaxOpenConns)
	}
	if dbCfg.MaxIdleConns > 0 && dbCfg.MaxIdleConns <= int(pc.MaxConns) {
		pc.MinConns = int32(dbCfg.MaxIdleConns)
	}
	pc.MaxConnLifetime = config.Duration(dbCfg.ConnMaxLifetime, time.Hour)
	pc.HealthCheckPeriod = time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = appName
	pc.ConnConfig.RuntimeParams["timezone"] = "UTC"
	return pc, nil
}

// Ping checks that the database answers
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close releases every pooled connection
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// TxFunc is run by WithTransaction with the open transaction
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// WithTransaction runs fn in a READ COMMITTED transaction. It commits when fn
// returns nil and rolls back on error or panic. Callers without a deadline get txTimeout.
func (db *PostgresDB) WithTransaction(ctx context.Context, fn TxFunc) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, txTimeout)
		defer cancel()
	}

	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	return pgx.BeginTxFunc(ctx, db.Pool, opts, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}
