package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/communitylink/communitylink/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL through pgx
type PostgresStore struct {
	db   *db.PostgresDB
	inTx bool

	users         *UserRepository
	profiles      *ProfileRepository
	tokens        *TokenRepository
	actions       *ActionRepository
	applications  *ApplicationRepository
	notifications *NotificationRepository
}

// NewPostgresStore creates a store bound to the connection pool
func NewPostgresStore(pdb *db.PostgresDB) *PostgresStore {
	return newPostgresStore(pdb, pdb.Pool, false)
}

func newPostgresStore(pdb *db.PostgresDB, q Querier, inTx bool) *PostgresStore {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return &PostgresStore{
		db:            pdb,
		inTx:          inTx,
		users:         &UserRepository{db: q, sb: sb},
		profiles:      &ProfileRepository{db: q, sb: sb},
		tokens:        &TokenRepository{db: q, sb: sb},
		actions:       &ActionRepository{db: q, sb: sb, lock: inTx},
		applications:  &ApplicationRepository{db: q, sb: sb},
		notifications: &NotificationRepository{db: q, sb: sb},
	}
}

func (s *PostgresStore) Users() UserStore                 { return s.users }
func (s *PostgresStore) Profiles() ProfileStore           { return s.profiles }
func (s *PostgresStore) Tokens() TokenStore               { return s.tokens }
func (s *PostgresStore) Actions() ActionStore             { return s.actions }
func (s *PostgresStore) Applications() ApplicationStore   { return s.applications }
func (s *PostgresStore) Notifications() NotificationStore { return s.notifications }

// InTx runs fn inside a database transaction
func (s *PostgresStore) InTx(ctx context.Context, fn TxFn) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newPostgresStore(s.db, tx, true))
	})
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
