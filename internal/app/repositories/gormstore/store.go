// Package gormstore implements the repositories on SQLite through gorm. It backs the
// single-binary mode and the service tests.
package gormstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/repositories"
	"gorm.io/gorm"
)

//go:embed schema.sql
var schema string

// Migrate creates the schema. Every statement is idempotent.
func Migrate(db *gorm.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}

// Store implements repositories.Store on a gorm connection
type Store struct {
	db   *gorm.DB
	inTx bool
}

// New creates a store on db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repositories.UserStore               { return &userRepository{db: s.db} }
func (s *Store) Profiles() repositories.ProfileStore         { return &profileRepository{db: s.db} }
func (s *Store) Tokens() repositories.TokenStore             { return &tokenRepository{db: s.db} }
func (s *Store) Actions() repositories.ActionStore           { return &actionRepository{db: s.db} }
func (s *Store) Applications() repositories.ApplicationStore { return &applicationRepository{db: s.db} }
func (s *Store) Notifications() repositories.NotificationStore {
	return &notificationRepository{db: s.db}
}

// InTx runs fn inside a transaction. SQLite serializes writers, so the store
// needs no row locks.
func (s *Store) InTx(ctx context.Context, fn repositories.TxFn) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, inTx: true})
	})
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func now() time.Time {
	return time.Now().UTC()
}
