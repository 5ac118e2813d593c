package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "applications_action_volunteer_key"})

	assert.True(t, IsDuplicateConstraintError(err, "applications_action_volunteer_key"))
	assert.False(t, IsDuplicateConstraintError(err, "users_email_key"))
	assert.False(t, IsDuplicateConstraintError(&pgconn.PgError{Code: "23503"}, "applications_action_volunteer_key"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, IsUniqueViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsUniqueViolationOn(t *testing.T) {
	sqliteErr := errors.New("UNIQUE constraint failed: users.username")

	assert.True(t, IsUniqueViolationOn(sqliteErr, "users_username_key", "users.username"))
	assert.False(t, IsUniqueViolationOn(sqliteErr, "users_email_key", "users.email"))
	assert.True(t, IsUniqueViolationOn(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, "users_email_key", "users.email"))
}
