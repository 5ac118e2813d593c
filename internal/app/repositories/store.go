package repositories

import (
	"context"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
)

// ApplicationUniqueConstraint is the database constraint behind "one application per volunteer and action"
const ApplicationUniqueConstraint = "applications_action_volunteer_key"

// UserStore defines the user-related database operations
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string, excludeUserID int64) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, userID int64, firstName, lastName, email string) error
	UpdateLastLogin(ctx context.Context, userID int64) error
}

// ProfileStore defines the profile operations
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
}

// TokenStore defines the refresh token operations
type TokenStore interface {
	Create(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	// Get returns the token whatever its state; callers check expiry and revocation
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	// Revoke flips a live token to revoked; an already revoked one yields apperrors.ErrTokenRevoked
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// ActionStore defines the action registry operations
type ActionStore interface {
	Create(ctx context.Context, action *models.Action) error
	GetByID(ctx context.Context, id int64) (*models.Action, error)
	// GetByIDForUpdate reads the action and, where the engine supports it, locks the row
	// until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Action, error)
	GetSummary(ctx context.Context, id int64) (*models.ActionSummary, error)
	Update(ctx context.Context, action *models.Action) error
	UpdateNotes(ctx context.Context, id int64, notes *string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.ActionFilter) ([]models.ActionSummary, int, error)
}

// ApplicationStore defines the application ledger operations
type ApplicationStore interface {
	// Create inserts a new application; a duplicate (action, volunteer) pair yields apperrors.ErrAlreadyApplied
	Create(ctx context.Context, application *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetDetail(ctx context.Context, id int64) (*models.ApplicationDetail, error)
	GetByActionAndVolunteer(ctx context.Context, actionID, volunteerID int64) (*models.Application, error)
	// UpdateStatus moves the application to `to` only when its status is one of from
	UpdateStatus(ctx context.Context, id int64, from []models.ApplicationStatus, to models.ApplicationStatus) (bool, error)
	// AcceptIfCapacity accepts a PENDING application only while the action has room, in one statement
	AcceptIfCapacity(ctx context.Context, id int64) (bool, error)
	CountAccepted(ctx context.Context, actionID int64) (int, error)
	ListByAction(ctx context.Context, actionID int64) ([]models.ApplicationDetail, error)
	VolunteersByStatus(ctx context.Context, actionID int64, statuses ...models.ApplicationStatus) ([]int64, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	UpdateComment(ctx context.Context, id int64, comment *string) error
}

// NotificationStore defines the outbox operations
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, recipientID int64, ids []int64) (int64, error)
	// MarkOneRead marks one of the recipient's notifications; other users' rows are not found
	MarkOneRead(ctx context.Context, recipientID, id int64) error
	Count(ctx context.Context, recipientID int64, read *bool) (int, error)
	DeleteRead(ctx context.Context, recipientID int64) (int64, error)
	// DeleteLatestMatching removes the newest notification of recipient with the given link
	// whose message starts with prefix
	DeleteLatestMatching(ctx context.Context, recipientID int64, link, prefix string) (bool, error)
}

// TxFn runs inside a transaction with a Store bound to it
type TxFn func(ctx context.Context, tx Store) error

// Store groups every repository behind one transactional boundary
type Store interface {
	Users() UserStore
	Profiles() ProfileStore
	Tokens() TokenStore
	Actions() ActionStore
	Applications() ApplicationStore
	Notifications() NotificationStore
	// InTx runs fn in a transaction; calling it on a transactional Store reuses the transaction
	InTx(ctx context.Context, fn TxFn) error
	Ping(ctx context.Context) error
}
