package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zerotrust/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so queries work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ErrDuplicate is returned by inserts that hit a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate key")

// Find* methods return (nil, nil) when the row does not exist.

// UserRepository provides access to users.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// FindByEmail matches the normalized (lowercased) email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]domain.User, error)

	// Create inserts a user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, u *domain.User) error

	// Update overwrites the mutable columns of an existing user.
	Update(ctx context.Context, u *domain.User) error

	Delete(ctx context.Context, id uuid.UUID) error
}

// DeviceRepository provides access to registered devices.
type DeviceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error)

	// FindByFingerprint looks up the (user, fingerprint) composite key.
	FindByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (*domain.Device, error)

	// List returns all devices, newest request first.
	List(ctx context.Context) ([]domain.Device, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error)

	// Insert creates a device. Returns ErrDuplicate when (user, fingerprint)
	// already exists.
	Insert(ctx context.Context, d *domain.Device) error

	// Update persists approval state.
	Update(ctx context.Context, d *domain.Device) error

	Delete(ctx context.Context, id uuid.UUID) error
}

// OTPRepository stores at most one code per (user, purpose).
type OTPRepository interface {
	Get(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) (*domain.OTPRecord, error)

	// Put replaces any existing record for the same key.
	Put(ctx context.Context, rec *domain.OTPRecord) error

	Delete(ctx context.Context, userID uuid.UUID, purpose domain.OTPPurpose) error
}

// AuditRepository is the append-only audit log.
type AuditRepository interface {
	// Append stores the entry and drops the oldest entries beyond retain.
	Append(ctx context.Context, e *domain.AuditEntry, retain int) error

	// List returns up to limit entries, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// SessionRepository stores issued sessions until they expire or are revoked.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
