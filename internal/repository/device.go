package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zerotrust/platform/internal/domain"
)

// PgDeviceRepository implements DeviceRepository using pgx.
type PgDeviceRepository struct {
	db DBTX
}

// NewPgDeviceRepository creates a new PgDeviceRepository.
func NewPgDeviceRepository(db DBTX) *PgDeviceRepository {
	return &PgDeviceRepository{db: db}
}

const deviceColumns = `id, user_id, user_agent, os, browser, fingerprint, approved, requested_at,
	approved_by, approved_at, os_up_to_date, antivirus_present, disk_encrypted, screen_lock_enabled`

func scanDevice(row pgx.Row) (*domain.Device, error) {
	d := &domain.Device{}
	err := row.Scan(&d.ID, &d.UserID, &d.UserAgent, &d.OS, &d.Browser, &d.Fingerprint,
		&d.Approved, &d.RequestedAt, &d.ApprovedBy, &d.ApprovedAt,
		&d.Posture.OSUpToDate, &d.Posture.AntivirusPresent, &d.Posture.DiskEncrypted, &d.Posture.ScreenLockEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan device: %w", err)
	}
	return d, nil
}

func (r *PgDeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	return scanDevice(r.db.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
}

func (r *PgDeviceRepository) FindByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (*domain.Device, error) {
	return scanDevice(r.db.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = $1 AND fingerprint = $2`, userID, fingerprint))
}

func (r *PgDeviceRepository) List(ctx context.Context) ([]domain.Device, error) {
	return r.query(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY requested_at DESC`)
}

func (r *PgDeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	return r.query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE user_id = $1 ORDER BY requested_at DESC`, userID)
}

func (r *PgDeviceRepository) query(ctx context.Context, sql string, args ...interface{}) ([]domain.Device, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	devices := []domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (r *PgDeviceRepository) Insert(ctx context.Context, d *domain.Device) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.UserID, d.UserAgent, d.OS, d.Browser, d.Fingerprint, d.Approved, d.RequestedAt,
		d.ApprovedBy, d.ApprovedAt,
		d.Posture.OSUpToDate, d.Posture.AntivirusPresent, d.Posture.DiskEncrypted, d.Posture.ScreenLockEnabled,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// Update persists approval state. Posture columns are never rewritten.
func (r *PgDeviceRepository) Update(ctx context.Context, d *domain.Device) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE devices SET approved = $2, approved_by = $3, approved_at = $4
		WHERE id = $1`,
		d.ID, d.Approved, d.ApprovedBy, d.ApprovedAt)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("device", d.ID.String())
	}
	return nil
}

func (r *PgDeviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("device", id.String())
	}
	return nil
}
