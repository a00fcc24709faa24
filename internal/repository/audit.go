package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zerotrust/platform/internal/domain"
)

// PgAuditRepository implements AuditRepository on the audit_log table.
// Rows carry a published_at column consumed by the audit relay.
type PgAuditRepository struct {
	db DBTX
}

// NewPgAuditRepository creates a new PgAuditRepository.
func NewPgAuditRepository(db DBTX) *PgAuditRepository {
	return &PgAuditRepository{db: db}
}

// PendingAudit is an audit row not yet relayed to the event bus.
type PendingAudit struct {
	Seq   int64
	Entry domain.AuditEntry
}

const auditColumns = `id, occurred_at, user_id, user_email, action, details, risk_score, ip, location, outcome`

func scanAudit(row pgx.Row, extra ...interface{}) (domain.AuditEntry, error) {
	var e domain.AuditEntry
	var userID *uuid.UUID
	dest := append(extra, &e.ID, &e.Timestamp, &userID, &e.UserEmail, &e.Action, &e.Details,
		&e.RiskScore, &e.IP, &e.Location, &e.Outcome)
	if err := row.Scan(dest...); err != nil {
		return e, fmt.Errorf("scan audit entry: %w", err)
	}
	if userID != nil {
		e.UserID = *userID
	}
	return e, nil
}

// Append inserts the entry and trims rows beyond retain, oldest first.
func (r *PgAuditRepository) Append(ctx context.Context, e *domain.AuditEntry, retain int) error {
	var userID *uuid.UUID
	if e.UserID != uuid.Nil {
		userID = &e.UserID
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Timestamp, userID, e.UserEmail, string(e.Action), e.Details,
		e.RiskScore, e.IP, e.Location, string(e.Outcome))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if retain > 0 {
		_, err = r.db.Exec(ctx, `
			DELETE FROM audit_log
			WHERE seq <= (SELECT seq FROM audit_log ORDER BY seq DESC OFFSET $1 LIMIT 1)`, retain)
		if err != nil {
			return fmt.Errorf("trim audit log: %w", err)
		}
	}
	return nil
}

func (r *PgAuditRepository) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	sql := `SELECT ` + auditColumns + ` FROM audit_log ORDER BY seq DESC`
	args := []interface{}{}
	if limit > 0 {
		sql += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FetchUnpublished returns audit rows the relay has not published yet, oldest first.
func (r *PgAuditRepository) FetchUnpublished(ctx context.Context, limit int) ([]PendingAudit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT seq, `+auditColumns+`
		FROM audit_log
		WHERE published_at IS NULL
		ORDER BY seq ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished audit: %w", err)
	}
	defer rows.Close()

	var pending []PendingAudit
	for rows.Next() {
		var p PendingAudit
		e, err := scanAudit(rows, &p.Seq)
		if err != nil {
			return nil, err
		}
		p.Entry = e
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkPublished stamps published_at on the given rows.
func (r *PgAuditRepository) MarkPublished(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE audit_log SET published_at = now() WHERE seq = ANY($1)`, seqs)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
