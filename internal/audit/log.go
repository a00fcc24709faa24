// Package audit records security events to the append-only audit log.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

// Log is the audit sink. Writes never fail the calling operation.
type Log struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	retain int
	now    func() time.Time
}

// NewLog creates an audit sink keeping the most recent domain.AuditRetention entries.
func NewLog(repo repository.AuditRepository, logger *slog.Logger) *Log {
	return &Log{repo: repo, logger: logger, retain: domain.AuditRetention, now: time.Now}
}

// Record appends drafts in order, assigning each an id and timestamp.
func (l *Log) Record(ctx context.Context, drafts ...domain.AuditDraft) []domain.AuditEntry {
	entries := make([]domain.AuditEntry, 0, len(drafts))
	for _, d := range drafts {
		e := domain.AuditEntry{
			ID:         uuid.New(),
			Timestamp:  l.now().UTC(),
			AuditDraft: d,
		}
		if err := l.repo.Append(ctx, &e, l.retain); err != nil {
			l.logger.Error("audit append failed",
				"action", d.Action,
				"user_id", d.UserID,
				"error", err,
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// List returns up to limit entries, newest first.
func (l *Log) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	entries, err := l.repo.List(ctx, limit)
	if err != nil {
		return nil, domain.ErrInternal("audit list failed", err)
	}
	return entries, nil
}
