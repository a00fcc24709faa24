// Package device tracks the browsers each user has signed in from.
package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/signal"
)

// Registry resolves, approves, and denies devices.
type Registry struct {
	repo    repository.DeviceRepository
	posture signal.PostureSource
	now     func() time.Time
}

// NewRegistry creates a Registry. posture is sampled once per new device.
func NewRegistry(repo repository.DeviceRepository, posture signal.PostureSource) *Registry {
	return &Registry{repo: repo, posture: posture, now: time.Now}
}

// Resolve returns the device for (userID, fingerprint), creating an unapproved
// one on first sight. created reports whether this call inserted it. A
// concurrent insert of the same key resolves to the stored row.
func (r *Registry) Resolve(ctx context.Context, userID uuid.UUID, fingerprint, userAgent string) (*domain.Device, bool, error) {
	if fingerprint == "" {
		return nil, false, domain.ErrValidation("device fingerprint is required")
	}

	existing, err := r.repo.FindByFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return nil, false, domain.ErrInternal("device lookup failed", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	d := &domain.Device{
		ID:          uuid.New(),
		UserID:      userID,
		UserAgent:   userAgent,
		OS:          signal.DetectOS(userAgent),
		Browser:     signal.DetectBrowser(userAgent),
		Fingerprint: fingerprint,
		Approved:    false,
		RequestedAt: r.now().UTC(),
		Posture:     r.posture.Sample(),
	}
	err = r.repo.Insert(ctx, d)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, err = r.repo.FindByFingerprint(ctx, userID, fingerprint)
		if err != nil || existing == nil {
			return nil, false, domain.ErrInternal("device lookup after conflict failed", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, domain.ErrInternal("device insert failed", err)
	}
	return d, true, nil
}

// Get returns a device by id.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	d, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("device lookup failed", err)
	}
	if d == nil {
		return nil, domain.ErrNotFound("device", id.String())
	}
	return d, nil
}

// Approve marks the device approved by approverID. Approving twice keeps the
// first approver.
func (r *Registry) Approve(ctx context.Context, id, approverID uuid.UUID) (*domain.Device, error) {
	d, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Approved {
		return d, nil
	}

	at := r.now().UTC()
	d.Approved = true
	d.ApprovedBy = &approverID
	d.ApprovedAt = &at
	if err := r.repo.Update(ctx, d); err != nil {
		return nil, domain.ErrInternal("device update failed", err)
	}
	return d, nil
}

// Deny removes the device. The next sign-in from it registers a new,
// unapproved device.
func (r *Registry) Deny(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	d, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		if domain.HasCode(err, domain.CodeNotFound) {
			return nil, err
		}
		return nil, domain.ErrInternal("device delete failed", err)
	}
	return d, nil
}

// List returns every device, newest request first.
func (r *Registry) List(ctx context.Context) ([]domain.Device, error) {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("device list failed", err)
	}
	return devices, nil
}

// ListByUser returns the devices of one user.
func (r *Registry) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	devices, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("device list failed", err)
	}
	return devices, nil
}
