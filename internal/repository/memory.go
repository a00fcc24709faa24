package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zerotrust/platform/internal/domain"
)

// In-memory implementations back the demo profile and the service tests.
// Each store hands out copies so callers never share state with the map.

// MemoryUserRepository keeps users in a map keyed by id.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

// NewMemoryUserRepository creates an empty user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]domain.User)}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrUserNotFound(u.ID.String())
	}
	for id, existing := range r.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.UpdatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound(id.String())
	}
	delete(r.users, id)
	return nil
}

// MemoryDeviceRepository keeps devices in a map keyed by id.
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[uuid.UUID]domain.Device
}

// NewMemoryDeviceRepository creates an empty device store.
func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{devices: make(map[uuid.UUID]domain.Device)}
}

func (r *MemoryDeviceRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *MemoryDeviceRepository) FindByFingerprint(_ context.Context, userID uuid.UUID, fingerprint string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.UserID == userID && d.Fingerprint == fingerprint {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *MemoryDeviceRepository) List(_ context.Context) ([]domain.Device, error) {
	return r.filter(func(domain.Device) bool { return true }), nil
}

func (r *MemoryDeviceRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Device, error) {
	return r.filter(func(d domain.Device) bool { return d.UserID == userID }), nil
}

func (r *MemoryDeviceRepository) filter(keep func(domain.Device) bool) []domain.Device {
	r.mu.RLock()
	out := make([]domain.Device, 0, len(r.devices))
	for _, d := range r.devices {
		if keep(d) {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

func (r *MemoryDeviceRepository) Insert(_ context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.devices {
		if existing.UserID == d.UserID && existing.Fingerprint == d.Fingerprint {
			return ErrDuplicate
		}
	}
	r.devices[d.ID] = *d
	return nil
}

func (r *MemoryDeviceRepository) Update(_ context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[d.ID]; !ok {
		return domain.ErrNotFound("device", d.ID.String())
	}
	r.devices[d.ID] = *d
	return nil
}

func (r *MemoryDeviceRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[id]; !ok {
		return domain.ErrNotFound("device", id.String())
	}
	delete(r.devices, id)
	return nil
}

type otpKey struct {
	userID  uuid.UUID
	purpose domain.OTPPurpose
}

// MemoryOTPRepository keeps one record per (user, purpose).
type MemoryOTPRepository struct {
	mu      sync.Mutex
	records map[otpKey]domain.OTPRecord
}

// NewMemoryOTPRepository creates an empty OTP store.
func NewMemoryOTPRepository() *MemoryOTPRepository {
	return &MemoryOTPRepository{records: make(map[otpKey]domain.OTPRecord)}
}

func (r *MemoryOTPRepository) Get(_ context.Context, userID uuid.UUID, purpose domain.OTPPurpose) (*domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[otpKey{userID, purpose}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryOTPRepository) Put(_ context.Context, rec *domain.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[otpKey{rec.UserID, rec.Purpose}] = *rec
	return nil
}

func (r *MemoryOTPRepository) Delete(_ context.Context, userID uuid.UUID, purpose domain.OTPPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, otpKey{userID, purpose})
	return nil
}

// MemoryAuditRepository is a bounded ring of audit entries, oldest first.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewMemoryAuditRepository creates an empty audit log.
func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Append(_ context.Context, e *domain.AuditEntry, retain int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	if retain > 0 && len(r.entries) > retain {
		drop := len(r.entries) - retain
		r.entries = append(r.entries[:0:0], r.entries[drop:]...)
	}
	return nil
}

func (r *MemoryAuditRepository) List(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.AuditEntry, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

// MemorySessionRepository keeps sessions until they expire or are deleted.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[uuid.UUID]domain.Session), now: time.Now}
}

func (r *MemorySessionRepository) Put(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	if !s.ExpiresAt.IsZero() && r.now().After(s.ExpiresAt) {
		delete(r.sessions, id)
		return nil, nil
	}
	return &s, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}
