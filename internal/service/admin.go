package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerotrust/platform/internal/audit"
	"github.com/zerotrust/platform/internal/device"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
	"github.com/zerotrust/platform/internal/signal"
)

// Actor is the privileged caller of an admin operation.
type Actor struct {
	UserID uuid.UUID
	Email  string
	IP     string
}

// AdminService implements user, device, and audit administration.
type AdminService struct {
	users     repository.UserRepository
	devices   *device.Registry
	audit     *audit.Log
	collector *signal.Collector
	logger    *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	users repository.UserRepository,
	devices *device.Registry,
	auditLog *audit.Log,
	collector *signal.Collector,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:     users,
		devices:   devices,
		audit:     auditLog,
		collector: collector,
		logger:    logger,
	}
}

// CreateUserInput holds the fields of an admin-created account.
type CreateUserInput struct {
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Mobile   string      `json:"mobile"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// ListUsers returns all accounts.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list users", err)
	}
	return users, nil
}

// CreateUser creates an active account with any role.
func (s *AdminService) CreateUser(ctx context.Context, actor Actor, input CreateUserInput) (*domain.User, error) {
	input.Email = domain.NormalizeEmail(input.Email)
	if strings.TrimSpace(input.FullName) == "" {
		return nil, domain.ErrValidation("full name is required")
	}
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if input.Mobile != "" {
		if err := domain.ValidateMobile(input.Mobile); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if input.Role == "" {
		input.Role = domain.RoleUser
	}
	if !input.Role.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown role %q", input.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(input.FullName),
		Email:        input.Email,
		Mobile:       input.Mobile,
		PasswordHash: string(hash),
		Role:         input.Role,
		Status:       domain.StatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrEmailAlreadyRegistered()
		}
		return nil, domain.ErrInternal("create user", err)
	}

	s.record(ctx, actor, domain.ActionUserCreated,
		fmt.Sprintf("Created user: %s with role %s", user.Email, user.Role))
	return user, nil
}

// UpdateUser applies a partial update.
func (s *AdminService) UpdateUser(ctx context.Context, actor Actor, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	if patch.Email != nil {
		if err := domain.ValidateEmail(domain.NormalizeEmail(*patch.Email)); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}
	if patch.Mobile != nil && *patch.Mobile != "" {
		if err := domain.ValidateMobile(*patch.Mobile); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown role %q", *patch.Role))
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown status %q", *patch.Status))
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(user)
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.record(ctx, actor, domain.ActionUserUpdated, "Updated user: "+user.Email)
	return user, nil
}

// ChangeRole sets the role of a user.
func (s *AdminService) ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown role %q", role))
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.record(ctx, actor, domain.ActionRoleChanged, fmt.Sprintf("Role changed for %s to %s", user.Email, role))
	return user, nil
}

// ToggleStatus flips active and disabled. A pending account becomes active.
func (s *AdminService) ToggleStatus(ctx context.Context, actor Actor, id uuid.UUID) (*domain.User, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == domain.StatusActive {
		user.Status = domain.StatusDisabled
	} else {
		user.Status = domain.StatusActive
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.record(ctx, actor, domain.ActionUserStatusChanged, fmt.Sprintf("User %s %s", user.Email, user.Status))
	return user, nil
}

// DeleteUser removes an account and its devices.
func (s *AdminService) DeleteUser(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.UserID == id {
		return domain.ErrValidation("cannot delete your own account")
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	devices, err := s.devices.ListByUser(ctx, id)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if _, err := s.devices.Deny(ctx, d.ID); err != nil && !domain.HasCode(err, domain.CodeNotFound) {
			return err
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if domain.HasCode(err, domain.CodeUserNotFound) {
			return err
		}
		return domain.ErrInternal("delete user", err)
	}

	s.record(ctx, actor, domain.ActionUserDeleted, "Deleted user: "+user.Email)
	return nil
}

// ListDevices returns every registered device.
func (s *AdminService) ListDevices(ctx context.Context) ([]domain.Device, error) {
	return s.devices.List(ctx)
}

// ApproveDevice approves a device on behalf of actor.
func (s *AdminService) ApproveDevice(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Device, error) {
	d, err := s.devices.Approve(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, domain.ActionDeviceApproved, fmt.Sprintf("Device %s approved", id))
	return d, nil
}

// DenyDevice removes a device.
func (s *AdminService) DenyDevice(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.devices.Deny(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, domain.ActionDeviceDenied, fmt.Sprintf("Device %s denied and removed", id))
	return nil
}

// ListAudit returns up to limit audit entries, newest first.
func (s *AdminService) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.audit.List(ctx, limit)
}

func (s *AdminService) findUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound(id.String())
	}
	return user, nil
}

func (s *AdminService) save(ctx context.Context, user *domain.User) error {
	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.ErrEmailAlreadyRegistered()
		case domain.HasCode(err, domain.CodeUserNotFound):
			return err
		}
		return domain.ErrInternal("update user", err)
	}
	return nil
}

func (s *AdminService) record(ctx context.Context, actor Actor, action domain.AuditAction, details string) {
	origin := s.collector.Origin(ctx, actor.IP)
	s.audit.Record(ctx, domain.AuditDraft{
		UserID:    actor.UserID,
		UserEmail: actor.Email,
		Action:    action,
		Details:   details,
		Outcome:   domain.OutcomeSuccess,
	}.WithOrigin(origin))
	s.logger.Info("admin action", "actor_id", actor.UserID, "action", action)
}
