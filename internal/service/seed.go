package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/repository"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "Admin@1234"

// DemoUsers are created by SeedDemoUsers, one per role.
var DemoUsers = []domain.User{
	{FullName: "Super Admin", Email: "superadmin@demo.com", Mobile: "+15550000001", Role: domain.RoleSuperAdmin},
	{FullName: "Admin User", Email: "admin@demo.com", Mobile: "+15550000002", Role: domain.RoleAdmin},
	{FullName: "IT Operator", Email: "it@demo.com", Mobile: "+15550000003", Role: domain.RoleIT},
	{FullName: "Demo User", Email: "user@demo.com", Mobile: "+15550000004", Role: domain.RoleUser},
}

// SeedDemoUsers creates any missing demo account. Existing accounts are left alone.
func SeedDemoUsers(ctx context.Context, users repository.UserRepository, logger *slog.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for _, demo := range DemoUsers {
		existing, err := users.FindByEmail(ctx, demo.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		u := demo
		u.ID = uuid.New()
		u.PasswordHash = string(hash)
		u.Status = domain.StatusActive
		if err := users.Create(ctx, &u); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		logger.Info("seeded demo user", "email", u.Email, "role", u.Role)
	}
	return nil
}
