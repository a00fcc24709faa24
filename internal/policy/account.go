package policy

import "github.com/zerotrust/platform/internal/domain"

// CheckAccount returns the error that keeps user from signing in, if any.
// This is a blocking policy: only active accounts pass.
func CheckAccount(user *domain.User) error {
	switch user.Status {
	case domain.StatusActive:
		return nil
	case domain.StatusDisabled:
		return domain.ErrAccountDisabled()
	default:
		return domain.ErrAccountUnverified()
	}
}
