package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	mobileRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateMobile checks an E.164-ish phone number. Spaces and dashes are ignored.
func ValidateMobile(mobile string) error {
	if mobile == "" {
		return fmt.Errorf("mobile is required")
	}
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(mobile)
	if !mobileRegex.MatchString(cleaned) {
		return fmt.Errorf("invalid mobile format")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
