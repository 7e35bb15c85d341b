package services

import (
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

const (
	minPasswordLength = 8
	// shorter local parts ("a@x.com") would forbid single letters
	minUsernameCheckLength = 3
)

// validatePassword enforces the password rules: a minimum length, and no
// copy of the email's local part inside the password.
func validatePassword(password, email string) error {
	if len(password) < minPasswordLength {
		return common.NewValidationError("password", "password must be at least 8 characters")
	}
	local, _, _ := strings.Cut(normalizeEmail(email), "@")
	if len(local) >= minUsernameCheckLength && strings.Contains(strings.ToLower(password), local) {
		return common.NewValidationError("password", "password must not contain the username")
	}
	return nil
}
