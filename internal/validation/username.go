// Package validation contains input validation rules shared by the
// service layer.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// Routable path segments and support handles that profiles must not
// shadow.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"auth":          {},
	"me":            {},
	"profiles":      {},
	"users":         {},
	"usernames":     {},
	"notifications": {},
	"followers":     {},
	"following":     {},
	"settings":      {},
	"login":         {},
	"register":      {},
	"logout":        {},
	"ws":            {},
	"metrics":       {},
	"health":        {},
	"support":       {},
	"irtzalink":     {},
}

// ValidateUsername checks the claimable-username shape and the reserved
// list. The input is expected to be normalized already.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-20 characters and contain only lowercase letters, numbers, and underscores")
	}
	if strings.HasPrefix(username, "_") || strings.HasSuffix(username, "_") {
		return fmt.Errorf("username cannot start or end with an underscore")
	}
	if _, reserved := reservedUsernames[username]; reserved {
		return fmt.Errorf("username %q is reserved", username)
	}
	return nil
}

// ValidatePassword enforces the minimum password rules.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates input beyond 72 bytes.
		return fmt.Errorf("password must be at most 72 characters")
	}
	return nil
}
