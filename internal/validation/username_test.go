package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"amira", "user_42", "abc", "a2345678901234567890"}
	for _, username := range valid {
		assert.NoError(t, ValidateUsername(username), username)
	}

	invalid := []string{
		"",
		"ab",
		"has space",
		"UPPER",
		"way_too_long_for_the_limit",
		"_leading",
		"trailing_",
		"admin",
		"me",
		"api",
	}
	for _, username := range invalid {
		assert.Error(t, ValidateUsername(username), username)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(string(make([]byte, 80))))
	assert.NoError(t, ValidatePassword("long enough"))
}
