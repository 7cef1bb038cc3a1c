package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("player@example.com"))
	assert.True(t, ValidateEmail("first.last+tag@sub.example.co"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("missing@tld"))
	assert.False(t, ValidateEmail("@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("abcdef12"))
	assert.False(t, ValidatePassword("short1"))
	assert.False(t, ValidatePassword("lettersonly"))
	assert.False(t, ValidatePassword("12345678"))
}
