package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("alice@example.com"))
	require.NoError(t, ValidateEmail("a.b+tag@sub.example.co"))

	for _, email := range []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"spaces in@example.com",
		"missing-tld@example",
		strings.Repeat("a", 250) + "@example.com",
	} {
		require.Error(t, ValidateEmail(email), "email %q", email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	require.Equal(t, "bob@example.com", NormalizeEmail("bob@example.com"))
}
