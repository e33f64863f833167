package util

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

// AssertDomainCode asserts that err is a DomainError with the given code.
func AssertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	de := ToDomainError(err)
	require.NotNil(t, de, "expected error, got nil")
	assert.Equal(t, code, de.Code, "unexpected domain error code for %v", err)
}
