// Package testutil provides test doubles and assertions shared by the bridge's tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/modanna/ShaderConductor/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StatsReporter is anything that reports live allocations, such as a scratch heap.
type StatsReporter interface {
	Stats() (allocations int, totalBytes int)
}

// AssertNoLeaks asserts that no buffers are outstanding.
func AssertNoLeaks(t *testing.T, heap StatsReporter, msgAndArgs ...interface{}) {
	t.Helper()
	allocations, totalBytes := heap.Stats()
	assert.Zero(t, allocations, msgAndArgs...)
	assert.Zero(t, totalBytes, msgAndArgs...)
}

// AssertLive asserts the number of outstanding buffers.
func AssertLive(t *testing.T, heap StatsReporter, want int, msgAndArgs ...interface{}) {
	t.Helper()
	allocations, _ := heap.Stats()
	assert.Equal(t, want, allocations, msgAndArgs...)
}

// RequireOk requires a successful outcome and returns its payload.
func RequireOk(t *testing.T, o entities.Outcome) []byte {
	t.Helper()
	require.False(t, o.Failed(), "unexpected failure: %s", o.Diagnostic)
	return o.Payload
}

// RequireErr requires a failed outcome with an empty payload and returns its
// diagnostic.
func RequireErr(t *testing.T, o entities.Outcome) string {
	t.Helper()
	require.True(t, o.Failed(), "expected failure, got %d byte payload", len(o.Payload))
	assert.Empty(t, o.Payload)
	return o.Diagnostic
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
