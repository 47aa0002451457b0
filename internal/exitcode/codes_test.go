package exitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{Error, "Error"},
		{CircuitOpen, "CircuitOpen"},
		{ResourceExhausted, "ResourceExhausted"},
		{CorruptedState, "CorruptedState"},
		{BatchFailed, "BatchFailed"},
		{Interrupted, "Interrupted"},
		{42, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.code))
	}
}

func TestCodeValues(t *testing.T) {
	// Shell scripts depend on these exact values; they are part of the
	// CLI's contract.
	assert.Equal(t, 0, Success)
	assert.Equal(t, 1, Error)
	assert.Equal(t, 2, CircuitOpen)
	assert.Equal(t, 3, ResourceExhausted)
	assert.Equal(t, 4, CorruptedState)
	assert.Equal(t, 5, BatchFailed)
	assert.Equal(t, 130, Interrupted)
}
