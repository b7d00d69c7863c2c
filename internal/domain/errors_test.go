package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrNotFound_Error(t *testing.T) {
	err := &ErrNotFound{Entity: "recipient", ID: "recipient-1"}
	assert.Equal(t, "recipient not found with ID: recipient-1", err.Error())
}

func TestGatewayError_Unwraps(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewGatewayError("sheets: batch get", inner)
	assert.ErrorIs(t, err, inner)
}

func TestPersistenceError_Unwraps(t *testing.T) {
	inner := errors.New("duplicate key")
	err := NewPersistenceError("save email", inner)
	assert.ErrorIs(t, err, inner)
}

func TestSchedulingInvariantError_Message(t *testing.T) {
	err := NewSchedulingInvariantError("follow-up %d requires a thread id", 1)
	assert.Contains(t, err.Error(), "follow-up 1 requires a thread id")
}

func TestNewValidationError_FormatsMessage(t *testing.T) {
	err := NewValidationError("invalid email address: %q", "bad")
	assert.Contains(t, err.Error(), `invalid email address: "bad"`)
}
