package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsExistingFailure(t *testing.T) {
	orig := Failf("approveItem", "row %d is not pending", 7)
	wrapped := fmt.Errorf("queue: %w", orig)

	err := Wrap("listPendingApprovals", wrapped)
	var f *Failure
	assert.True(t, errors.As(err, &f))
	assert.Equal(t, "approveItem", f.Op)
	assert.Equal(t, "row 7 is not pending", f.Message)
}

func TestWrap_PlainError(t *testing.T) {
	err := Wrap("readRecords", errors.New("connection refused"))
	assert.True(t, IsFailure(err))
	assert.Equal(t, "connection refused", Message(err))
	assert.Nil(t, Wrap("readRecords", nil))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "Calendar failed", Message(fmt.Errorf("step 1: %w", &Failure{Op: "generateCalendar", Message: "Calendar failed"})))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap("updateRecord", fmt.Errorf("Config row 4: %w", cause))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Config row 4: row not found", Message(err))
}
