package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMetadata(t *testing.T, followupNumber int, status EmailStatus) *EmailWithMetadata {
	t.Helper()
	var initialID *string
	if followupNumber > 0 {
		id := "email-0"
		initialID = &id
	}
	var failureReason *string
	var sentDate *time.Time
	if status == EmailStatusFailed {
		reason := "bounced"
		failureReason = &reason
	}
	if status == EmailStatusSent {
		now := time.Now()
		sentDate = &now
	}
	m, err := NewEmailMetadata("recipient-1", followupNumber, status, time.Now(), initialID, failureReason, sentDate)
	require.NoError(t, err)
	return &EmailWithMetadata{Metadata: m}
}

func TestClassifySchedulingStatus_NoInitialContact(t *testing.T) {
	status := ClassifySchedulingStatus(false, false, nil, 2)
	assert.Equal(t, SchedulingStatusNoSchedulingRequired, status)
}

func TestClassifySchedulingStatus_HasReplied(t *testing.T) {
	existing := []*EmailWithMetadata{mustMetadata(t, 0, EmailStatusSent)}
	status := ClassifySchedulingStatus(true, true, existing, 2)
	assert.Equal(t, SchedulingStatusNoSchedulingRequired, status)
}

func TestClassifySchedulingStatus_NoEmailsScheduled(t *testing.T) {
	status := ClassifySchedulingStatus(true, false, nil, 2)
	assert.Equal(t, SchedulingStatusNoEmailsScheduled, status)
}

func TestClassifySchedulingStatus_PartialSequence(t *testing.T) {
	existing := []*EmailWithMetadata{mustMetadata(t, 0, EmailStatusSent)}
	status := ClassifySchedulingStatus(true, false, existing, 2)
	assert.Equal(t, SchedulingStatusPartialSequenceScheduled, status)
	assert.Equal(t, 1, NextFollowupNumber(existing))
}

func TestClassifySchedulingStatus_SequenceComplete(t *testing.T) {
	existing := []*EmailWithMetadata{
		mustMetadata(t, 0, EmailStatusSent),
		mustMetadata(t, 1, EmailStatusSent),
		mustMetadata(t, 2, EmailStatusFailed),
	}
	status := ClassifySchedulingStatus(true, false, existing, 2)
	assert.Equal(t, SchedulingStatusSequenceComplete, status)
}

func TestClassifySchedulingStatus_CancelledStepStillOccupiesSlot(t *testing.T) {
	existing := []*EmailWithMetadata{
		mustMetadata(t, 0, EmailStatusSent),
		mustMetadata(t, 1, EmailStatusCancelled),
	}
	status := ClassifySchedulingStatus(true, false, existing, 1)
	assert.Equal(t, SchedulingStatusSequenceComplete, status)
}

func TestHighestScheduledFollowupNumber_Empty(t *testing.T) {
	assert.Equal(t, -1, HighestScheduledFollowupNumber(nil))
}
