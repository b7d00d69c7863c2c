package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEmailAddress(t *testing.T, raw string) EmailAddress {
	t.Helper()
	a, err := NewEmailAddress(raw)
	require.NoError(t, err)
	return a
}

func TestNewEmail(t *testing.T) {
	sender := mustEmailAddress(t, "sales@mailcadence.test")
	recipient := mustEmailAddress(t, "lead@example.com")

	t.Run("valid", func(t *testing.T) {
		e, err := NewEmail("email-1", sender, recipient, "Hello", "Body text", TemplateTypeInitial)
		require.NoError(t, err)
		assert.Equal(t, "email-1", e.ID)
	})

	t.Run("blank subject rejected", func(t *testing.T) {
		_, err := NewEmail("email-1", sender, recipient, "  ", "Body", TemplateTypeInitial)
		assert.Error(t, err)
	})

	t.Run("blank body rejected", func(t *testing.T) {
		_, err := NewEmail("email-1", sender, recipient, "Hello", "  ", TemplateTypeInitial)
		assert.Error(t, err)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		_, err := NewEmail("email-1", sender, recipient, "Hello", "Body", TemplateType("BOGUS"))
		assert.Error(t, err)
	})
}

func TestNewEmailMetadata_StatusFailedRequiresReason(t *testing.T) {
	_, err := NewEmailMetadata("recipient-1", 0, EmailStatusFailed, time.Now(), nil, nil, nil)
	require.Error(t, err)

	blank := "   "
	_, err = NewEmailMetadata("recipient-1", 0, EmailStatusFailed, time.Now(), nil, &blank, nil)
	require.Error(t, err)

	reason := "bounced"
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusFailed, time.Now(), nil, &reason, nil)
	require.NoError(t, err)
	assert.Equal(t, "bounced", *m.FailureReason)
}

func TestNewEmailMetadata_StatusSentRequiresSentDate(t *testing.T) {
	_, err := NewEmailMetadata("recipient-1", 0, EmailStatusSent, time.Now(), nil, nil, nil)
	require.Error(t, err)

	sentAt := time.Now()
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusSent, time.Now(), nil, nil, &sentAt)
	require.NoError(t, err)
	assert.NotNil(t, m.SentDate)
}

func TestNewEmailMetadata_FollowupRequiresInitialEmailID(t *testing.T) {
	_, err := NewEmailMetadata("recipient-1", 1, EmailStatusPending, time.Now(), nil, nil, nil)
	require.Error(t, err)

	blank := ""
	_, err = NewEmailMetadata("recipient-1", 1, EmailStatusPending, time.Now(), &blank, nil, nil)
	require.Error(t, err)

	initialID := "email-0"
	m, err := NewEmailMetadata("recipient-1", 1, EmailStatusPending, time.Now(), &initialID, nil, nil)
	require.NoError(t, err)
	assert.False(t, m.IsInitial())
}

func TestNewEmailMetadata_InitialMayOmitSelfLinkUntilSecondSave(t *testing.T) {
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, m.IsInitial())
	assert.Nil(t, m.InitialEmailID)

	linked := m.WithSelfInitialLink("email-0")
	require.NotNil(t, linked.InitialEmailID)
	assert.Equal(t, "email-0", *linked.InitialEmailID)
}

func TestNewEmailMetadata_BlankFailureReasonNormalizedToNil(t *testing.T) {
	blank := "   "
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusPending, time.Now(), nil, &blank, nil)
	require.NoError(t, err)
	assert.Nil(t, m.FailureReason)
}

func TestNewEmailMetadata_NegativeFollowupRejected(t *testing.T) {
	_, err := NewEmailMetadata("recipient-1", -1, EmailStatusPending, time.Now(), nil, nil, nil)
	assert.Error(t, err)
}

func TestEmailMetadata_RescheduleOnlyWhilePending(t *testing.T) {
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	rescheduled, err := m.Reschedule(time.Now().Add(24 * time.Hour))
	require.NoError(t, err)
	assert.True(t, rescheduled.ScheduledDate.After(m.ScheduledDate))

	sentAt := time.Now()
	sent, err := m.MarkSent(sentAt)
	require.NoError(t, err)
	_, err = sent.Reschedule(time.Now())
	assert.Error(t, err)
}

func TestEmailMetadata_MarkSentFromPendingOnly(t *testing.T) {
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	sent, err := m.MarkSent(time.Now())
	require.NoError(t, err)
	assert.Equal(t, EmailStatusSent, sent.Status)
	assert.Nil(t, sent.FailureReason)

	_, err = sent.MarkSent(time.Now())
	assert.Error(t, err)
}

func TestEmailMetadata_MarkFailedRequiresReasonAndPending(t *testing.T) {
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	_, err = m.MarkFailed("  ")
	assert.Error(t, err)

	failed, err := m.MarkFailed("bounced")
	require.NoError(t, err)
	assert.Equal(t, EmailStatusFailed, failed.Status)

	_, err = failed.MarkFailed("bounced again")
	assert.Error(t, err)
}

func TestEmailMetadata_MarkCancelledFromPendingOnly(t *testing.T) {
	m, err := NewEmailMetadata("recipient-1", 0, EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	cancelled, err := m.MarkCancelled()
	require.NoError(t, err)
	assert.Equal(t, EmailStatusCancelled, cancelled.Status)

	_, err = cancelled.MarkCancelled()
	assert.Error(t, err)
}

func TestParseExternalStatus(t *testing.T) {
	cases := []struct {
		raw     string
		want    EmailStatus
		wantErr bool
	}{
		{"Offen", EmailStatusPending, false},
		{"Gesendet", EmailStatusSent, false},
		{"Nicht erforderlich", EmailStatusCancelled, false},
		{"Failed", EmailStatusFailed, false},
		{"", EmailStatusFailed, true},
		{"unbekannt", EmailStatusFailed, true},
	}
	for _, c := range cases {
		got, err := ParseExternalStatus(c.raw)
		assert.Equal(t, c.want, got)
		if c.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}
