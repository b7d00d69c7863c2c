package gateway

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcadence/sequencer/internal/domain"
)

func TestBuildRawMessage_IncludesThreadingHeadersWhenReplying(t *testing.T) {
	sender, err := domain.NewEmailAddress("sales@mailcadence.test")
	require.NoError(t, err)
	recipient, err := domain.NewEmailAddress("lead@example.com")
	require.NoError(t, err)

	thread := domain.ThreadID("thread-123")
	raw, err := buildRawMessage(OutboundMessage{
		Sender: sender, Recipient: recipient, Subject: "Hi", Body: "Body text", InReplyTo: &thread,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	decodedBytes, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decodedBytes), "In-Reply-To: thread-123")
}

func TestBuildRawMessage_NoThreadingHeadersOnInitialSend(t *testing.T) {
	sender, err := domain.NewEmailAddress("sales@mailcadence.test")
	require.NoError(t, err)
	recipient, err := domain.NewEmailAddress("lead@example.com")
	require.NoError(t, err)

	raw, err := buildRawMessage(OutboundMessage{Sender: sender, Recipient: recipient, Subject: "Hi", Body: "Body text"})
	require.NoError(t, err)

	decodedBytes, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(decodedBytes), "In-Reply-To"))
}
