package gateway

import (
	"context"

	"github.com/mailcadence/sequencer/internal/domain"
)

// OutboundMessage is the fully-resolved message ready for transport.
type OutboundMessage struct {
	Sender    domain.EmailAddress
	Recipient domain.EmailAddress
	Subject   string
	Body      string
	// InReplyTo, when non-nil, threads the message under an existing
	// conversation (spec.md §4.7).
	InReplyTo *domain.ThreadID
}

// MailGateway abstracts sending, drafting, and reply detection across mail
// providers (spec.md §6). A provider without a native thread/draft model
// (SMTP) implements saveDraft/hasReplies as documented no-ops or errors.
type MailGateway interface {
	// Send transmits msg and returns the transport's thread id for the
	// conversation it belongs to (new or existing).
	Send(ctx context.Context, msg OutboundMessage) (domain.ThreadID, error)
	// SaveDraft stores msg as a draft instead of sending it, used by the
	// dispatcher's --draft mode (spec.md §4.7).
	SaveDraft(ctx context.Context, msg OutboundMessage) (domain.ThreadID, error)
	// HasReplies reports whether the named thread holds more than
	// expectedCount messages, i.e. the recipient has replied. Fail-closed
	// semantics are the caller's responsibility on error/timeout (spec.md
	// §4.7, §9 Open Question #2).
	HasReplies(ctx context.Context, threadID domain.ThreadID, expectedCount int) (bool, error)
}
