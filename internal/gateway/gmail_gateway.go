package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/gmail/v1"

	"github.com/mailcadence/sequencer/internal/domain"
)

// GmailGateway is the production MailGateway backed by the Gmail v1 API. It
// maps domain.ThreadID directly onto Gmail's native thread id, so
// hasReplies is a simple message-count comparison (spec.md §6, §4.7).
type GmailGateway struct {
	svc *gmail.Service
}

// NewGmailGateway wraps an already-authenticated Gmail API client.
func NewGmailGateway(svc *gmail.Service) *GmailGateway {
	return &GmailGateway{svc: svc}
}

func buildRawMessage(msg OutboundMessage) (string, error) {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", msg.Sender.String(), msg.Recipient.String(), msg.Subject)
	if msg.InReplyTo != nil {
		headers += fmt.Sprintf("References: %s\r\nIn-Reply-To: %s\r\n", *msg.InReplyTo, *msg.InReplyTo)
	}
	headers += "Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n"
	raw := headers + msg.Body
	return base64.URLEncoding.EncodeToString([]byte(raw)), nil
}

func (g *GmailGateway) send(ctx context.Context, msg OutboundMessage, asDraft bool) (domain.ThreadID, error) {
	raw, err := buildRawMessage(msg)
	if err != nil {
		return "", domain.NewGatewayError("gmail: build message", err)
	}

	gmailMsg := &gmail.Message{Raw: raw}
	if msg.InReplyTo != nil {
		gmailMsg.ThreadId = string(*msg.InReplyTo)
	}

	const user = "me"
	if asDraft {
		draft, err := g.svc.Users.Drafts.Create(user, &gmail.Draft{Message: gmailMsg}).Context(ctx).Do()
		if err != nil {
			return "", domain.NewGatewayError("gmail: save draft", err)
		}
		return domain.ThreadID(draft.Message.ThreadId), nil
	}

	sent, err := g.svc.Users.Messages.Send(user, gmailMsg).Context(ctx).Do()
	if err != nil {
		return "", domain.NewGatewayError("gmail: send message", err)
	}
	return domain.ThreadID(sent.ThreadId), nil
}

// Send transmits msg via Users.Messages.Send.
func (g *GmailGateway) Send(ctx context.Context, msg OutboundMessage) (domain.ThreadID, error) {
	return g.send(ctx, msg, false)
}

// SaveDraft stores msg via Users.Drafts.Create.
func (g *GmailGateway) SaveDraft(ctx context.Context, msg OutboundMessage) (domain.ThreadID, error) {
	return g.send(ctx, msg, true)
}

// HasReplies fetches the thread's message count and compares it to
// expectedCount.
func (g *GmailGateway) HasReplies(ctx context.Context, threadID domain.ThreadID, expectedCount int) (bool, error) {
	thread, err := g.svc.Users.Threads.Get("me", string(threadID)).Format("minimal").Context(ctx).Do()
	if err != nil {
		return false, domain.NewGatewayError("gmail: get thread", err)
	}
	return len(thread.Messages) > expectedCount, nil
}
