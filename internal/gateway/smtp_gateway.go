package gateway

import (
	"context"

	"github.com/wneessen/go-mail"

	"github.com/mailcadence/sequencer/internal/domain"
)

// SMTPConfig holds the settings needed to dial an SMTP relay (spec.md §6).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPGateway is the fallback MailGateway for operators without Gmail API
// access, mirroring the teacher's multi-provider pattern. SMTP has no
// native thread or draft model: SaveDraft is unsupported and HasReplies
// always reports false (spec.md §6).
type SMTPGateway struct {
	cfg SMTPConfig
}

// NewSMTPGateway builds a gateway that dials cfg for every send.
func NewSMTPGateway(cfg SMTPConfig) *SMTPGateway {
	return &SMTPGateway{cfg: cfg}
}

func (g *SMTPGateway) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(g.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(g.cfg.Username),
		mail.WithPassword(g.cfg.Password),
	}
	return mail.NewClient(g.cfg.Host, opts...)
}

// Send transmits msg over SMTP. The returned ThreadID is synthesized from
// the recipient address since SMTP has no native conversation concept;
// callers must not rely on it for reply correlation.
func (g *SMTPGateway) Send(ctx context.Context, msg OutboundMessage) (domain.ThreadID, error) {
	m := mail.NewMsg(mail.WithNoDefaultUserAgent())
	if err := m.From(msg.Sender.String()); err != nil {
		return "", domain.NewGatewayError("smtp: invalid sender", err)
	}
	if err := m.To(msg.Recipient.String()); err != nil {
		return "", domain.NewGatewayError("smtp: invalid recipient", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := g.client()
	if err != nil {
		return "", domain.NewGatewayError("smtp: build client", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", domain.NewGatewayError("smtp: send message", err)
	}
	return domain.ThreadID(msg.Recipient.String()), nil
}

// SaveDraft is unsupported: SMTP has no draft folder to write to.
func (g *SMTPGateway) SaveDraft(ctx context.Context, msg OutboundMessage) (domain.ThreadID, error) {
	return "", domain.NewGatewayError("smtp: save draft", domain.NewValidationError("SMTP gateway does not support drafts; use --draft only with the Gmail gateway"))
}

// HasReplies always reports false: SMTP cannot observe inbound replies.
func (g *SMTPGateway) HasReplies(ctx context.Context, threadID domain.ThreadID, expectedCount int) (bool, error) {
	return false, nil
}
