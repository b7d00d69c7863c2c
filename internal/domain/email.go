package domain

import (
	"context"
	"strings"
	"time"
)

//go:generate mockgen -destination mocks/mock_email_repository.go -package mocks github.com/mailcadence/sequencer/internal/domain EmailRepository

// EmailStatus is the terminal-state machine of an Email (spec.md §4.9).
// PENDING -> {SENT, FAILED, CANCELLED}; the latter three are terminal.
type EmailStatus string

const (
	EmailStatusPending   EmailStatus = "PENDING"
	EmailStatusSent      EmailStatus = "SENT"
	EmailStatusFailed    EmailStatus = "FAILED"
	EmailStatusCancelled EmailStatus = "CANCELLED"
)

func (s EmailStatus) Validate() error {
	switch s {
	case EmailStatusPending, EmailStatusSent, EmailStatusFailed, EmailStatusCancelled:
		return nil
	}
	return NewValidationError("invalid email status: %q", s)
}

// externalStatusStrings is the closed, German-language status vocabulary
// used by the external-history spreadsheet (spec.md §4.8). The locale is
// frozen; any other string is a ValidationError, never a panic or a silent
// drop.
var externalStatusStrings = map[string]EmailStatus{
	"Offen":              EmailStatusPending,
	"Gesendet":           EmailStatusSent,
	"Nicht erforderlich": EmailStatusCancelled,
	"Failed":             EmailStatusFailed,
}

// ParseExternalStatus maps one external-history status cell to an
// EmailStatus. An unrecognized or blank string is reported as FAILED per
// the table in spec.md §4.8, wrapped in a ValidationError so the caller can
// log the row as a warning rather than ingest it silently.
func ParseExternalStatus(raw string) (EmailStatus, error) {
	if status, ok := externalStatusStrings[strings.TrimSpace(raw)]; ok {
		return status, nil
	}
	return EmailStatusFailed, NewValidationError("unrecognized external status %q, treating as FAILED", raw)
}

// Email is the message entity: sender, recipient, rendered subject/body,
// and a type tag (spec.md §3).
type Email struct {
	ID        string
	Sender    EmailAddress
	Recipient EmailAddress
	Subject   string
	Body      string
	Type      TemplateType
}

// NewEmail constructs and validates an Email. Subject and body must already
// be fully resolved (no placeholders) by the time an Email is built.
func NewEmail(id string, sender, recipient EmailAddress, subject, body string, typ TemplateType) (*Email, error) {
	if id == "" {
		return nil, NewValidationError("email id is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, NewValidationError("email subject must be non-empty")
	}
	if strings.TrimSpace(body) == "" {
		return nil, NewValidationError("email body must be non-empty")
	}
	if err := typ.Validate(); err != nil {
		return nil, err
	}
	return &Email{ID: id, Sender: sender, Recipient: recipient, Subject: subject, Body: body, Type: typ}, nil
}

// EmailMetadata is the immutable-by-default companion record carrying
// scheduling/delivery state (spec.md §3). Invariants are enforced at
// construction and by the mutator methods below — never by code that
// bypasses them.
type EmailMetadata struct {
	InitialEmailID  *string // nil only before the initial email's first self-link save (spec.md §9)
	RecipientID     string
	FollowupNumber  int
	Status          EmailStatus
	FailureReason   *string
	ScheduledDate   time.Time
	SentDate        *time.Time
}

// NewEmailMetadata validates and constructs EmailMetadata. A blank failure
// reason is normalized to nil.
func NewEmailMetadata(recipientID string, followupNumber int, status EmailStatus, scheduledDate time.Time, initialEmailID *string, failureReason *string, sentDate *time.Time) (EmailMetadata, error) {
	if recipientID == "" {
		return EmailMetadata{}, NewValidationError("email metadata requires a recipient id")
	}
	if followupNumber < 0 {
		return EmailMetadata{}, NewValidationError("followup number must be >= 0, got %d", followupNumber)
	}
	if err := status.Validate(); err != nil {
		return EmailMetadata{}, err
	}

	if failureReason != nil && strings.TrimSpace(*failureReason) == "" {
		failureReason = nil
	}

	if status == EmailStatusFailed && (failureReason == nil || *failureReason == "") {
		return EmailMetadata{}, NewValidationError("status FAILED requires a non-blank failure reason")
	}
	if status == EmailStatusSent && sentDate == nil {
		return EmailMetadata{}, NewValidationError("status SENT requires a sent date")
	}
	if followupNumber == 0 && initialEmailID == nil {
		// Self-reference is established on the second save (spec.md §9);
		// a freshly constructed initial email's metadata may still be nil
		// here, the repository fills it in on the follow-up save.
	}
	if followupNumber > 0 && (initialEmailID == nil || *initialEmailID == "") {
		return EmailMetadata{}, NewValidationError("follow-up email (followupNumber=%d) requires an initial email id", followupNumber)
	}

	return EmailMetadata{
		InitialEmailID: initialEmailID,
		RecipientID:    recipientID,
		FollowupNumber: followupNumber,
		Status:         status,
		FailureReason:  failureReason,
		ScheduledDate:  scheduledDate,
		SentDate:       sentDate,
	}, nil
}

// IsInitial reports whether this metadata belongs to an initial email.
func (m EmailMetadata) IsInitial() bool { return m.FollowupNumber == 0 }

// WithSelfInitialLink returns a copy with InitialEmailID set to selfID. Used
// on an initial email's second save (spec.md §4.5, §9).
func (m EmailMetadata) WithSelfInitialLink(selfID string) EmailMetadata {
	id := selfID
	m.InitialEmailID = &id
	return m
}

// Reschedule returns a copy with a new scheduled date. Only valid while
// PENDING (spec.md §3, §4.9).
func (m EmailMetadata) Reschedule(newDate time.Time) (EmailMetadata, error) {
	if m.Status != EmailStatusPending {
		return EmailMetadata{}, NewValidationError("cannot reschedule email in status %s: only PENDING may be rescheduled", m.Status)
	}
	m.ScheduledDate = newDate
	return m, nil
}

// MarkSent returns a copy transitioned to SENT with the given sent date.
func (m EmailMetadata) MarkSent(sentDate time.Time) (EmailMetadata, error) {
	if m.Status != EmailStatusPending {
		return EmailMetadata{}, NewValidationError("cannot mark SENT from status %s", m.Status)
	}
	m.Status = EmailStatusSent
	m.SentDate = &sentDate
	m.FailureReason = nil
	return m, nil
}

// MarkFailed returns a copy transitioned to FAILED with the given reason.
func (m EmailMetadata) MarkFailed(reason string) (EmailMetadata, error) {
	if m.Status != EmailStatusPending {
		return EmailMetadata{}, NewValidationError("cannot mark FAILED from status %s", m.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return EmailMetadata{}, NewValidationError("FAILED requires a non-blank failure reason")
	}
	m.Status = EmailStatusFailed
	m.FailureReason = &reason
	return m, nil
}

// MarkCancelled returns a copy transitioned to CANCELLED.
func (m EmailMetadata) MarkCancelled() (EmailMetadata, error) {
	if m.Status != EmailStatusPending {
		return EmailMetadata{}, NewValidationError("cannot mark CANCELLED from status %s", m.Status)
	}
	m.Status = EmailStatusCancelled
	return m, nil
}

// EmailWithMetadata is the persisted shape: entity + immutable metadata
// record (spec.md §9 Design Notes, adopted over a single combined model).
type EmailWithMetadata struct {
	Email    *Email
	Metadata EmailMetadata
}

// EmailRepository persists Email aggregates (spec.md §4, C7). SaveWithMetadata
// is one atomic write of the (email, metadata) pair (spec.md §5).
type EmailRepository interface {
	SaveWithMetadata(ctx context.Context, email *Email, metadata EmailMetadata) error
	FindByID(ctx context.Context, id string) (*EmailWithMetadata, error)
	List(ctx context.Context) ([]*EmailWithMetadata, error)
	// FindByRecipient returns a recipient's emails ordered by followupNumber
	// ascending — the canonical iteration order (spec.md §5).
	FindByRecipient(ctx context.Context, recipientID string) ([]*EmailWithMetadata, error)
	// FindPendingScheduledBefore returns all PENDING emails whose
	// scheduledDate is before cutoff, across all recipients (spec.md §4.6).
	FindPendingScheduledBefore(ctx context.Context, cutoff time.Time) ([]*EmailWithMetadata, error)
}
