package domain

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

//go:generate mockgen -destination mocks/mock_recipient_repository.go -package mocks github.com/mailcadence/sequencer/internal/domain RecipientRepository

// EmailAddress is a syntactically validated local@domain value type.
// Equality is by normalized (lower-cased) form.
type EmailAddress struct {
	normalized string
	original   string
}

// NewEmailAddress validates and constructs an EmailAddress.
func NewEmailAddress(raw string) (EmailAddress, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !govalidator.IsEmail(trimmed) {
		return EmailAddress{}, NewValidationError("invalid email address: %q", raw)
	}
	return EmailAddress{normalized: strings.ToLower(trimmed), original: trimmed}, nil
}

// String renders the address as originally given.
func (e EmailAddress) String() string { return e.original }

// Equal compares two addresses by normalized form.
func (e EmailAddress) Equal(other EmailAddress) bool { return e.normalized == other.normalized }

// ThreadID is the mail gateway's opaque conversation identifier, stable
// across follow-ups (spec.md §3).
type ThreadID string

// Recipient is a person the engine may send to (spec.md §3).
type Recipient struct {
	ID                 string
	EmailAddress       EmailAddress
	Salutation         string
	HasReplied         bool
	initialContactDate *time.Time
}

// NewRecipient constructs a Recipient with no initial contact date set yet.
func NewRecipient(id string, email EmailAddress, salutation string) (*Recipient, error) {
	if id == "" {
		return nil, NewValidationError("recipient id is required")
	}
	return &Recipient{ID: id, EmailAddress: email, Salutation: salutation}, nil
}

// InitialContactDate returns the recipient's initial contact date, or nil if unset.
func (r *Recipient) InitialContactDate() *time.Time { return r.initialContactDate }

// HasInitialContactDate reports whether the scheduler should treat this
// recipient as eligible to schedule (spec.md §4.5, NO_SCHEDULING_REQUIRED).
func (r *Recipient) HasInitialContactDate() bool { return r.initialContactDate != nil }

// SetInitialContactDate sets the write-once initial contact date. A second
// call fails with a ValidationError — the field can never be reassigned
// once set (spec.md §3).
func (r *Recipient) SetInitialContactDate(t time.Time) error {
	if r.initialContactDate != nil {
		return NewValidationError("recipient %s: initial contact date is write-once and already set", r.ID)
	}
	r.initialContactDate = &t
	return nil
}

// MarkReplied sets the reply flag. It is monotonic: false -> true only
// (spec.md §4.9); calling it when already true is a no-op.
func (r *Recipient) MarkReplied() { r.HasReplied = true }

// RecipientMetadata links a Recipient to its originating Contact, the plan
// it is enrolled in, and its mail-gateway thread id (spec.md §3).
type RecipientMetadata struct {
	ContactID string
	PlanID    *string
	ThreadID  *ThreadID
}

// NewRecipientMetadata validates that ContactID is present.
func NewRecipientMetadata(contactID string, planID *string, threadID *ThreadID) (RecipientMetadata, error) {
	if contactID == "" {
		return RecipientMetadata{}, NewValidationError("recipient metadata requires a contact id")
	}
	return RecipientMetadata{ContactID: contactID, PlanID: planID, ThreadID: threadID}, nil
}

// RecipientWithMetadata couples a Recipient to its metadata, the shape
// repositories read/write (spec.md §7 relational schema).
type RecipientWithMetadata struct {
	Recipient *Recipient
	Metadata  RecipientMetadata
}

// RecipientRepository persists Recipient aggregates (spec.md §4, C7).
type RecipientRepository interface {
	Save(ctx context.Context, r *Recipient, m RecipientMetadata) error
	FindByID(ctx context.Context, id string) (*RecipientWithMetadata, error)
	FindByEmail(ctx context.Context, email EmailAddress) (*RecipientWithMetadata, error)
	List(ctx context.Context) ([]*RecipientWithMetadata, error)
}
