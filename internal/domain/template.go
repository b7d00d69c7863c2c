package domain

import (
	"context"
	"strings"
)

//go:generate mockgen -destination mocks/mock_template_repository.go -package mocks github.com/mailcadence/sequencer/internal/domain TemplateRepository

// TemplateType tags what role a template plays in a plan (spec.md §3).
type TemplateType string

const (
	TemplateTypeInitial              TemplateType = "INITIAL"
	TemplateTypeFollowUp             TemplateType = "FOLLOW_UP"
	TemplateTypeExternallyInitial    TemplateType = "EXTERNALLY_INITIAL"
	TemplateTypeExternallyFollowUp   TemplateType = "EXTERNALLY_FOLLOW_UP"
)

func (t TemplateType) Validate() error {
	switch t {
	case TemplateTypeInitial, TemplateTypeFollowUp, TemplateTypeExternallyInitial, TemplateTypeExternallyFollowUp:
		return nil
	}
	return NewValidationError("invalid template type: %q", t)
}

const (
	defaultDelimiterOpen  = "{"
	defaultDelimiterClose = "}"
)

// Template is a reusable subject/body pair with a bound placeholder store
// (spec.md §3, §4.3).
type Template struct {
	ID        string
	Type      TemplateType
	Subject   string
	Body      string
	Store     *PlaceholderStore
}

// NewTemplate constructs and validates a Template. Subject/body must be
// non-empty trimmed strings with balanced placeholder delimiters.
func NewTemplate(id string, typ TemplateType, subject, body string, store *PlaceholderStore) (*Template, error) {
	if id == "" {
		return nil, NewValidationError("template id is required")
	}
	if err := typ.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		var err error
		store, err = NewPlaceholderStore(defaultDelimiterOpen, defaultDelimiterClose)
		if err != nil {
			return nil, err
		}
	}
	open, close := store.Delimiters()

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, NewValidationError("template subject must be non-empty")
	}
	if err := ValidateDelimiterBalance(subject, open, close); err != nil {
		return nil, NewValidationError("template subject has unbalanced placeholders: %v", err)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, NewValidationError("template body must be non-empty")
	}
	if err := ValidateDelimiterBalance(body, open, close); err != nil {
		return nil, NewValidationError("template body has unbalanced placeholders: %v", err)
	}

	return &Template{ID: id, Type: typ, Subject: subject, Body: body, Store: store}, nil
}

// PlaceholderResolver fetches referenced cells for a recipient and renders a
// delimited string (spec.md §4.4). Templates stay free of I/O; resolution
// is always performed through this injected port.
type PlaceholderResolver interface {
	Resolve(ctx context.Context, store *PlaceholderStore, text string, recipientID string) (string, error)
}

// Resolve renders the template's subject and body for one recipient,
// delegating the placeholder fetch/substitution to resolver (spec.md §4.3).
func (t *Template) Resolve(ctx context.Context, recipientID string, resolver PlaceholderResolver) (subject, body string, err error) {
	subject, err = resolver.Resolve(ctx, t.Store, t.Subject, recipientID)
	if err != nil {
		return "", "", err
	}
	body, err = resolver.Resolve(ctx, t.Store, t.Body, recipientID)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// TemplateRepository persists Template aggregates (spec.md §4, C7).
type TemplateRepository interface {
	Save(ctx context.Context, t *Template) error
	FindByID(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context) ([]*Template, error)
}
