package domain

import "context"

//go:generate mockgen -destination mocks/mock_contact_repository.go -package mocks github.com/mailcadence/sequencer/internal/domain ContactRepository

// Contact is the spreadsheet-row origin of a Recipient (spec.md §3).
type Contact struct {
	ID         string
	Name       string
	Website    string
	Phone      string
	SheetTitle string
	Row        SpreadsheetReference
}

// NewContact validates and constructs a Contact. Row must be a Row reference.
func NewContact(id, sheetTitle string, row SpreadsheetReference, name, website, phone string) (*Contact, error) {
	if id == "" {
		return nil, NewValidationError("contact id is required")
	}
	if sheetTitle == "" {
		return nil, NewValidationError("contact sheet title is required")
	}
	if row.Kind() != ReferenceKindRow {
		return nil, NewValidationError("contact row must be a row reference, got %s", row.Kind())
	}
	return &Contact{ID: id, Name: name, Website: website, Phone: phone, SheetTitle: sheetTitle, Row: row}, nil
}

// ContactRepository persists Contact aggregates (spec.md §4, C7).
type ContactRepository interface {
	Save(ctx context.Context, c *Contact) error
	FindByID(ctx context.Context, id string) (*Contact, error)
	FindBySheetRow(ctx context.Context, sheetTitle string, row int) (*Contact, error)
	List(ctx context.Context) ([]*Contact, error)
}
