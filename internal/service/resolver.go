package service

import (
	"context"
	"fmt"

	"github.com/mailcadence/sequencer/internal/domain"
	"github.com/mailcadence/sequencer/internal/gateway"
)

// PlaceholderResolver implements domain.PlaceholderResolver against a live
// spreadsheet: it maps each column-reference placeholder to the recipient's
// contact row, fetches every referenced cell in a single batch call, and
// substitutes the results back into the template text (spec.md §4.4).
type PlaceholderResolver struct {
	spreadsheetID string
	recipients    domain.RecipientRepository
	contacts      domain.ContactRepository
	sheets        gateway.SpreadsheetGateway
}

// NewPlaceholderResolver builds a resolver bound to one spreadsheet.
func NewPlaceholderResolver(spreadsheetID string, recipients domain.RecipientRepository, contacts domain.ContactRepository, sheets gateway.SpreadsheetGateway) *PlaceholderResolver {
	return &PlaceholderResolver{spreadsheetID: spreadsheetID, recipients: recipients, contacts: contacts, sheets: sheets}
}

// Resolve fetches every column-reference placeholder used in text against
// the recipient's contact row in one batch read, then substitutes both
// literal-string and resolved column-reference placeholders (spec.md §4.4
// steps 1-6).
func (r *PlaceholderResolver) Resolve(ctx context.Context, store *domain.PlaceholderStore, text string, recipientID string) (string, error) {
	keys := store.ColumnReferenceKeys()
	resolved := make(map[string]string, len(keys))

	if len(keys) > 0 {
		recipient, err := r.recipients.FindByID(ctx, recipientID)
		if err != nil {
			return "", domain.NewResolutionError("", fmt.Sprintf("lookup recipient %s: %v", recipientID, err))
		}
		contact, err := r.contacts.FindByID(ctx, recipient.Metadata.ContactID)
		if err != nil {
			return "", domain.NewResolutionError("", fmt.Sprintf("lookup contact %s: %v", recipient.Metadata.ContactID, err))
		}
		contactRow, err := contact.Row.Row()
		if err != nil {
			return "", domain.NewResolutionError("", fmt.Sprintf("contact %s has no row reference: %v", contact.ID, err))
		}

		refs := make([]domain.SpreadsheetReference, 0, len(keys))
		keyByA1 := make(map[string]string, len(keys))
		for _, key := range keys {
			value, err := store.Get(key)
			if err != nil {
				return "", domain.NewResolutionError("", err.Error())
			}
			column, err := value.Reference.Column()
			if err != nil {
				return "", domain.NewResolutionError("", fmt.Sprintf("placeholder %q is not a column reference: %v", key, err))
			}
			cellRef, err := domain.NewCellReference(column, contactRow)
			if err != nil {
				return "", domain.NewResolutionError("", err.Error())
			}
			a1, err := cellRef.A1()
			if err != nil {
				return "", domain.NewResolutionError("", err.Error())
			}
			refs = append(refs, cellRef)
			keyByA1[a1] = key
		}

		cells, err := r.sheets.ReadBatch(ctx, r.spreadsheetID, contact.SheetTitle, refs)
		if err != nil {
			return "", domain.NewResolutionError("", fmt.Sprintf("batch read placeholder cells: %v", err))
		}
		for a1, key := range keyByA1 {
			resolved[key] = cells[a1]
		}
	}

	out := store.ReplaceKeysInString(text, resolved)
	if err := domain.ValidateResolutionComplete(store, out); err != nil {
		return "", err
	}
	return out, nil
}
