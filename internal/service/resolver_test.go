package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcadence/sequencer/internal/domain"
)

type fakeRecipientRepository struct {
	byID map[string]*domain.RecipientWithMetadata
}

func (f *fakeRecipientRepository) Save(ctx context.Context, r *domain.Recipient, m domain.RecipientMetadata) error {
	return nil
}
func (f *fakeRecipientRepository) FindByID(ctx context.Context, id string) (*domain.RecipientWithMetadata, error) {
	rec, ok := f.byID[id]
	if !ok {
		return nil, &domain.ErrNotFound{Entity: "recipient", ID: id}
	}
	return rec, nil
}
func (f *fakeRecipientRepository) FindByEmail(ctx context.Context, email domain.EmailAddress) (*domain.RecipientWithMetadata, error) {
	return nil, &domain.ErrNotFound{Entity: "recipient", ID: email.String()}
}
func (f *fakeRecipientRepository) List(ctx context.Context) ([]*domain.RecipientWithMetadata, error) {
	return nil, nil
}

type fakeContactRepository struct {
	byID map[string]*domain.Contact
}

func (f *fakeContactRepository) Save(ctx context.Context, c *domain.Contact) error { return nil }
func (f *fakeContactRepository) FindByID(ctx context.Context, id string) (*domain.Contact, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, &domain.ErrNotFound{Entity: "contact", ID: id}
	}
	return c, nil
}
func (f *fakeContactRepository) FindBySheetRow(ctx context.Context, sheetTitle string, row int) (*domain.Contact, error) {
	return nil, &domain.ErrNotFound{Entity: "contact", ID: sheetTitle}
}
func (f *fakeContactRepository) List(ctx context.Context) ([]*domain.Contact, error) { return nil, nil }

type fakeSpreadsheetGateway struct {
	cells map[string]string
}

func (f *fakeSpreadsheetGateway) ReadBatch(ctx context.Context, spreadsheetID, sheetTitle string, refs []domain.SpreadsheetReference) (map[string]string, error) {
	out := make(map[string]string)
	for _, ref := range refs {
		a1, err := ref.A1()
		if err != nil {
			return nil, err
		}
		out[a1] = f.cells[a1]
	}
	return out, nil
}
func (f *fakeSpreadsheetGateway) Write(ctx context.Context, spreadsheetID, sheetTitle string, ref domain.SpreadsheetReference, value string) error {
	return nil
}
func (f *fakeSpreadsheetGateway) WriteBatch(ctx context.Context, spreadsheetID, sheetTitle string, values map[domain.SpreadsheetReference]string) error {
	return nil
}
func (f *fakeSpreadsheetGateway) SearchColumn(ctx context.Context, spreadsheetID, sheetTitle string, column string, target string) (int, error) {
	return 0, &domain.ErrNotFound{Entity: "row", ID: target}
}
func (f *fakeSpreadsheetGateway) ReadRows(ctx context.Context, spreadsheetID, sheetTitle string, startRow, endRow int) ([][]string, error) {
	return nil, nil
}

func mustAddr(t *testing.T, raw string) domain.EmailAddress {
	t.Helper()
	a, err := domain.NewEmailAddress(raw)
	require.NoError(t, err)
	return a
}

func TestPlaceholderResolver_ResolvesColumnReferenceAgainstContactRow(t *testing.T) {
	row, err := domain.NewRowReference(7)
	require.NoError(t, err)
	contact, err := domain.NewContact("contact-1", "Leads", row, "Acme", "acme.test", "")
	require.NoError(t, err)

	rec, err := domain.NewRecipient("recipient-1", mustAddr(t, "lead@example.com"), "Jordan")
	require.NoError(t, err)
	meta, err := domain.NewRecipientMetadata("contact-1", nil, nil)
	require.NoError(t, err)

	recipients := &fakeRecipientRepository{byID: map[string]*domain.RecipientWithMetadata{
		"recipient-1": {Recipient: rec, Metadata: meta},
	}}
	contacts := &fakeContactRepository{byID: map[string]*domain.Contact{"contact-1": contact}}
	sheets := &fakeSpreadsheetGateway{cells: map[string]string{"B7": "Acme Corp"}}

	resolver := NewPlaceholderResolver("sheet-1", recipients, contacts, sheets)

	store, err := domain.NewPlaceholderStore("{", "}")
	require.NoError(t, err)
	colRef, err := domain.NewColumnReference("B")
	require.NoError(t, err)
	require.NoError(t, store.AddColumnReference("company", colRef))

	out, err := resolver.Resolve(context.Background(), store, "Hi, welcome to {company}!", "recipient-1")
	require.NoError(t, err)
	assert.Equal(t, "Hi, welcome to Acme Corp!", out)
}

func TestPlaceholderResolver_StringPlaceholderNeedsNoGatewayCall(t *testing.T) {
	recipients := &fakeRecipientRepository{byID: map[string]*domain.RecipientWithMetadata{}}
	contacts := &fakeContactRepository{byID: map[string]*domain.Contact{}}
	sheets := &fakeSpreadsheetGateway{}

	resolver := NewPlaceholderResolver("sheet-1", recipients, contacts, sheets)

	store, err := domain.NewPlaceholderStore("{", "}")
	require.NoError(t, err)
	require.NoError(t, store.AddString("name", "Jordan"))

	out, err := resolver.Resolve(context.Background(), store, "Hi {name}!", "recipient-unknown")
	require.NoError(t, err)
	assert.Equal(t, "Hi Jordan!", out)
}

func TestPlaceholderResolver_UnknownRecipientFailsForColumnReference(t *testing.T) {
	recipients := &fakeRecipientRepository{byID: map[string]*domain.RecipientWithMetadata{}}
	contacts := &fakeContactRepository{byID: map[string]*domain.Contact{}}
	sheets := &fakeSpreadsheetGateway{}

	resolver := NewPlaceholderResolver("sheet-1", recipients, contacts, sheets)

	store, err := domain.NewPlaceholderStore("{", "}")
	require.NoError(t, err)
	colRef, err := domain.NewColumnReference("B")
	require.NoError(t, err)
	require.NoError(t, store.AddColumnReference("company", colRef))

	_, err = resolver.Resolve(context.Background(), store, "Hi {company}!", "recipient-unknown")
	assert.Error(t, err)
}
