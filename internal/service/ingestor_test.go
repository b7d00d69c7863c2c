package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcadence/sequencer/internal/domain"
)

type fakeRowsSpreadsheetGateway struct {
	fakeSpreadsheetGateway
	rows map[string][][]string
}

func (f *fakeRowsSpreadsheetGateway) ReadRows(ctx context.Context, spreadsheetID, sheetTitle string, startRow, endRow int) ([][]string, error) {
	return f.rows[sheetTitle], nil
}

type fakeContactRepository struct {
	saved []*domain.Contact
}

func (f *fakeContactRepository) Save(ctx context.Context, c *domain.Contact) error {
	f.saved = append(f.saved, c)
	return nil
}
func (f *fakeContactRepository) FindByID(ctx context.Context, id string) (*domain.Contact, error) {
	for _, c := range f.saved {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &domain.ErrNotFound{Entity: "contact", ID: id}
}
func (f *fakeContactRepository) FindBySheetRow(ctx context.Context, sheetTitle string, row int) (*domain.Contact, error) {
	return nil, &domain.ErrNotFound{Entity: "contact", ID: sheetTitle}
}
func (f *fakeContactRepository) List(ctx context.Context) ([]*domain.Contact, error) { return f.saved, nil }

func TestIngestor_SyncRecipientsCreatesNewOnly(t *testing.T) {
	existingAddr := mustAddr(t, "existing@example.com")
	existingRec, err := domain.NewRecipient("recipient-existing", existingAddr, "Sam")
	require.NoError(t, err)
	existingMeta, err := domain.NewRecipientMetadata("contact-existing", nil, nil)
	require.NoError(t, err)

	recipients := &fakeRecipientListRepository{all: []*domain.RecipientWithMetadata{{Recipient: existingRec, Metadata: existingMeta}}}
	contacts := &fakeContactRepository{}
	emails := newFakeEmailRepository()

	sheets := &fakeRowsSpreadsheetGateway{rows: map[string][][]string{
		"Recipients": {
			{"existing@example.com", "Sam", "01.01.2026"},
			{"new@example.com", "Alex", "02.01.2026"},
			{"", "", ""},
		},
	}}

	mapping := RecipientColumnMapping{
		DomainColumn: -1, EmailColumn: 0, NameColumn: 1, SalutationColumn: 1,
		PhoneNumberColumn: -1, InitialContactDateColumn: 2,
	}
	ing := NewIngestor("sheet-1", "History", "Recipients", mapping, nil, mustAddr(t, "sales@mailcadence.test"), sheets, contacts, recipients, emails, noopLogger(), domain.SendingCriteria{})

	created, err := ing.SyncRecipients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, contacts.saved, 1)
	assert.Equal(t, "Alex", contacts.saved[0].Name)
}

func TestIngestor_SyncHistoryIngestsInitialAndFollowUps(t *testing.T) {
	rec, err := domain.NewRecipient("recipient-1", mustAddr(t, "lead@example.com"), "Jordan")
	require.NoError(t, err)
	meta, err := domain.NewRecipientMetadata("contact-1", nil, nil)
	require.NoError(t, err)
	recipients := &fakeRecipientListRepository{all: []*domain.RecipientWithMetadata{{Recipient: rec, Metadata: meta}}}
	contacts := &fakeContactRepository{}
	emails := newFakeEmailRepository()

	row := []string{
		"lead@example.com", "01.01.2026",
		"08.01.2026", "Gesendet",
	}
	sheets := &fakeRowsSpreadsheetGateway{rows: map[string][][]string{"History": {row}}}

	mapping := RecipientColumnMapping{EmailColumn: 0, SalutationColumn: -1, InitialContactDateColumn: -1}
	ing := NewIngestor("sheet-1", "History", "Recipients", mapping, nil, mustAddr(t, "sales@mailcadence.test"), sheets, contacts, recipients, emails, noopLogger(), domain.SendingCriteria{})

	count, err := ing.SyncHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all, err := emails.FindByRecipient(context.Background(), "recipient-1")
	require.NoError(t, err)
	require.Len(t, all, 2)

	var initial, followup *domain.EmailWithMetadata
	for _, e := range all {
		if e.Metadata.IsInitial() {
			initial = e
		} else {
			followup = e
		}
	}
	require.NotNil(t, initial)
	require.NotNil(t, followup)
	assert.Equal(t, domain.EmailStatusSent, initial.Metadata.Status)
	assert.Equal(t, domain.TemplateTypeExternallyInitial, initial.Email.Type)
	assert.Equal(t, domain.EmailStatusSent, followup.Metadata.Status)
	assert.Equal(t, domain.TemplateTypeExternallyFollowUp, followup.Email.Type)
	require.NotNil(t, followup.Metadata.InitialEmailID)
	assert.Equal(t, initial.Email.ID, *followup.Metadata.InitialEmailID)
}

func TestIngestor_SyncHistoryDiscardsWhenInternalHistoryAlreadyCoversStep(t *testing.T) {
	rec, err := domain.NewRecipient("recipient-1", mustAddr(t, "lead@example.com"), "Jordan")
	require.NoError(t, err)
	meta, err := domain.NewRecipientMetadata("contact-1", nil, nil)
	require.NoError(t, err)
	recipients := &fakeRecipientListRepository{all: []*domain.RecipientWithMetadata{{Recipient: rec, Metadata: meta}}}
	contacts := &fakeContactRepository{}
	emails := newFakeEmailRepository()

	internalInitial, err := domain.NewEmail("email-internal-0", mustAddr(t, "sales@mailcadence.test"), mustAddr(t, "lead@example.com"), "Subject", "Body", domain.TemplateTypeInitial)
	require.NoError(t, err)
	internalDate := mustDate(t, "2026-01-01")
	internalMeta, err := domain.NewEmailMetadata("recipient-1", 0, domain.EmailStatusSent, internalDate, nil, nil, &internalDate)
	require.NoError(t, err)
	internalMeta = internalMeta.WithSelfInitialLink("email-internal-0")
	require.NoError(t, emails.SaveWithMetadata(context.Background(), internalInitial, internalMeta))

	row := []string{"lead@example.com", "01.01.2026"}
	sheets := &fakeRowsSpreadsheetGateway{rows: map[string][][]string{"History": {row}}}

	mapping := RecipientColumnMapping{EmailColumn: 0, SalutationColumn: -1, InitialContactDateColumn: -1}
	ing := NewIngestor("sheet-1", "History", "Recipients", mapping, nil, mustAddr(t, "sales@mailcadence.test"), sheets, contacts, recipients, emails, noopLogger(), domain.SendingCriteria{})

	count, err := ing.SyncHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	all, err := emails.FindByRecipient(context.Background(), "recipient-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func mustDate(t *testing.T, isoDate string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", isoDate)
	require.NoError(t, err)
	return d
}
