package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcadence/sequencer/internal/domain"
)

type fakeSelectorEmailRepository struct {
	*fakeEmailRepository
	due []*domain.EmailWithMetadata
}

func (f *fakeSelectorEmailRepository) FindPendingScheduledBefore(ctx context.Context, cutoff time.Time) ([]*domain.EmailWithMetadata, error) {
	return f.due, nil
}

func TestPendingSelector_SelectDueReturnsRepositoryResult(t *testing.T) {
	email, err := domain.NewEmail("email-1", mustAddr(t, "sales@mailcadence.test"), mustAddr(t, "lead@example.com"), "Subject", "Body", domain.TemplateTypeInitial)
	require.NoError(t, err)
	meta, err := domain.NewEmailMetadata("recipient-1", 0, domain.EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	repo := &fakeSelectorEmailRepository{
		fakeEmailRepository: newFakeEmailRepository(),
		due:                 []*domain.EmailWithMetadata{{Email: email, Metadata: meta}},
	}
	selector := NewPendingSelector(repo)

	due, err := selector.SelectDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "email-1", due[0].Email.ID)
}

func TestPendingSelector_SelectDueEmpty(t *testing.T) {
	repo := &fakeSelectorEmailRepository{fakeEmailRepository: newFakeEmailRepository()}
	selector := NewPendingSelector(repo)

	due, err := selector.SelectDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestPendingSelector_SelectsLowestFollowupNumberPerRecipient(t *testing.T) {
	email0, err := domain.NewEmail("email-0", mustAddr(t, "sales@mailcadence.test"), mustAddr(t, "lead@example.com"), "Subject", "Body", domain.TemplateTypeInitial)
	require.NoError(t, err)
	meta0, err := domain.NewEmailMetadata("recipient-1", 0, domain.EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	email1, err := domain.NewEmail("email-1", mustAddr(t, "sales@mailcadence.test"), mustAddr(t, "lead@example.com"), "Subject", "Body", domain.TemplateTypeFollowUp)
	require.NoError(t, err)
	initialID := "email-0"
	meta1, err := domain.NewEmailMetadata("recipient-1", 1, domain.EmailStatusPending, time.Now(), &initialID, nil, nil)
	require.NoError(t, err)

	repo := &fakeSelectorEmailRepository{
		fakeEmailRepository: newFakeEmailRepository(),
		due: []*domain.EmailWithMetadata{
			{Email: email1, Metadata: meta1},
			{Email: email0, Metadata: meta0},
		},
	}
	selector := NewPendingSelector(repo)

	due, err := selector.SelectDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "email-0", due[0].Email.ID)
}

func TestPendingSelector_DropsExternalEmailTypes(t *testing.T) {
	external, err := domain.NewEmail("email-ext", mustAddr(t, "sales@mailcadence.test"), mustAddr(t, "lead@example.com"), "(imported from external history)", "(imported from external history)", domain.TemplateTypeExternallyFollowUp)
	require.NoError(t, err)
	meta, err := domain.NewEmailMetadata("recipient-1", 1, domain.EmailStatusPending, time.Now(), nil, nil, nil)
	require.NoError(t, err)

	repo := &fakeSelectorEmailRepository{
		fakeEmailRepository: newFakeEmailRepository(),
		due:                 []*domain.EmailWithMetadata{{Email: external, Metadata: meta}},
	}
	selector := NewPendingSelector(repo)

	due, err := selector.SelectDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}
