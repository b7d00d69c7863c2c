package service

import (
	"context"
	"sort"
	"time"

	"github.com/mailcadence/sequencer/internal/domain"
)

// PendingSelector selects, per recipient, at most one PENDING email to
// dispatch next (spec.md §4.6, C10).
type PendingSelector struct {
	emails domain.EmailRepository
}

// NewPendingSelector builds a PendingSelector.
func NewPendingSelector(emails domain.EmailRepository) *PendingSelector {
	return &PendingSelector{emails: emails}
}

// SelectDue loads every PENDING email scheduled at or before asOf, drops
// externally-ingested history rows (spec.md §4.6 step 1 — they represent
// activity the engine never initiated and must never be dispatched), groups
// the remainder by recipient, and returns the lowest-followupNumber email
// per recipient (spec.md §4.6 steps 2-3).
func (s *PendingSelector) SelectDue(ctx context.Context, asOf time.Time) ([]*domain.EmailWithMetadata, error) {
	due, err := s.emails.FindPendingScheduledBefore(ctx, asOf.Add(time.Nanosecond))
	if err != nil {
		return nil, domain.NewPersistenceError("select pending emails", err)
	}

	byRecipient := make(map[string][]*domain.EmailWithMetadata)
	order := make([]string, 0, len(due))
	for _, ewm := range due {
		if ewm.Email.Type == domain.TemplateTypeExternallyInitial || ewm.Email.Type == domain.TemplateTypeExternallyFollowUp {
			continue
		}
		recipientID := ewm.Metadata.RecipientID
		if recipientID == "" {
			continue
		}
		if _, seen := byRecipient[recipientID]; !seen {
			order = append(order, recipientID)
		}
		byRecipient[recipientID] = append(byRecipient[recipientID], ewm)
	}

	selected := make([]*domain.EmailWithMetadata, 0, len(order))
	for _, recipientID := range order {
		group := byRecipient[recipientID]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Metadata.FollowupNumber < group[j].Metadata.FollowupNumber
		})
		selected = append(selected, group[0])
	}
	return selected, nil
}
