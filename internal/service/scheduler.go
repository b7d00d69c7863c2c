package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mailcadence/sequencer/internal/domain"
	"github.com/mailcadence/sequencer/pkg/logger"
)

// replyPrefix is prepended once to every follow-up subject, never doubled
// (spec.md §4.5).
const replyPrefix = "Re: "

// defaultSchedulerConcurrency bounds how many recipients are classified and
// scheduled at once (spec.md §5).
const defaultSchedulerConcurrency = 8

// Scheduler walks every eligible recipient and schedules every remaining
// step of its follow-up cadence (spec.md §4.5, C9).
type Scheduler struct {
	recipients  domain.RecipientRepository
	emails      domain.EmailRepository
	plans       domain.PlanRepository
	templates   domain.TemplateRepository
	sender      domain.EmailAddress
	resolver    domain.PlaceholderResolver
	logger      logger.Logger
	concurrency int64
	locks       *keyedMutex
}

// NewScheduler builds a Scheduler with the default concurrency bound.
func NewScheduler(
	recipients domain.RecipientRepository,
	emails domain.EmailRepository,
	plans domain.PlanRepository,
	templates domain.TemplateRepository,
	sender domain.EmailAddress,
	resolver domain.PlaceholderResolver,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		recipients:  recipients,
		emails:      emails,
		plans:       plans,
		templates:   templates,
		sender:      sender,
		resolver:    resolver,
		logger:      log,
		concurrency: defaultSchedulerConcurrency,
		locks:       newKeyedMutex(),
	}
}

// ScheduleAll classifies every recipient and schedules every step still
// missing from its plan, isolating a single recipient's failure from the rest of
// the batch (spec.md §5, §7).
func (s *Scheduler) ScheduleAll(ctx context.Context) (int, error) {
	recipients, err := s.recipients.List(ctx)
	if err != nil {
		return 0, domain.NewPersistenceError("list recipients for scheduling", err)
	}

	sem := semaphore.NewWeighted(s.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	processed := make(chan bool, len(recipients))

	for _, rwm := range recipients {
		rwm := rwm
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			scheduled, err := s.scheduleRecipient(gctx, rwm)
			if err != nil {
				s.logger.WithField("recipient_id", rwm.Recipient.ID).
					WithField("error", err.Error()).
					Error("failed to schedule recipient")
				return nil
			}
			processed <- scheduled
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(processed)

	count := 0
	for scheduled := range processed {
		if scheduled {
			count++
		}
	}
	return count, nil
}

func (s *Scheduler) scheduleRecipient(ctx context.Context, rwm *domain.RecipientWithMetadata) (bool, error) {
	var scheduled bool
	err := s.locks.withLock(rwm.Recipient.ID, func() error {
		done, err := s.scheduleOne(ctx, rwm)
		scheduled = done
		return err
	})
	return scheduled, err
}

func (s *Scheduler) scheduleOne(ctx context.Context, rwm *domain.RecipientWithMetadata) (bool, error) {
	if rwm.Metadata.PlanID == nil {
		return false, domain.NewSchedulingInvariantError("recipient %s has no plan assigned", rwm.Recipient.ID)
	}

	existing, err := s.emails.FindByRecipient(ctx, rwm.Recipient.ID)
	if err != nil {
		return false, domain.NewPersistenceError("load recipient email history", err)
	}

	plan, err := s.plans.FindByID(ctx, *rwm.Metadata.PlanID)
	if err != nil {
		return false, err
	}

	status := domain.ClassifySchedulingStatus(rwm.Recipient.HasInitialContactDate(), rwm.Recipient.HasReplied, existing, plan.MaxFollowupIndex())

	switch status {
	case domain.SchedulingStatusNoSchedulingRequired, domain.SchedulingStatusSequenceComplete:
		return false, nil
	case domain.SchedulingStatusNoEmailsScheduled:
		return true, s.scheduleInitial(ctx, rwm, plan)
	case domain.SchedulingStatusPartialSequenceScheduled:
		return true, s.scheduleRemainingFollowUps(ctx, rwm, plan, existing)
	default:
		return false, domain.NewSchedulingInvariantError("unrecognized scheduling status %q for recipient %s", status, rwm.Recipient.ID)
	}
}

// scheduleInitial schedules the initial email plus every follow-up step of
// the plan, all within this tick: a fresh recipient gets its whole sequence
// at once rather than one step per run (spec.md §4.5, NO_EMAILS_SCHEDULED).
func (s *Scheduler) scheduleInitial(ctx context.Context, rwm *domain.RecipientWithMetadata, plan *domain.FollowUpPlan) error {
	tmpl, err := s.templateForStep(ctx, plan, 0)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	subject, body, err := tmpl.Resolve(ctx, rwm.Recipient.ID, s.resolver)
	if err != nil {
		return err
	}
	email, err := domain.NewEmail(id, s.sender, rwm.Recipient.EmailAddress, subject, body, tmpl.Type)
	if err != nil {
		return err
	}

	initialContactDate := *rwm.Recipient.InitialContactDate()
	metadata, err := domain.NewEmailMetadata(rwm.Recipient.ID, 0, domain.EmailStatusPending, initialContactDate, nil, nil, nil)
	if err != nil {
		return err
	}
	if err := s.emails.SaveWithMetadata(ctx, email, metadata); err != nil {
		return err
	}

	linked := metadata.WithSelfInitialLink(id)
	if err := s.emails.SaveWithMetadata(ctx, email, linked); err != nil {
		return err
	}

	return s.scheduleFollowUpsFrom(ctx, rwm, plan, 1, id, initialContactDate)
}

// scheduleRemainingFollowUps schedules every step still missing from an
// already-started sequence, all within this tick (spec.md §4.5,
// PARTIAL_SEQUENCE_SCHEDULED).
func (s *Scheduler) scheduleRemainingFollowUps(ctx context.Context, rwm *domain.RecipientWithMetadata, plan *domain.FollowUpPlan, existing []*domain.EmailWithMetadata) error {
	initialEmailID := findInitialEmailID(existing)
	if initialEmailID == "" {
		return domain.NewSchedulingInvariantError("recipient %s has no initial email on record", rwm.Recipient.ID)
	}
	nextNumber := domain.NextFollowupNumber(existing)
	return s.scheduleFollowUpsFrom(ctx, rwm, plan, nextNumber, initialEmailID, *rwm.Recipient.InitialContactDate())
}

// scheduleFollowUpsFrom persists follow-up steps startStep..plan's last
// step, accumulating each step's scheduled date from the previous one so
// later steps never drift relative to the original contact date (spec.md
// §4.5). Every follow-up subject is prefixed with "Re: " once.
func (s *Scheduler) scheduleFollowUpsFrom(ctx context.Context, rwm *domain.RecipientWithMetadata, plan *domain.FollowUpPlan, startStep int, initialEmailID string, initialContactDate time.Time) error {
	base := cumulativeScheduleDate(initialContactDate, plan, startStep-1)
	for stepNumber := startStep; stepNumber <= plan.MaxFollowupIndex(); stepNumber++ {
		tmpl, err := s.templateForStep(ctx, plan, stepNumber)
		if err != nil {
			return err
		}

		id := uuid.New().String()
		subject, body, err := tmpl.Resolve(ctx, rwm.Recipient.ID, s.resolver)
		if err != nil {
			return err
		}
		subject = ensureReplyPrefix(subject)
		email, err := domain.NewEmail(id, s.sender, rwm.Recipient.EmailAddress, subject, body, tmpl.Type)
		if err != nil {
			return err
		}

		base = base.AddDate(0, 0, plan.Steps[stepNumber].WaitDays)
		metadata, err := domain.NewEmailMetadata(rwm.Recipient.ID, stepNumber, domain.EmailStatusPending, base, &initialEmailID, nil, nil)
		if err != nil {
			return err
		}
		if err := s.emails.SaveWithMetadata(ctx, email, metadata); err != nil {
			return err
		}
	}
	return nil
}

// ensureReplyPrefix prepends "Re: " unless subject already carries it.
func ensureReplyPrefix(subject string) string {
	if strings.HasPrefix(subject, replyPrefix) {
		return subject
	}
	return replyPrefix + subject
}

func (s *Scheduler) templateForStep(ctx context.Context, plan *domain.FollowUpPlan, stepNumber int) (*domain.Template, error) {
	if stepNumber < 0 || stepNumber >= len(plan.Steps) {
		return nil, domain.NewSchedulingInvariantError("plan %s has no step %d", plan.ID, stepNumber)
	}
	step := plan.Steps[stepNumber]
	pt := &domain.PlanWithTemplate{Plan: plan, Templates: map[int]*domain.Template{}}
	tmpl, err := s.templates.FindByID(ctx, step.TemplateID)
	if err != nil {
		return nil, err
	}
	pt.Templates[stepNumber] = tmpl
	return pt.TemplateForStep(stepNumber)
}

func findInitialEmailID(existing []*domain.EmailWithMetadata) string {
	for _, e := range existing {
		if e.Metadata.IsInitial() {
			return e.Email.ID
		}
	}
	return ""
}

// cumulativeScheduleDate sums every step's wait period from the initial
// contact date through stepNumber, so follow-ups never drift relative to
// the original contact regardless of when the scheduler actually runs.
func cumulativeScheduleDate(initialContactDate time.Time, plan *domain.FollowUpPlan, stepNumber int) time.Time {
	date := initialContactDate
	for i := 1; i <= stepNumber && i < len(plan.Steps); i++ {
		date = date.AddDate(0, 0, plan.Steps[i].WaitDays)
	}
	return date
}
