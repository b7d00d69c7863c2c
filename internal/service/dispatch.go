package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mailcadence/sequencer/internal/domain"
	"github.com/mailcadence/sequencer/internal/gateway"
	"github.com/mailcadence/sequencer/pkg/logger"
)

// defaultDispatchConcurrency bounds how many emails are sent at once
// (spec.md §5).
const defaultDispatchConcurrency = 8

// defaultGatewayTimeout bounds every individual gateway call (reply check,
// send, draft). A reply check that exceeds it is treated as a reply
// (fail-closed, see checkReplyGate); a send or draft that exceeds it is
// marked FAILED with reason "timeout" (spec.md §4.7, §9 Open Question #2).
const defaultGatewayTimeout = 30 * time.Second

// DispatchPipeline sends or drafts every PENDING email whose scheduled date
// has arrived, gating follow-ups on the recipient not having replied yet
// (spec.md §4.7, C11).
type DispatchPipeline struct {
	selector    *PendingSelector
	emails      domain.EmailRepository
	recipients  domain.RecipientRepository
	mail        gateway.MailGateway
	logger      logger.Logger
	draft       bool
	timeout     time.Duration
	concurrency int64
	locks       *keyedMutex
}

// NewDispatchPipeline builds a DispatchPipeline. draft, when true, saves
// every outbound message as a draft instead of sending it (spec.md §7
// `dispatch --draft`).
func NewDispatchPipeline(
	emails domain.EmailRepository,
	recipients domain.RecipientRepository,
	mail gateway.MailGateway,
	log logger.Logger,
	draft bool,
) *DispatchPipeline {
	return &DispatchPipeline{
		selector:    NewPendingSelector(emails),
		emails:      emails,
		recipients:  recipients,
		mail:        mail,
		logger:      log,
		draft:       draft,
		timeout:     defaultGatewayTimeout,
		concurrency: defaultDispatchConcurrency,
		locks:       newKeyedMutex(),
	}
}

// DispatchDue selects every due PENDING email and sends or drafts it,
// isolating a single email's failure from the rest of the batch (spec.md
// §5, §7). It returns the number of emails actually sent or drafted.
func (p *DispatchPipeline) DispatchDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := p.selector.SelectDue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	sem := semaphore.NewWeighted(p.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	dispatched := make(chan bool, len(due))

	for _, ewm := range due {
		ewm := ewm
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			sent, err := p.dispatchRecipientSerialized(gctx, ewm)
			if err != nil {
				p.logger.WithField("email_id", ewm.Email.ID).
					WithField("error", err.Error()).
					Error("failed to dispatch email")
				return nil
			}
			dispatched <- sent
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(dispatched)

	count := 0
	for sent := range dispatched {
		if sent {
			count++
		}
	}
	return count, nil
}

func (p *DispatchPipeline) dispatchRecipientSerialized(ctx context.Context, ewm *domain.EmailWithMetadata) (bool, error) {
	var sent bool
	err := p.locks.withLock(ewm.Metadata.RecipientID, func() error {
		done, err := p.dispatchOne(ctx, ewm)
		sent = done
		return err
	})
	return sent, err
}

func (p *DispatchPipeline) dispatchOne(ctx context.Context, ewm *domain.EmailWithMetadata) (bool, error) {
	rwm, err := p.recipients.FindByID(ctx, ewm.Metadata.RecipientID)
	if err != nil {
		return false, err
	}

	if ewm.Metadata.FollowupNumber > 0 {
		if rwm.Metadata.ThreadID == nil {
			return false, domain.NewSchedulingInvariantError(
				"email %s is a follow-up (number %d) but recipient %s has no thread id",
				ewm.Email.ID, ewm.Metadata.FollowupNumber, rwm.Recipient.ID)
		}

		replied, err := p.checkReplyGate(ctx, *rwm.Metadata.ThreadID, ewm.Metadata.FollowupNumber)
		if err != nil || replied {
			return false, p.cancelForReply(ctx, ewm, rwm)
		}
	}

	msg := gateway.OutboundMessage{
		Sender:    ewm.Email.Sender,
		Recipient: ewm.Email.Recipient,
		Subject:   ewm.Email.Subject,
		Body:      ewm.Email.Body,
	}
	if ewm.Metadata.FollowupNumber > 0 {
		msg.InReplyTo = rwm.Metadata.ThreadID
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var threadID domain.ThreadID
	if p.draft {
		threadID, err = p.mail.SaveDraft(sendCtx, msg)
	} else {
		threadID, err = p.mail.Send(sendCtx, msg)
	}

	if err != nil {
		reason := err.Error()
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		return false, p.markFailed(ctx, ewm, reason)
	}

	if err := p.markSent(ctx, ewm); err != nil {
		return false, err
	}
	return true, p.bindThread(ctx, rwm, threadID)
}

// checkReplyGate reports whether the recipient has replied to threadID
// before the follow-up numbered followupNumber may be sent. It asks the
// gateway whether the thread already holds more messages than would exist
// if every email through followupNumber had been sent without a reply
// (spec.md §9 Open Question #2): expectedCount is followupNumber+1,
// counting the step about to be sent as already present.
//
// A gateway error or timeout is treated as a reply (fail-closed) so a
// flaky reply check can never cause an unwanted send.
func (p *DispatchPipeline) checkReplyGate(ctx context.Context, threadID domain.ThreadID, followupNumber int) (bool, error) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	replied, err := p.mail.HasReplies(checkCtx, threadID, followupNumber+1)
	if err != nil {
		return true, nil
	}
	return replied, nil
}

func (p *DispatchPipeline) cancelForReply(ctx context.Context, ewm *domain.EmailWithMetadata, rwm *domain.RecipientWithMetadata) error {
	cancelled, err := ewm.Metadata.MarkCancelled()
	if err != nil {
		return err
	}
	if err := p.emails.SaveWithMetadata(ctx, ewm.Email, cancelled); err != nil {
		return domain.NewPersistenceError("cancel follow-up after reply", err)
	}
	if !rwm.Recipient.HasReplied {
		rwm.Recipient.MarkReplied()
		if err := p.recipients.Save(ctx, rwm.Recipient, rwm.Metadata); err != nil {
			return domain.NewPersistenceError("record recipient reply", err)
		}
	}
	return nil
}

func (p *DispatchPipeline) markSent(ctx context.Context, ewm *domain.EmailWithMetadata) error {
	sent, err := ewm.Metadata.MarkSent(time.Now())
	if err != nil {
		return err
	}
	if err := p.emails.SaveWithMetadata(ctx, ewm.Email, sent); err != nil {
		return domain.NewPersistenceError("mark email sent", err)
	}
	return nil
}

func (p *DispatchPipeline) markFailed(ctx context.Context, ewm *domain.EmailWithMetadata, reason string) error {
	failed, err := ewm.Metadata.MarkFailed(reason)
	if err != nil {
		return err
	}
	if err := p.emails.SaveWithMetadata(ctx, ewm.Email, failed); err != nil {
		return domain.NewPersistenceError("mark email failed", err)
	}
	return nil
}

// bindThread records the gateway's thread id on the recipient the first
// time one becomes available (the initial send), so later follow-ups can
// thread under it (spec.md §4.7).
func (p *DispatchPipeline) bindThread(ctx context.Context, rwm *domain.RecipientWithMetadata, threadID domain.ThreadID) error {
	if rwm.Metadata.ThreadID != nil {
		return nil
	}
	rwm.Metadata.ThreadID = &threadID
	if err := p.recipients.Save(ctx, rwm.Recipient, rwm.Metadata); err != nil {
		return domain.NewPersistenceError("bind thread id to recipient", err)
	}
	return nil
}
