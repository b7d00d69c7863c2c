package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mailcadence/sequencer/internal/domain"
)

type emailRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewEmailRepository creates a PostgreSQL-backed domain.EmailRepository.
func NewEmailRepository(db *sql.DB) domain.EmailRepository {
	return &emailRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// SaveWithMetadata writes the email row and its metadata row inside a
// single transaction — callers never observe one without the other
// (spec.md §5).
func (r *emailRepository) SaveWithMetadata(ctx context.Context, email *domain.Email, metadata domain.EmailMetadata) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewPersistenceError("begin email transaction", err)
	}
	defer tx.Rollback()

	emailQuery, emailArgs, err := r.builder.Insert("emails").
		Columns("id", "sender", "recipient", "subject", "body", "type").
		Values(email.ID, email.Sender.String(), email.Recipient.String(), email.Subject, email.Body, string(email.Type)).
		Suffix("ON CONFLICT (id) DO UPDATE SET sender = EXCLUDED.sender, recipient = EXCLUDED.recipient, subject = EXCLUDED.subject, body = EXCLUDED.body, type = EXCLUDED.type").
		ToSql()
	if err != nil {
		return domain.NewPersistenceError("build email insert", err)
	}
	if _, err := tx.ExecContext(ctx, emailQuery, emailArgs...); err != nil {
		return domain.NewPersistenceError("save email", err)
	}

	var initialEmailID sql.NullString
	if metadata.InitialEmailID != nil {
		initialEmailID = sql.NullString{String: *metadata.InitialEmailID, Valid: true}
	}
	var failureReason sql.NullString
	if metadata.FailureReason != nil {
		failureReason = sql.NullString{String: *metadata.FailureReason, Valid: true}
	}
	var sentDate sql.NullTime
	if metadata.SentDate != nil {
		sentDate = sql.NullTime{Time: *metadata.SentDate, Valid: true}
	}

	metaQuery, metaArgs, err := r.builder.Insert("email_metadata").
		Columns("email_id", "initial_email_id", "recipient_id", "followup_number", "status", "failure_reason", "scheduled_date", "sent_date").
		Values(email.ID, initialEmailID, metadata.RecipientID, metadata.FollowupNumber, string(metadata.Status), failureReason, metadata.ScheduledDate, sentDate).
		Suffix(`ON CONFLICT (email_id) DO UPDATE SET
			initial_email_id = EXCLUDED.initial_email_id,
			recipient_id = EXCLUDED.recipient_id,
			followup_number = EXCLUDED.followup_number,
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			scheduled_date = EXCLUDED.scheduled_date,
			sent_date = EXCLUDED.sent_date`).
		ToSql()
	if err != nil {
		return domain.NewPersistenceError("build email metadata insert", err)
	}
	if _, err := tx.ExecContext(ctx, metaQuery, metaArgs...); err != nil {
		return domain.NewPersistenceError("save email metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewPersistenceError("commit email transaction", err)
	}
	return nil
}

const emailSelectColumns = `e.id, e.sender, e.recipient, e.subject, e.body, e.type,
	m.initial_email_id, m.recipient_id, m.followup_number, m.status, m.failure_reason, m.scheduled_date, m.sent_date`

func (r *emailRepository) scanEmail(row interface {
	Scan(dest ...interface{}) error
}) (*domain.EmailWithMetadata, error) {
	var (
		id, senderRaw, recipientRaw, subject, body, typ string
		recipientID, status                             string
		followupNumber                                  int
		initialEmailID, failureReason                    sql.NullString
		scheduledDate                                    time.Time
		sentDate                                          sql.NullTime
	)
	if err := row.Scan(&id, &senderRaw, &recipientRaw, &subject, &body, &typ,
		&initialEmailID, &recipientID, &followupNumber, &status, &failureReason, &scheduledDate, &sentDate); err != nil {
		return nil, err
	}

	sender, err := domain.NewEmailAddress(senderRaw)
	if err != nil {
		return nil, domain.NewPersistenceError("reconstruct email sender", err)
	}
	recipient, err := domain.NewEmailAddress(recipientRaw)
	if err != nil {
		return nil, domain.NewPersistenceError("reconstruct email recipient", err)
	}
	email, err := domain.NewEmail(id, sender, recipient, subject, body, domain.TemplateType(typ))
	if err != nil {
		return nil, err
	}

	var initialEmailIDPtr *string
	if initialEmailID.Valid {
		initialEmailIDPtr = &initialEmailID.String
	}
	var failureReasonPtr *string
	if failureReason.Valid {
		failureReasonPtr = &failureReason.String
	}
	var sentDatePtr *time.Time
	if sentDate.Valid {
		sentDatePtr = &sentDate.Time
	}

	metadata, err := domain.NewEmailMetadata(recipientID, followupNumber, domain.EmailStatus(status), scheduledDate, initialEmailIDPtr, failureReasonPtr, sentDatePtr)
	if err != nil {
		return nil, err
	}

	return &domain.EmailWithMetadata{Email: email, Metadata: metadata}, nil
}

func (r *emailRepository) FindByID(ctx context.Context, id string) (*domain.EmailWithMetadata, error) {
	query, args, err := r.builder.Select(emailSelectColumns).
		From("emails e").
		Join("email_metadata m ON m.email_id = e.id").
		Where(sq.Eq{"e.id": id}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build email select", err)
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	email, err := r.scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "email", ID: id}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan email", err)
	}
	return email, nil
}

func (r *emailRepository) List(ctx context.Context) ([]*domain.EmailWithMetadata, error) {
	return r.query(ctx, r.builder.Select(emailSelectColumns).
		From("emails e").
		Join("email_metadata m ON m.email_id = e.id").
		OrderBy("m.recipient_id", "m.followup_number"))
}

func (r *emailRepository) FindByRecipient(ctx context.Context, recipientID string) ([]*domain.EmailWithMetadata, error) {
	return r.query(ctx, r.builder.Select(emailSelectColumns).
		From("emails e").
		Join("email_metadata m ON m.email_id = e.id").
		Where(sq.Eq{"m.recipient_id": recipientID}).
		OrderBy("m.followup_number"))
}

func (r *emailRepository) FindPendingScheduledBefore(ctx context.Context, cutoff time.Time) ([]*domain.EmailWithMetadata, error) {
	return r.query(ctx, r.builder.Select(emailSelectColumns).
		From("emails e").
		Join("email_metadata m ON m.email_id = e.id").
		Where(sq.Eq{"m.status": string(domain.EmailStatusPending)}).
		Where(sq.Lt{"m.scheduled_date": cutoff}).
		OrderBy("m.scheduled_date"))
}

func (r *emailRepository) query(ctx context.Context, builder sq.SelectBuilder) ([]*domain.EmailWithMetadata, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build email query", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("query emails", err)
	}
	defer rows.Close()

	var out []*domain.EmailWithMetadata
	for rows.Next() {
		email, err := r.scanEmail(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan email row", err)
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("iterate emails", err)
	}
	return out, nil
}
