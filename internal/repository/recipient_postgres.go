package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/mailcadence/sequencer/internal/domain"
)

type recipientRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewRecipientRepository creates a PostgreSQL-backed domain.RecipientRepository.
func NewRecipientRepository(db *sql.DB) domain.RecipientRepository {
	return &recipientRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *recipientRepository) Save(ctx context.Context, rec *domain.Recipient, m domain.RecipientMetadata) error {
	var planID sql.NullString
	if m.PlanID != nil {
		planID = sql.NullString{String: *m.PlanID, Valid: true}
	}
	var threadID sql.NullString
	if m.ThreadID != nil {
		threadID = sql.NullString{String: string(*m.ThreadID), Valid: true}
	}
	var initialContactDate sql.NullTime
	if rec.HasInitialContactDate() {
		initialContactDate = sql.NullTime{Time: *rec.InitialContactDate(), Valid: true}
	}

	query, args, err := r.builder.Insert("recipients").
		Columns("id", "email", "salutation", "has_replied", "initial_contact_date", "contact_id", "plan_id", "thread_id").
		Values(rec.ID, rec.EmailAddress.String(), rec.Salutation, rec.HasReplied, initialContactDate, m.ContactID, planID, threadID).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			salutation = EXCLUDED.salutation,
			has_replied = EXCLUDED.has_replied,
			initial_contact_date = EXCLUDED.initial_contact_date,
			contact_id = EXCLUDED.contact_id,
			plan_id = EXCLUDED.plan_id,
			thread_id = EXCLUDED.thread_id`).
		ToSql()
	if err != nil {
		return domain.NewPersistenceError("build recipient insert", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewPersistenceError("save recipient", err)
	}
	return nil
}

func (r *recipientRepository) scanRecipient(row interface {
	Scan(dest ...interface{}) error
}) (*domain.RecipientWithMetadata, error) {
	var (
		id, email, salutation, contactID string
		hasReplied                       bool
		initialContactDate               sql.NullTime
		planID, threadID                 sql.NullString
	)
	if err := row.Scan(&id, &email, &salutation, &hasReplied, &initialContactDate, &contactID, &planID, &threadID); err != nil {
		return nil, err
	}

	addr, err := domain.NewEmailAddress(email)
	if err != nil {
		return nil, domain.NewPersistenceError("reconstruct recipient email", err)
	}
	rec, err := domain.NewRecipient(id, addr, salutation)
	if err != nil {
		return nil, err
	}
	if initialContactDate.Valid {
		if err := rec.SetInitialContactDate(initialContactDate.Time); err != nil {
			return nil, domain.NewPersistenceError("restore recipient initial contact date", err)
		}
	}
	if hasReplied {
		rec.MarkReplied()
	}

	var planIDPtr *string
	if planID.Valid {
		planIDPtr = &planID.String
	}
	var threadIDPtr *domain.ThreadID
	if threadID.Valid {
		tid := domain.ThreadID(threadID.String)
		threadIDPtr = &tid
	}
	metadata, err := domain.NewRecipientMetadata(contactID, planIDPtr, threadIDPtr)
	if err != nil {
		return nil, err
	}

	return &domain.RecipientWithMetadata{Recipient: rec, Metadata: metadata}, nil
}

func (r *recipientRepository) FindByID(ctx context.Context, id string) (*domain.RecipientWithMetadata, error) {
	query, args, err := r.builder.Select("id", "email", "salutation", "has_replied", "initial_contact_date", "contact_id", "plan_id", "thread_id").
		From("recipients").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build recipient select", err)
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	rec, err := r.scanRecipient(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "recipient", ID: id}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan recipient", err)
	}
	return rec, nil
}

func (r *recipientRepository) FindByEmail(ctx context.Context, email domain.EmailAddress) (*domain.RecipientWithMetadata, error) {
	query, args, err := r.builder.Select("id", "email", "salutation", "has_replied", "initial_contact_date", "contact_id", "plan_id", "thread_id").
		From("recipients").
		Where(sq.Eq{"email": email.String()}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build recipient select by email", err)
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	rec, err := r.scanRecipient(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "recipient", ID: email.String()}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan recipient by email", err)
	}
	return rec, nil
}

func (r *recipientRepository) List(ctx context.Context) ([]*domain.RecipientWithMetadata, error) {
	query, args, err := r.builder.Select("id", "email", "salutation", "has_replied", "initial_contact_date", "contact_id", "plan_id", "thread_id").
		From("recipients").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build recipient list", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("list recipients", err)
	}
	defer rows.Close()

	var out []*domain.RecipientWithMetadata
	for rows.Next() {
		rec, err := r.scanRecipient(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan recipient row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("iterate recipients", err)
	}
	return out, nil
}
