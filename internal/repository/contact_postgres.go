package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/mailcadence/sequencer/internal/domain"
)

type contactRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewContactRepository creates a PostgreSQL-backed domain.ContactRepository.
func NewContactRepository(db *sql.DB) domain.ContactRepository {
	return &contactRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *contactRepository) Save(ctx context.Context, c *domain.Contact) error {
	row, err := c.Row.Row()
	if err != nil {
		return domain.NewValidationError("contact row must be a row reference: %v", err)
	}

	query, args, err := r.builder.Insert("contacts").
		Columns("id", "sheet_title", "sheet_row", "name", "website", "phone").
		Values(c.ID, c.SheetTitle, row, c.Name, c.Website, c.Phone).
		Suffix("ON CONFLICT (id) DO UPDATE SET sheet_title = EXCLUDED.sheet_title, sheet_row = EXCLUDED.sheet_row, name = EXCLUDED.name, website = EXCLUDED.website, phone = EXCLUDED.phone").
		ToSql()
	if err != nil {
		return domain.NewPersistenceError("build contact insert", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewPersistenceError("save contact", err)
	}
	return nil
}

func (r *contactRepository) scanContact(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Contact, error) {
	var (
		id, sheetTitle, name, website, phone string
		sheetRow                             int
	)
	if err := row.Scan(&id, &sheetTitle, &sheetRow, &name, &website, &phone); err != nil {
		return nil, err
	}
	ref, err := domain.NewRowReference(sheetRow)
	if err != nil {
		return nil, domain.NewPersistenceError("reconstruct contact row reference", err)
	}
	return domain.NewContact(id, sheetTitle, ref, name, website, phone)
}

func (r *contactRepository) FindByID(ctx context.Context, id string) (*domain.Contact, error) {
	query, args, err := r.builder.Select("id", "sheet_title", "sheet_row", "name", "website", "phone").
		From("contacts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build contact select", err)
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	contact, err := r.scanContact(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "contact", ID: id}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan contact", err)
	}
	return contact, nil
}

func (r *contactRepository) FindBySheetRow(ctx context.Context, sheetTitle string, row int) (*domain.Contact, error) {
	query, args, err := r.builder.Select("id", "sheet_title", "sheet_row", "name", "website", "phone").
		From("contacts").
		Where(sq.Eq{"sheet_title": sheetTitle, "sheet_row": row}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build contact select by sheet row", err)
	}
	dbRow := r.db.QueryRowContext(ctx, query, args...)
	contact, err := r.scanContact(dbRow)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "contact", ID: sheetTitle}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan contact by sheet row", err)
	}
	return contact, nil
}

func (r *contactRepository) List(ctx context.Context) ([]*domain.Contact, error) {
	query, args, err := r.builder.Select("id", "sheet_title", "sheet_row", "name", "website", "phone").
		From("contacts").
		OrderBy("sheet_title", "sheet_row").
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build contact list", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("list contacts", err)
	}
	defer rows.Close()

	var out []*domain.Contact
	for rows.Next() {
		contact, err := r.scanContact(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan contact row", err)
		}
		out = append(out, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("iterate contacts", err)
	}
	return out, nil
}
