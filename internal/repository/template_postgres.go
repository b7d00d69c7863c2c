package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mailcadence/sequencer/internal/domain"
)

type templateRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewTemplateRepository creates a PostgreSQL-backed domain.TemplateRepository.
func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *templateRepository) Save(ctx context.Context, t *domain.Template) error {
	storeJSON, err := json.Marshal(t.Store)
	if err != nil {
		return domain.NewPersistenceError("marshal template store", err)
	}

	query, args, err := r.builder.Insert("templates").
		Columns("id", "type", "subject", "body", "placeholder_store").
		Values(t.ID, string(t.Type), t.Subject, t.Body, storeJSON).
		Suffix("ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, subject = EXCLUDED.subject, body = EXCLUDED.body, placeholder_store = EXCLUDED.placeholder_store").
		ToSql()
	if err != nil {
		return domain.NewPersistenceError("build template insert", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewPersistenceError("save template", err)
	}
	return nil
}

func (r *templateRepository) scanTemplate(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Template, error) {
	var (
		id, typ, subject, body string
		storeJSON              []byte
	)
	if err := row.Scan(&id, &typ, &subject, &body, &storeJSON); err != nil {
		return nil, err
	}
	var store domain.PlaceholderStore
	if err := json.Unmarshal(storeJSON, &store); err != nil {
		return nil, domain.NewPersistenceError("unmarshal template store", err)
	}
	return domain.NewTemplate(id, domain.TemplateType(typ), subject, body, &store)
}

func (r *templateRepository) FindByID(ctx context.Context, id string) (*domain.Template, error) {
	query, args, err := r.builder.Select("id", "type", "subject", "body", "placeholder_store").
		From("templates").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build template select", err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	tmpl, err := r.scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "template", ID: id}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan template", err)
	}
	return tmpl, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*domain.Template, error) {
	query, args, err := r.builder.Select("id", "type", "subject", "body", "placeholder_store").
		From("templates").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build template list", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("list templates", err)
	}
	defer rows.Close()

	var out []*domain.Template
	for rows.Next() {
		tmpl, err := r.scanTemplate(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan template row", err)
		}
		out = append(out, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("iterate templates", fmt.Errorf("%w", err))
	}
	return out, nil
}
