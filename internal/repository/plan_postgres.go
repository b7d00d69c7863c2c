package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/mailcadence/sequencer/internal/domain"
)

type planRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewPlanRepository creates a PostgreSQL-backed domain.PlanRepository.
func NewPlanRepository(db *sql.DB) domain.PlanRepository {
	return &planRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *planRepository) Save(ctx context.Context, p *domain.FollowUpPlan) error {
	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return domain.NewPersistenceError("marshal plan steps", err)
	}

	query, args, err := r.builder.Insert("plans").
		Columns("id", "plan_type", "steps").
		Values(p.ID, string(p.PlanType), stepsJSON).
		Suffix("ON CONFLICT (id) DO UPDATE SET plan_type = EXCLUDED.plan_type, steps = EXCLUDED.steps").
		ToSql()
	if err != nil {
		return domain.NewPersistenceError("build plan insert", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.NewPersistenceError("save plan", err)
	}
	return nil
}

func (r *planRepository) scanPlan(row interface {
	Scan(dest ...interface{}) error
}) (*domain.FollowUpPlan, error) {
	var (
		id, planType string
		stepsJSON    []byte
	)
	if err := row.Scan(&id, &planType, &stepsJSON); err != nil {
		return nil, err
	}
	var steps []domain.FollowUpStep
	if err := json.Unmarshal(stepsJSON, &steps); err != nil {
		return nil, domain.NewPersistenceError("unmarshal plan steps", err)
	}
	return domain.NewFollowUpPlan(id, domain.PlanType(planType), steps)
}

func (r *planRepository) FindByID(ctx context.Context, id string) (*domain.FollowUpPlan, error) {
	query, args, err := r.builder.Select("id", "plan_type", "steps").
		From("plans").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build plan select", err)
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	plan, err := r.scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "plan", ID: id}
	}
	if err != nil {
		return nil, domain.NewPersistenceError("scan plan", err)
	}
	return plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]*domain.FollowUpPlan, error) {
	query, args, err := r.builder.Select("id", "plan_type", "steps").
		From("plans").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, domain.NewPersistenceError("build plan list", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("list plans", err)
	}
	defer rows.Close()

	var out []*domain.FollowUpPlan
	for rows.Next() {
		plan, err := r.scanPlan(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan plan row", err)
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("iterate plans", err)
	}
	return out, nil
}
