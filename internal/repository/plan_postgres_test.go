package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailcadence/sequencer/internal/domain"
)

func newMockPlanRepo(t *testing.T) (domain.PlanRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPlanRepository(db), mock, func() { db.Close() }
}

func TestPlanRepository_SaveAndFindByID(t *testing.T) {
	repo, mock, closeFn := newMockPlanRepo(t)
	defer closeFn()

	steps := []domain.FollowUpStep{
		{StepNumber: 0, WaitDays: 0, TemplateID: "tmpl-0"},
		{StepNumber: 1, WaitDays: 3, TemplateID: "tmpl-1"},
	}
	plan, err := domain.NewFollowUpPlan("plan-1", domain.PlanTypeDefault, steps)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO plans").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Save(context.Background(), plan))
	require.NoError(t, mock.ExpectationsWereMet())

	stepsJSON := `[{"StepNumber":0,"WaitDays":0,"TemplateID":"tmpl-0"},{"StepNumber":1,"WaitDays":3,"TemplateID":"tmpl-1"}]`
	mock.ExpectQuery("SELECT id, plan_type, steps FROM plans").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_type", "steps"}).
			AddRow("plan-1", "DEFAULT", stepsJSON))

	got, err := repo.FindByID(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.MaxFollowupIndex())
}

func TestPlanRepository_FindByID_NotFound(t *testing.T) {
	repo, mock, closeFn := newMockPlanRepo(t)
	defer closeFn()

	mock.ExpectQuery("SELECT id, plan_type, steps FROM plans").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_type", "steps"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Error(t, err)
	var notFound *domain.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}
