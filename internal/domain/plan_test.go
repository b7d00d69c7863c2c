package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFollowUpPlan_Valid(t *testing.T) {
	steps := []FollowUpStep{
		{StepNumber: 0, WaitDays: 0, TemplateID: "tmpl-0"},
		{StepNumber: 1, WaitDays: 3, TemplateID: "tmpl-1"},
		{StepNumber: 2, WaitDays: 7, TemplateID: "tmpl-2"},
	}
	plan, err := NewFollowUpPlan("plan-1", PlanTypeDefault, steps)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.MaxFollowupIndex())
}

func TestNewFollowUpPlan_EmptyStepsRejected(t *testing.T) {
	_, err := NewFollowUpPlan("plan-1", PlanTypeDefault, nil)
	assert.Error(t, err)
}

func TestNewFollowUpPlan_NonContiguousStepsRejected(t *testing.T) {
	steps := []FollowUpStep{
		{StepNumber: 0, WaitDays: 0, TemplateID: "tmpl-0"},
		{StepNumber: 2, WaitDays: 3, TemplateID: "tmpl-2"},
	}
	_, err := NewFollowUpPlan("plan-1", PlanTypeDefault, steps)
	assert.Error(t, err)
}

func TestNewFollowUpPlan_NegativeWaitDaysRejected(t *testing.T) {
	steps := []FollowUpStep{
		{StepNumber: 0, WaitDays: -1, TemplateID: "tmpl-0"},
	}
	_, err := NewFollowUpPlan("plan-1", PlanTypeDefault, steps)
	assert.Error(t, err)
}

func TestNewFollowUpPlan_InvalidPlanTypeRejected(t *testing.T) {
	steps := []FollowUpStep{{StepNumber: 0, WaitDays: 0, TemplateID: "tmpl-0"}}
	_, err := NewFollowUpPlan("plan-1", PlanType("BOGUS"), steps)
	assert.Error(t, err)
}

func TestPlanWithTemplate_TemplateForStep(t *testing.T) {
	steps := []FollowUpStep{{StepNumber: 0, WaitDays: 0, TemplateID: "tmpl-0"}}
	plan, err := NewFollowUpPlan("plan-1", PlanTypeDefault, steps)
	require.NoError(t, err)

	store := mustStore(t)
	tmpl, err := NewTemplate("tmpl-0", TemplateTypeInitial, "subject", "body", store)
	require.NoError(t, err)

	pt := &PlanWithTemplate{Plan: plan, Templates: map[int]*Template{0: tmpl}}
	found, err := pt.TemplateForStep(0)
	require.NoError(t, err)
	assert.Equal(t, "tmpl-0", found.ID)

	_, err = pt.TemplateForStep(1)
	assert.Error(t, err)
}
