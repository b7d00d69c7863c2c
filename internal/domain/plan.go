package domain

import "context"

//go:generate mockgen -destination mocks/mock_plan_repository.go -package mocks github.com/mailcadence/sequencer/internal/domain PlanRepository

// PlanType distinguishes a stock cadence from an operator-authored one.
type PlanType string

const (
	PlanTypeDefault PlanType = "DEFAULT"
	PlanTypeCustom  PlanType = "CUSTOM"
)

func (p PlanType) Validate() error {
	switch p {
	case PlanTypeDefault, PlanTypeCustom:
		return nil
	}
	return NewValidationError("invalid plan type: %q", p)
}

// FollowUpStep is one step of a plan's cadence. Step 0 is the initial step
// (spec.md §3).
type FollowUpStep struct {
	StepNumber int
	WaitDays   int
	TemplateID string
}

func (s FollowUpStep) validate(expectedIndex int) error {
	if s.StepNumber < 0 {
		return NewValidationError("step number must be >= 0, got %d", s.StepNumber)
	}
	if s.WaitDays < 0 {
		return NewValidationError("step %d: wait period must be >= 0 days", s.StepNumber)
	}
	if s.StepNumber != expectedIndex {
		return NewValidationError("step numbers must be contiguous from 0: expected %d, got %d", expectedIndex, s.StepNumber)
	}
	return nil
}

// FollowUpPlan is an ordered, contiguous list of steps (spec.md §3).
type FollowUpPlan struct {
	ID       string
	PlanType PlanType
	Steps    []FollowUpStep
}

// NewFollowUpPlan validates that every step's StepNumber equals its index
// and steps are already ordered by StepNumber.
func NewFollowUpPlan(id string, planType PlanType, steps []FollowUpStep) (*FollowUpPlan, error) {
	if id == "" {
		return nil, NewValidationError("plan id is required")
	}
	if err := planType.Validate(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, NewValidationError("plan %q must have at least one step (the initial step)", id)
	}
	for i, step := range steps {
		if err := step.validate(i); err != nil {
			return nil, NewValidationError("plan %q: %v", id, err)
		}
	}
	return &FollowUpPlan{ID: id, PlanType: planType, Steps: steps}, nil
}

// MaxFollowupIndex returns N, the highest follow-up index in the plan.
func (p *FollowUpPlan) MaxFollowupIndex() int {
	return len(p.Steps) - 1
}

// PlanWithTemplate pairs a plan's steps one-to-one with resolved templates,
// indexed by step number (spec.md §3).
type PlanWithTemplate struct {
	Plan      *FollowUpPlan
	Templates map[int]*Template
}

// TemplateForStep returns the template bound to a given step number.
func (pt *PlanWithTemplate) TemplateForStep(stepNumber int) (*Template, error) {
	t, ok := pt.Templates[stepNumber]
	if !ok {
		return nil, &ErrNotFound{Entity: "template for plan step", ID: itoa(stepNumber)}
	}
	return t, nil
}

// PlanRepository persists FollowUpPlan aggregates (spec.md §4, C7).
type PlanRepository interface {
	Save(ctx context.Context, p *FollowUpPlan) error
	FindByID(ctx context.Context, id string) (*FollowUpPlan, error)
	List(ctx context.Context) ([]*FollowUpPlan, error)
}
