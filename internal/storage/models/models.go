package models

import (
	"time"

	"github.com/plansync/backend/internal/entities"
)

// Document types.
const (
	DocTypeStrategicPlan = "strategic_plan"
	DocTypeActionPlan    = "action_plan"
)

// Section types.
const (
	SectionStrategicObjective = "strategic_objective"
	SectionActionItem         = "action_item"
)

type KPI struct {
	Metric   string   `json:"metric"`
	Target   *float64 `json:"target"`
	Unit     string   `json:"unit"`
	Baseline *float64 `json:"baseline,omitempty"`
	Deadline string   `json:"deadline,omitempty"`
}

// Section is one objective or action item of a plan. Entities arrive
// pre-extracted by the upstream document processor.
type Section struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	KPIs        []KPI             `json:"kpis"`
	Budget      float64           `json:"budget"`
	Timeline    string            `json:"timeline"`
	Initiatives []string          `json:"initiatives"`
	Priority    string            `json:"priority,omitempty"`
	Entities    []entities.Entity `json:"entities,omitempty"`
}

// PlanDocument is a self-contained structured plan. TotalBudget is nil when
// the document does not track one.
type PlanDocument struct {
	ID             string    `json:"id"`
	DocumentType   string    `json:"document_type"`
	Title          string    `json:"title"`
	Organization   string    `json:"organization"`
	PlanningPeriod string    `json:"planning_period"`
	Sections       []Section `json:"sections"`
	TotalBudget    *float64  `json:"total_budget"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ObjectiveSections returns the strategic-objective sections in document order.
func (d *PlanDocument) ObjectiveSections() []Section {
	var out []Section
	for _, s := range d.Sections {
		if s.Type == SectionStrategicObjective {
			out = append(out, s)
		}
	}
	return out
}

// ActionSections returns the action-item sections in document order.
func (d *PlanDocument) ActionSections() []Section {
	var out []Section
	for _, s := range d.Sections {
		if s.Type == SectionActionItem {
			out = append(out, s)
		}
	}
	return out
}

// AllEntities flattens every section's entities in document order.
func (d *PlanDocument) AllEntities() []entities.Entity {
	var out []entities.Entity
	for _, s := range d.Sections {
		out = append(out, s.Entities...)
	}
	return out
}

// AnalysisRun is the canonical record of one full synchronization pass.
// Payload holds the complete result JSON.
type AnalysisRun struct {
	ID              string
	StrategicPlanID string
	ActionPlanID    string
	OverallScore    float64
	EmbeddingScore  float64
	EntityScore     float64
	Payload         string
	CreatedAt       time.Time
}

// ProposalRecord is the persisted form of an agent-generated proposal. Status
// is the only mutable field.
type ProposalRecord struct {
	ID             string    `json:"id"`
	RunID          string    `json:"run_id"`
	Priority       string    `json:"priority"`
	ObjectiveID    string    `json:"objective_id"`
	ObjectiveTitle string    `json:"objective_title"`
	ActionTitle    string    `json:"action_title"`
	Description    string    `json:"description"`
	BudgetEstimate float64   `json:"budget_estimate"`
	Timeline       string    `json:"timeline"`
	ExpectedKPIs   []string  `json:"expected_kpis"`
	Rationale      string    `json:"rationale"`
	ExpectedImpact string    `json:"expected_impact"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
