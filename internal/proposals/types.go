package proposals

import (
	"time"

	"github.com/plansync/backend/internal/storage/models"
)

// Proposal statuses. Pending is the only non-terminal state.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Proposal is an agent-generated action item candidate. Status is the only
// field that changes after generation.
type Proposal struct {
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

func toRecord(p Proposal) models.ProposalRecord {
	return models.ProposalRecord(p)
}

func fromRecord(r models.ProposalRecord) Proposal {
	return Proposal(r)
}

// FromRecords converts persisted rows back to domain proposals.
func FromRecords(records []models.ProposalRecord) []Proposal {
	out := make([]Proposal, len(records))
	for i, r := range records {
		out[i] = fromRecord(r)
	}
	return out
}
