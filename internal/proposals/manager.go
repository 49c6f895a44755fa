package proposals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/internal/storage/sqlite"
	"github.com/plansync/backend/pkg/logger"
)

var (
	// ErrProposalNotFound is returned when the referenced proposal id does
	// not exist.
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrProposalFinalized is returned when accepting or rejecting a
	// proposal that already left the pending state.
	ErrProposalFinalized = errors.New("proposal already finalized")
)

// Store is the persistence surface the lifecycle manager needs.
type Store interface {
	GetProposal(id string) (*models.ProposalRecord, error)
	InsertProposals(proposals []models.ProposalRecord) error
	ListProposals(runID string) ([]models.ProposalRecord, error)
	UpdateProposalStatus(id, status string) error
	GetDocument(id string) (*models.PlanDocument, error)
	FinalizeAcceptance(doc *models.PlanDocument, proposalID string) error
}

// Manager owns the proposal state machine: pending -> accepted or rejected,
// both terminal. Acceptance also writes the derived action section into the
// action plan; scores refresh only on the next full analysis run.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Save persists freshly generated proposals under a run.
func (m *Manager) Save(runID string, proposalSet []Proposal) error {
	now := time.Now()
	records := make([]models.ProposalRecord, len(proposalSet))
	for i, p := range proposalSet {
		p.RunID = runID
		p.Status = StatusPending
		p.CreatedAt = now
		p.UpdatedAt = now
		records[i] = toRecord(p)
	}
	return m.store.InsertProposals(records)
}

// Get returns one proposal by id.
func (m *Manager) Get(id string) (*Proposal, error) {
	record, err := m.store.GetProposal(id)
	if errors.Is(err, sqlite.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p := fromRecord(*record)
	return &p, nil
}

// List returns the proposals of a run in insertion order.
func (m *Manager) List(runID string) ([]Proposal, error) {
	records, err := m.store.ListProposals(runID)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// Accept finalizes a pending proposal: it appends a derived action section to
// the action plan, raises the plan's total budget when one is tracked, and
// flips the status, all in one storage transaction. Either everything lands
// or the plan is untouched.
func (m *Manager) Accept(ctx context.Context, proposalID, actionPlanID string) (*models.PlanDocument, error) {
	record, err := m.store.GetProposal(proposalID)
	if errors.Is(err, sqlite.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if err != nil {
		return nil, err
	}

	if record.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrProposalFinalized, proposalID, record.Status)
	}

	doc, err := m.store.GetDocument(actionPlanID)
	if errors.Is(err, sqlite.ErrNoRows) {
		return nil, fmt.Errorf("action plan not found: %s", actionPlanID)
	}
	if err != nil {
		return nil, err
	}

	kpis := make([]models.KPI, len(record.ExpectedKPIs))
	for i, metric := range record.ExpectedKPIs {
		kpis[i] = models.KPI{Metric: metric}
	}

	section := models.Section{
		ID:          fmt.Sprintf("action_agent_%d", len(doc.Sections)+1),
		Type:        models.SectionActionItem,
		Title:       record.ActionTitle,
		Content:     record.Description,
		KPIs:        kpis,
		Budget:      record.BudgetEstimate,
		Timeline:    record.Timeline,
		Initiatives: []string{},
		Priority:    record.Priority,
	}

	doc.Sections = append(doc.Sections, section)

	if doc.TotalBudget != nil {
		*doc.TotalBudget += record.BudgetEstimate
	}

	err = m.store.FinalizeAcceptance(doc, proposalID)
	if errors.Is(err, sqlite.ErrNoRows) {
		// The status changed between the read and the transaction.
		return nil, fmt.Errorf("%w: %s", ErrProposalFinalized, proposalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize acceptance: %w", err)
	}

	logger.Info("Proposal accepted",
		zap.String("proposal_id", proposalID),
		zap.String("action_plan_id", actionPlanID),
		zap.String("new_section_id", section.ID),
		zap.Float64("budget_estimate", record.BudgetEstimate),
	)

	return doc, nil
}

// Reject finalizes a pending proposal without touching the action plan.
func (m *Manager) Reject(ctx context.Context, proposalID string) error {
	record, err := m.store.GetProposal(proposalID)
	if errors.Is(err, sqlite.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if err != nil {
		return err
	}

	if record.Status != StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrProposalFinalized, proposalID, record.Status)
	}

	if err := m.store.UpdateProposalStatus(proposalID, StatusRejected); err != nil {
		return fmt.Errorf("failed to reject proposal: %w", err)
	}

	logger.Info("Proposal rejected", zap.String("proposal_id", proposalID))

	return nil
}
