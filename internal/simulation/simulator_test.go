package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansync/backend/internal/proposals"
	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/pkg/config"
)

func testSimulator() *Simulator {
	return NewSimulator(config.SimulationConfig{
		BaseImprovement:           12.0,
		DiminishingFactor:         0.7,
		EntityTrackingImprovement: 8.0,
	}, 0.40)
}

func objectiveProposal(objectiveID string) proposals.Proposal {
	return proposals.Proposal{ObjectiveID: objectiveID}
}

func TestSimulateDiminishingReturns(t *testing.T) {
	s := testSimulator()

	proposalSet := []proposals.Proposal{
		objectiveProposal("obj1"),
		objectiveProposal("obj1"),
		objectiveProposal("obj1"),
	}
	objectives := []scoring.ObjectiveSync{
		{ObjectiveID: "obj1", ObjectiveTitle: "Modernize operations", CombinedScore: 50},
	}

	result := s.Simulate(proposalSet, objectives, 55, 70)

	// 12 + 12*0.7 + 12*0.49 = 26.28
	require.Len(t, result.AffectedObjectives, 1)
	obj := result.AffectedObjectives[0]
	assert.Equal(t, 50.0, obj.CurrentScore)
	assert.InDelta(t, 76.28, obj.ProjectedScore, 0.001)
	assert.InDelta(t, 26.28, obj.Improvement, 0.001)

	assert.Equal(t, 55.0, result.CurrentScore)
	assert.InDelta(t, 81.28, result.ProjectedScore, 0.001)
	assert.InDelta(t, 26.28, result.Improvement, 0.001)
}

func TestSimulateCapsAtHundred(t *testing.T) {
	s := testSimulator()

	result := s.Simulate(
		[]proposals.Proposal{objectiveProposal("obj1")},
		[]scoring.ObjectiveSync{{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 95}},
		96, 80,
	)

	require.Len(t, result.AffectedObjectives, 1)
	assert.Equal(t, 100.0, result.AffectedObjectives[0].ProjectedScore)
	assert.InDelta(t, 5.0, result.AffectedObjectives[0].Improvement, 0.001)
	assert.InDelta(t, 100.0, result.ProjectedScore, 0.001)
}

func TestSimulateAveragesOverAllObjectives(t *testing.T) {
	s := testSimulator()

	objectives := []scoring.ObjectiveSync{
		{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 50},
		{ObjectiveID: "obj2", ObjectiveTitle: "B", CombinedScore: 80},
		{ObjectiveID: "obj3", ObjectiveTitle: "C", CombinedScore: 70},
	}

	result := s.Simulate([]proposals.Proposal{objectiveProposal("obj1")}, objectives, 60, 70)

	// One proposal lifts obj1 by 12; the overall uplift dilutes over all
	// three objectives.
	require.Len(t, result.AffectedObjectives, 1)
	assert.InDelta(t, 12.0, result.AffectedObjectives[0].Improvement, 0.001)
	assert.InDelta(t, 64.0, result.ProjectedScore, 0.001)
}

func TestSimulateEntityTrackingOnly(t *testing.T) {
	s := testSimulator()

	proposalSet := []proposals.Proposal{
		objectiveProposal("entity_tracking"),
		objectiveProposal("entity_tracking"),
	}

	result := s.Simulate(proposalSet, nil, 70, 50)

	require.Len(t, result.AffectedObjectives, 1)
	pseudo := result.AffectedObjectives[0]
	assert.Equal(t, "Entity Tracking & KPI Coverage", pseudo.ObjectiveTitle)
	assert.Equal(t, 50.0, pseudo.CurrentScore)
	assert.InDelta(t, 66.0, pseudo.ProjectedScore, 0.001)

	// Raw accumulated improvement through the entity weight, undiluted.
	assert.InDelta(t, 76.4, result.ProjectedScore, 0.001)
}

func TestSimulateFindingProposalsCountAsEntityTracking(t *testing.T) {
	s := testSimulator()

	result := s.Simulate(
		[]proposals.Proposal{objectiveProposal("finding_critical_1")},
		[]scoring.ObjectiveSync{{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 50}},
		60, 40,
	)

	require.Len(t, result.AffectedObjectives, 1)
	assert.Equal(t, "Entity Tracking & KPI Coverage", result.AffectedObjectives[0].ObjectiveTitle)
}

func TestSimulateNoProposals(t *testing.T) {
	s := testSimulator()

	result := s.Simulate(nil, []scoring.ObjectiveSync{{ObjectiveID: "obj1", CombinedScore: 50}}, 62, 70)

	assert.Equal(t, 62.0, result.CurrentScore)
	assert.Equal(t, 62.0, result.ProjectedScore)
	assert.Equal(t, 0.0, result.Improvement)
	assert.Empty(t, result.AffectedObjectives)
}

func TestSimulateMixedProposals(t *testing.T) {
	s := testSimulator()

	proposalSet := []proposals.Proposal{
		objectiveProposal("obj1"),
		objectiveProposal("entity_tracking"),
	}
	objectives := []scoring.ObjectiveSync{
		{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 50},
	}

	result := s.Simulate(proposalSet, objectives, 60, 50)

	require.Len(t, result.AffectedObjectives, 2)

	// obj1 uplift 12 plus the entity uplift 8 weighted by 0.4, averaged over
	// one objective.
	assert.InDelta(t, 75.2, result.ProjectedScore, 0.001)
}
