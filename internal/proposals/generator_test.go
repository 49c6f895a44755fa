package proposals

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansync/backend/internal/findings"
	"github.com/plansync/backend/internal/llm"
	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/internal/storage/models"
)

// fakeCompleter returns a canned response, or an error, for every request.
type fakeCompleter struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

const validProposalJSON = `Here is the plan:
` + "```json" + `
{
  "proposals": [
    {
      "action_title": "Quarterly Risk Reviews",
      "description": "Run quarterly risk assessment reviews.",
      "budget_estimate": 500000,
      "timeline": "Q1 2026 - Q4 2026",
      "expected_kpis": ["4 reviews per year"],
      "rationale": "Closes the review gap",
      "expected_impact": "Raises objective score"
    },
    {
      "action_title": "KPI Dashboard",
      "description": "Stand up a KPI dashboard.",
      "budget_estimate": 250000
    }
  ]
}
` + "```"

func strategicDoc() *models.PlanDocument {
	target := 20.0
	return &models.PlanDocument{
		ID:           "sp1",
		DocumentType: models.DocTypeStrategicPlan,
		Title:        "Strategic Plan 2026",
		Sections: []models.Section{
			{
				ID:       "s1",
				Type:     models.SectionStrategicObjective,
				Title:    "Expand market presence",
				Budget:   2000000,
				Timeline: "2026-2028",
				KPIs:     []models.KPI{{Metric: "Market share", Target: &target, Unit: "%"}},
			},
		},
	}
}

func TestGenerateForWeakObjectives(t *testing.T) {
	completer := &fakeCompleter{content: validProposalJSON}
	g := NewGenerator(completer)

	result := scoring.Result{
		EntityScore: 80,
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveID: "obj1", ObjectiveTitle: "Expand market presence", CombinedScore: 42},
			{ObjectiveID: "obj2", ObjectiveTitle: "Strong objective", CombinedScore: 90},
		},
	}

	out := g.Generate(context.Background(), strategicDoc(), result, nil)
	require.Len(t, out, 2)
	assert.Equal(t, 1, completer.calls)

	first := out[0]
	assert.Equal(t, "proposal_obj1_0", first.ID)
	assert.Equal(t, "high", first.Priority)
	assert.Equal(t, "obj1", first.ObjectiveID)
	assert.Equal(t, "Expand market presence", first.ObjectiveTitle)
	assert.Equal(t, "Quarterly Risk Reviews", first.ActionTitle)
	assert.Equal(t, 500000.0, first.BudgetEstimate)
	assert.Equal(t, StatusPending, first.Status)

	// Missing fields coerce to safe defaults.
	second := out[1]
	assert.Equal(t, "proposal_obj1_1", second.ID)
	assert.Equal(t, "TBD", second.Timeline)
	assert.NotNil(t, second.ExpectedKPIs)
	assert.Empty(t, second.ExpectedKPIs)
}

func TestGenerateTargetsThreeWeakestObjectives(t *testing.T) {
	completer := &fakeCompleter{content: validProposalJSON}
	g := NewGenerator(completer)

	result := scoring.Result{
		EntityScore: 80,
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 70},
			{ObjectiveID: "obj2", ObjectiveTitle: "B", CombinedScore: 40},
			{ObjectiveID: "obj3", ObjectiveTitle: "C", CombinedScore: 55},
			{ObjectiveID: "obj4", ObjectiveTitle: "D", CombinedScore: 68},
		},
	}

	out := g.Generate(context.Background(), strategicDoc(), result, nil)

	// Three weakest objectives, one completion each.
	assert.Equal(t, 3, completer.calls)
	require.Len(t, out, 6)
	assert.Equal(t, "obj2", out[0].ObjectiveID)
	assert.Equal(t, "high", out[0].Priority)
	assert.Equal(t, "obj3", out[2].ObjectiveID)
	assert.Equal(t, "medium", out[2].Priority)
	assert.Equal(t, "obj4", out[4].ObjectiveID)
	assert.Equal(t, "low", out[4].Priority)
}

func TestGenerateFromFindingsWhenNoWeakObjectives(t *testing.T) {
	completer := &fakeCompleter{content: validProposalJSON}
	g := NewGenerator(completer)

	result := scoring.Result{
		EntityScore: 80,
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 90},
		},
	}
	findingList := []findings.Finding{
		{ID: "entities_1", Severity: findings.SeverityHigh, Title: "Coverage gaps", AffectedObjective: "Multiple objectives"},
		{ID: "medium_2", Severity: findings.SeverityMedium},
	}

	out := g.Generate(context.Background(), strategicDoc(), result, findingList)

	// Only the high finding drives generation.
	assert.Equal(t, 1, completer.calls)
	require.Len(t, out, 2)
	assert.Equal(t, "proposal_finding_entities_1_0", out[0].ID)
	assert.Equal(t, "finding_entities_1", out[0].ObjectiveID)
	assert.Equal(t, "Multiple objectives", out[0].ObjectiveTitle)
	assert.Equal(t, "medium", out[0].Priority)
}

func TestGenerateEntityTrackingWhenScoreLow(t *testing.T) {
	completer := &fakeCompleter{content: validProposalJSON}
	g := NewGenerator(completer)

	result := scoring.Result{
		EntityScore:       45,
		UnmatchedEntities: 14,
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 90},
		},
	}

	out := g.Generate(context.Background(), strategicDoc(), result, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "proposal_entity_tracking_0", out[0].ID)
	assert.Equal(t, "entity_tracking", out[0].ObjectiveID)
	assert.Equal(t, "Enterprise-wide KPI Tracking", out[0].ObjectiveTitle)
	assert.Equal(t, "medium", out[0].Priority)
}

func TestGenerateDegradesOnCompleterError(t *testing.T) {
	g := NewGenerator(&fakeCompleter{err: errors.New("service down")})

	result := scoring.Result{
		EntityScore: 80,
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 42},
		},
	}

	assert.Empty(t, g.Generate(context.Background(), strategicDoc(), result, nil))
}

func TestGenerateDegradesOnMalformedResponse(t *testing.T) {
	g := NewGenerator(&fakeCompleter{content: "I cannot produce JSON right now."})

	result := scoring.Result{
		EntityScore: 80,
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveID: "obj1", ObjectiveTitle: "A", CombinedScore: 42},
		},
	}

	assert.Empty(t, g.Generate(context.Background(), strategicDoc(), result, nil))
}
