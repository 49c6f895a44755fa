package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansync/backend/internal/scoring"
)

func TestDetectCriticalObjective(t *testing.T) {
	d := NewDetector()

	result := scoring.Result{
		Objectives: []scoring.ObjectiveSync{
			{
				ObjectiveTitle: "Expand market presence",
				CombinedScore:  42.5,
				EmbeddingScore: 48.0,
				EntityMatches:  0,
				Gaps:           []string{"No explicit KPIs/targets matched in action plan"},
			},
		},
	}

	found := d.Detect(result)
	require.Len(t, found, 1)

	f := found[0]
	assert.Equal(t, "critical_1", f.ID)
	assert.Equal(t, SeverityCritical, f.Severity)
	assert.Equal(t, "Severe Misalignment: Expand market presence", f.Title)
	assert.Equal(t, "Objective scoring only 42.5/100, indicating major gaps in action plan support.", f.Description)
	assert.Equal(t, "High - This strategic priority lacks adequate execution plan", f.Impact)
	assert.Equal(t, []string{
		"Embedding score: 48.0%",
		"Entity matches: 0",
		"Gaps: No explicit KPIs/targets matched in action plan",
	}, f.Evidence)
}

func TestDetectWeakSupportObjective(t *testing.T) {
	d := NewDetector()

	result := scoring.Result{
		Objectives: []scoring.ObjectiveSync{
			{
				ObjectiveTitle: "Improve retention",
				CombinedScore:  58.0,
				EntityMatches:  1,
				Gaps:           []string{"gap one", "gap two", "gap three"},
			},
		},
	}

	found := d.Detect(result)
	require.Len(t, found, 1)

	f := found[0]
	assert.Equal(t, "high_1", f.ID)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.Equal(t, "Weak Support: Improve retention", f.Title)
	assert.Equal(t, "Medium-High - Strategic goal at risk of underdelivery", f.Impact)
	// Evidence carries the match count plus at most two gaps.
	assert.Equal(t, []string{"Only 1 entity matches found", "gap one", "gap two"}, f.Evidence)
}

func TestDetectEntityCoverageGaps(t *testing.T) {
	d := NewDetector()

	result := scoring.Result{
		UnmatchedEntities: 12,
		EntityScore:       45.5,
	}

	found := d.Detect(result)
	require.Len(t, found, 1)

	f := found[0]
	assert.Equal(t, "entities_1", f.ID)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.Equal(t, "Significant Entity Coverage Gaps", f.Title)
	assert.Equal(t, "Multiple objectives", f.AffectedObjective)
	assert.Equal(t, []string{"Total unmatched: 12", "Match rate: 45.5%"}, f.Evidence)
}

func TestDetectNoFindingsOnHealthyPlan(t *testing.T) {
	d := NewDetector()

	result := scoring.Result{
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveTitle: "A", CombinedScore: 80},
			{ObjectiveTitle: "B", CombinedScore: 65},
		},
		UnmatchedEntities: 5,
	}

	assert.Empty(t, d.Detect(result))
}

func TestDetectSeverityOrderAndIDs(t *testing.T) {
	d := NewDetector()

	result := scoring.Result{
		Objectives: []scoring.ObjectiveSync{
			{ObjectiveTitle: "Weak one", CombinedScore: 58},
			{ObjectiveTitle: "Broken one", CombinedScore: 30},
		},
		UnmatchedEntities: 15,
	}

	found := d.Detect(result)
	require.Len(t, found, 3)

	// One counter spans all rules; sort is severity-stable.
	assert.Equal(t, "critical_1", found[0].ID)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.Equal(t, "high_2", found[1].ID)
	assert.Equal(t, "entities_3", found[2].ID)
	assert.Equal(t, SeverityHigh, found[2].Severity)
}
