package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansync/backend/internal/entities"
)

func strongObjective(title string, score float64) ObjectiveSync {
	return ObjectiveSync{
		ObjectiveTitle:   title,
		CombinedScore:    score,
		EmbeddingScore:   score,
		EntityMatches:    3,
		HasStrongSupport: true,
	}
}

func weakObjective(title string, score float64) ObjectiveSync {
	return ObjectiveSync{
		ObjectiveTitle:   title,
		CombinedScore:    score,
		EmbeddingScore:   score,
		HasStrongSupport: false,
	}
}

func TestStrengthsAllStrong(t *testing.T) {
	r := &RuleBasedInsights{}

	strengths := r.IdentifyStrengths(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{
			strongObjective("A", 80),
			strongObjective("B", 82),
		},
	})

	assert.Contains(t, strengths, "All strategic objectives have strong supporting actions")
}

func TestStrengthsMostlyStrong(t *testing.T) {
	r := &RuleBasedInsights{}

	strengths := r.IdentifyStrengths(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{
			strongObjective("A", 80),
			strongObjective("B", 82),
			strongObjective("C", 78),
			strongObjective("D", 85),
			weakObjective("E", 60),
		},
	})

	assert.Contains(t, strengths, "4/5 strategic objectives have strong support")
}

func TestStrengthsEntityMatching(t *testing.T) {
	r := &RuleBasedInsights{}

	strengths := r.IdentifyStrengths(context.Background(), InsightInput{MatchRate: 90})
	assert.Contains(t, strengths, "Excellent entity matching (90%) - KPIs and targets well-aligned")

	strengths = r.IdentifyStrengths(context.Background(), InsightInput{MatchRate: 72})
	assert.Contains(t, strengths, "Good entity matching (72%) - most targets are tracked")
}

func TestStrengthsSemanticAlignment(t *testing.T) {
	r := &RuleBasedInsights{}

	strengths := r.IdentifyStrengths(context.Background(), InsightInput{AverageSimilarity: 0.90})
	assert.Contains(t, strengths, "Very high semantic alignment (0.90) - actions clearly address objectives")
}

func TestStrengthsExemplaryObjective(t *testing.T) {
	r := &RuleBasedInsights{}

	strengths := r.IdentifyStrengths(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{
			weakObjective("A", 60),
			strongObjective("Customer Excellence", 92),
		},
	})

	assert.Contains(t, strengths, "Exemplary alignment on 'Customer Excellence'")
}

func TestStrengthsDefault(t *testing.T) {
	r := &RuleBasedInsights{}

	strengths := r.IdentifyStrengths(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{weakObjective("A", 60)},
		MatchRate:  40,
	})

	assert.Equal(t, []string{"Action plan shows general alignment with strategic direction"}, strengths)
}

func TestWeaknesses(t *testing.T) {
	r := &RuleBasedInsights{}

	weaknesses := r.IdentifyWeaknesses(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{
			weakObjective("A", 60),
			weakObjective("B", 55),
			strongObjective("C", 90),
		},
		MatchRate: 40,
		UnmatchedStrategic: []entities.Entity{
			{Text: "kpi one", Type: entities.TypeKPI},
			{Text: "kpi two", Type: entities.TypeKPI},
			{Text: "kpi three", Type: entities.TypeKPI},
			{Text: "goal one", Type: entities.TypeGoal},
		},
	})

	assert.Contains(t, weaknesses, "2 strategic objectives lack strong supporting actions")
	assert.Contains(t, weaknesses, "3 KPI entities not tracked in action plan")
	assert.NotContains(t, weaknesses, "1 GOAL entities not tracked in action plan")
	assert.Contains(t, weaknesses, "Low entity match rate (40%) - many strategic targets missing from actions")
}

func TestWeaknessesNoneWhenAligned(t *testing.T) {
	r := &RuleBasedInsights{}

	weaknesses := r.IdentifyWeaknesses(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{strongObjective("A", 90)},
		MatchRate:  85,
	})

	assert.Empty(t, weaknesses)
}

func TestRecommendationsWeakestFirst(t *testing.T) {
	r := &RuleBasedInsights{}

	recs := r.GenerateRecommendations(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{
			weakObjective("B", 60),
			weakObjective("A", 40),
			weakObjective("C", 70),
			weakObjective("D", 65),
		},
	})

	// Weakest three, ascending, capped at 3.
	require.Len(t, recs, 3)
	assert.Equal(t, "A", recs[0].Objective)
	assert.Equal(t, "high", recs[0].Priority)
	assert.Equal(t, "B", recs[1].Objective)
	assert.Equal(t, "medium", recs[1].Priority)
	assert.Equal(t, "D", recs[2].Objective)
}

func TestRecommendationActions(t *testing.T) {
	r := &RuleBasedInsights{}

	recs := r.GenerateRecommendations(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{weakObjective("A", 40)},
	})

	require.Len(t, recs, 1)
	assert.Equal(t, []string{
		"Review action plan to ensure it directly addresses the strategic intent",
		"Add explicit KPIs, targets, and timelines matching strategic plan",
		"Create new action items specifically supporting this objective",
	}, recs[0].Actions)
}

func TestRecommendationsGlobalReviewWhenManyWeak(t *testing.T) {
	r := &RuleBasedInsights{}

	var objectives []ObjectiveSync
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		objectives = append(objectives, weakObjective(title, 55))
	}

	recs := r.GenerateRecommendations(context.Background(), InsightInput{Objectives: objectives})

	require.Len(t, recs, 4)
	assert.Equal(t, "Overall Action Plan", recs[0].Objective)
	assert.Equal(t, "high", recs[0].Priority)
}

func TestRecommendationsNoneWhenAllStrong(t *testing.T) {
	r := &RuleBasedInsights{}

	recs := r.GenerateRecommendations(context.Background(), InsightInput{
		Objectives: []ObjectiveSync{strongObjective("A", 90)},
	})

	assert.Empty(t, recs)
}
