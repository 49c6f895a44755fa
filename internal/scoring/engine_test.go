package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansync/backend/internal/alignment"
	"github.com/plansync/backend/internal/entities"
	"github.com/plansync/backend/pkg/config"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		EmbeddingWeight:        0.60,
		EntityWeight:           0.40,
		StrongSupportThreshold: 75,
		SimilarityThreshold:    0.70,
		PointsPerMatch:         20,
	}
}

func TestNewEngineRejectsBadWeights(t *testing.T) {
	cfg := testScoringConfig()
	cfg.EmbeddingWeight = 0.5

	_, err := NewEngine(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestNewEngineAcceptsRoundedWeights(t *testing.T) {
	cfg := testScoringConfig()
	cfg.EmbeddingWeight = 0.604
	cfg.EntityWeight = 0.40

	_, err := NewEngine(cfg, nil)
	assert.NoError(t, err)
}

func TestFuseObjectivesStrongSupport(t *testing.T) {
	engine, err := NewEngine(testScoringConfig(), &RuleBasedInsights{})
	require.NoError(t, err)

	alignments := []alignment.ObjectiveAlignment{
		{
			ObjectiveID:    "obj1",
			ObjectiveTitle: "Modernize operations",
			BestSimilarity: 0.82,
			HasSupport:     true,
			TopMatches: []alignment.SimilarityMatch{
				{ActionSectionID: "a1", Similarity: 0.82},
			},
		},
	}

	var matches []entities.EntityMatch
	for i := 0; i < 6; i++ {
		matches = append(matches, entities.EntityMatch{
			Strategic: entities.Entity{SourceTitle: "Modernize operations"},
		})
	}

	syncs := engine.FuseObjectives(alignments, matches)
	require.Len(t, syncs, 1)

	obj := syncs[0]
	assert.InDelta(t, 82.0, obj.EmbeddingScore, 0.001)
	assert.Equal(t, 6, obj.EntityMatches)
	// Six matches saturate the per-objective score at 100.
	assert.Equal(t, 100.0, obj.EntityScore)
	assert.InDelta(t, 89.2, obj.CombinedScore, 0.001)
	assert.True(t, obj.HasStrongSupport)
	assert.Empty(t, obj.Gaps)
}

func TestFuseObjectivesGaps(t *testing.T) {
	engine, err := NewEngine(testScoringConfig(), &RuleBasedInsights{})
	require.NoError(t, err)

	alignments := []alignment.ObjectiveAlignment{
		{
			ObjectiveID:    "obj1",
			ObjectiveTitle: "Expand market presence",
			BestSimilarity: 0.50,
			HasSupport:     false,
		},
	}

	syncs := engine.FuseObjectives(alignments, nil)
	require.Len(t, syncs, 1)

	obj := syncs[0]
	assert.False(t, obj.HasStrongSupport)
	assert.Equal(t, []string{
		"Low semantic similarity - action may not address objective intent",
		"No explicit KPIs/targets matched in action plan",
		"Best match score (0.50) below threshold",
	}, obj.Gaps)
}

func TestFuseObjectivesCapsTopActions(t *testing.T) {
	engine, err := NewEngine(testScoringConfig(), &RuleBasedInsights{})
	require.NoError(t, err)

	alignments := []alignment.ObjectiveAlignment{
		{
			ObjectiveID:    "obj1",
			ObjectiveTitle: "x",
			BestSimilarity: 0.9,
			HasSupport:     true,
			TopMatches: []alignment.SimilarityMatch{
				{Similarity: 0.9}, {Similarity: 0.8}, {Similarity: 0.7}, {Similarity: 0.6}, {Similarity: 0.5},
			},
		},
	}

	syncs := engine.FuseObjectives(alignments, nil)
	require.Len(t, syncs, 1)
	assert.Len(t, syncs[0].TopActions, 3)
}

func TestCombine(t *testing.T) {
	engine, err := NewEngine(testScoringConfig(), &RuleBasedInsights{})
	require.NoError(t, err)

	assert.InDelta(t, 72.0, engine.Combine(80, 60), 0.001)
}

func TestInterpretBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, "Excellent - Strong alignment across all objectives"},
		{90, "Excellent - Strong alignment across all objectives"},
		{80, "Good - Minor gaps that should be addressed"},
		{75, "Good - Minor gaps that should be addressed"},
		{65, "Moderate - Significant improvements needed"},
		{60, "Moderate - Significant improvements needed"},
		{59.9, "Poor - Major misalignment requiring urgent attention"},
		{0, "Poor - Major misalignment requiring urgent attention"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Interpret(tc.score), "score %.1f", tc.score)
	}
}

func TestAssess(t *testing.T) {
	engine, err := NewEngine(testScoringConfig(), &RuleBasedInsights{})
	require.NoError(t, err)

	docAlign := alignment.DocumentAlignment{
		EmbeddingScore: 82,
		Objectives: []alignment.ObjectiveAlignment{
			{ObjectiveID: "obj1", ObjectiveTitle: "Modernize operations", BestSimilarity: 0.82, HasSupport: true},
		},
	}
	entityResult := entities.AnalysisResult{
		OverallScore:      70,
		MatchRate:         70,
		TotalStrategic:    10,
		MatchedEntities:   7,
		UnmatchedEntities: 3,
	}

	result := engine.Assess(context.Background(), "Strategic Plan 2026", "Action Plan 2026", docAlign, entityResult)

	assert.InDelta(t, 77.2, result.OverallScore, 0.001)
	assert.Equal(t, 82.0, result.EmbeddingScore)
	assert.Equal(t, 70.0, result.EntityScore)
	assert.Equal(t, "Good - Minor gaps that should be addressed", result.Interpretation)
	assert.Equal(t, 1, result.TotalObjectives)
	assert.Equal(t, 10, result.TotalStrategicEntities)
	assert.Equal(t, 3, result.UnmatchedEntities)
	assert.Equal(t, "Strategic Plan 2026", result.StrategicPlanTitle)
	assert.Equal(t, "Action Plan 2026", result.ActionPlanTitle)
	assert.NotEmpty(t, result.Strengths)
	assert.NotEmpty(t, result.AssessmentDate)
}
