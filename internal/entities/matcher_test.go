package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect(t *testing.T) {
	input := []Entity{
		{Text: "Customer Satisfaction Score", Type: TypeKPI},
		{Text: "customer satisfaction score", Type: TypeKPI},
		{Text: "  Customer Satisfaction Score  ", Type: TypeMetricTarget},
		{Text: "KPI", Type: TypeKPI},
		{Text: "Expand into new markets", Type: TypeGoal},
	}

	grouped := Collect(input)

	// Dedup key is normalized text regardless of type, and short texts drop.
	assert.Len(t, grouped[TypeKPI], 1)
	assert.Empty(t, grouped[TypeMetricTarget])
	assert.Len(t, grouped[TypeGoal], 1)
	assert.Equal(t, "Customer Satisfaction Score", grouped[TypeKPI][0].Text)
}

func TestSimilarityExactMatch(t *testing.T) {
	m := NewMatcher(85)

	score, matchType := m.Similarity("Revenue Growth 20%", "revenue growth 20%  ")
	assert.Equal(t, 100.0, score)
	assert.Equal(t, MatchExact, matchType)
}

func TestSimilarityNoMatch(t *testing.T) {
	m := NewMatcher(85)

	score, matchType := m.Similarity("quarterly board review", "zzzz")
	assert.Less(t, score, 60.0)
	assert.Equal(t, MatchNone, matchType)
}

func TestMatchRequiresSameType(t *testing.T) {
	m := NewMatcher(85)

	strategic := map[string][]Entity{
		TypeKPI: {{Text: "customer retention rate", Type: TypeKPI}},
	}
	action := map[string][]Entity{
		TypeGoal: {{Text: "customer retention rate", Type: TypeGoal}},
	}

	assert.Empty(t, m.Match(strategic, action))
}

func TestMatchPicksBestCandidate(t *testing.T) {
	m := NewMatcher(85)

	strategic := map[string][]Entity{
		TypeKPI: {{Text: "customer retention rate", Type: TypeKPI}},
	}
	action := map[string][]Entity{
		TypeKPI: {
			{Text: "employee headcount", Type: TypeKPI},
			{Text: "customer retention rate", Type: TypeKPI},
		},
	}

	matches := m.Match(strategic, action)
	assert.Len(t, matches, 1)
	assert.Equal(t, "customer retention rate", matches[0].Action.Text)
	assert.Equal(t, 100.0, matches[0].MatchScore)
	assert.Equal(t, MatchExact, matches[0].MatchType)
}

func TestMatchIsDeterministic(t *testing.T) {
	m := NewMatcher(85)

	strategic := map[string][]Entity{
		TypeKPI:    {{Text: "market share percentage", Type: TypeKPI}},
		TypeGoal:   {{Text: "expand into new markets", Type: TypeGoal}},
		TypeBudget: {{Text: "$5M annual budget", Type: TypeBudget}},
	}
	action := map[string][]Entity{
		TypeKPI:    {{Text: "market share percentage", Type: TypeKPI}},
		TypeGoal:   {{Text: "expand into new markets", Type: TypeGoal}},
		TypeBudget: {{Text: "$5M annual budget", Type: TypeBudget}},
	}

	first := m.Match(strategic, action)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Match(strategic, action))
	}
}

func TestScoreWeightedRate(t *testing.T) {
	m := NewMatcher(85)

	strategic := map[string][]Entity{
		TypeKPI:  {{Text: "customer satisfaction score", Type: TypeKPI}},
		TypeGoal: {{Text: "expand into new markets", Type: TypeGoal}},
	}
	matches := []EntityMatch{
		{
			Strategic:  strategic[TypeKPI][0],
			Action:     Entity{Text: "customer satisfaction score", Type: TypeKPI},
			MatchScore: 100,
			MatchType:  MatchExact,
		},
	}

	result := m.Score(strategic, matches)

	// KPI weight 3.0 matched out of 4.5 total weight.
	assert.InDelta(t, 66.67, result.MatchRate, 0.01)
	assert.Equal(t, result.MatchRate, result.OverallScore)
	assert.Equal(t, 2, result.TotalStrategic)
	assert.Equal(t, 1, result.MatchedEntities)
	assert.Equal(t, 1, result.UnmatchedEntities)
	assert.Len(t, result.UnmatchedStrategic, 1)
	assert.Equal(t, "expand into new markets", result.UnmatchedStrategic[0].Text)
	assert.Equal(t, 1, result.MatchesByType[TypeKPI])
}

func TestScoreEmptyStrategic(t *testing.T) {
	m := NewMatcher(85)

	result := m.Score(map[string][]Entity{}, nil)

	assert.Equal(t, 0.0, result.MatchRate)
	assert.Equal(t, 0, result.TotalStrategic)
	assert.Empty(t, result.UnmatchedStrategic)
}

func TestTypeWeight(t *testing.T) {
	assert.Equal(t, 3.0, TypeWeight(TypeKPI))
	assert.Equal(t, 3.0, TypeWeight(TypeMetricTarget))
	assert.Equal(t, 2.5, TypeWeight(TypeBudget))
	assert.Equal(t, 2.0, TypeWeight(TypeTimeline))
	assert.Equal(t, 1.5, TypeWeight(TypeGoal))
	assert.Equal(t, 1.5, TypeWeight(TypeInitiative))
	assert.Equal(t, DefaultWeight, TypeWeight("SOMETHING_ELSE"))
}
