package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateKeepsRankOrder(t *testing.T) {
	a := NewAggregator(0.70)

	matches := []SimilarityMatch{
		{ActionSectionID: "a1", ActionTitle: "Digital rollout", Similarity: 0.82},
		{ActionSectionID: "a2", ActionTitle: "Training program", Similarity: 0.64},
		{ActionSectionID: "a3", ActionTitle: "Vendor audit", Similarity: 0.41},
	}

	result := a.Aggregate("obj1", "Modernize operations", matches)

	assert.Equal(t, "obj1", result.ObjectiveID)
	assert.Equal(t, 0.82, result.BestSimilarity)
	assert.True(t, result.HasSupport)
	assert.Equal(t, matches, result.TopMatches)
}

func TestAggregateBelowThreshold(t *testing.T) {
	a := NewAggregator(0.70)

	result := a.Aggregate("obj1", "Modernize operations", []SimilarityMatch{
		{ActionSectionID: "a1", Similarity: 0.69},
	})

	assert.Equal(t, 0.69, result.BestSimilarity)
	assert.False(t, result.HasSupport)
}

func TestAggregateNoMatches(t *testing.T) {
	a := NewAggregator(0.70)

	result := a.Aggregate("obj1", "Modernize operations", nil)

	assert.Equal(t, 0.0, result.BestSimilarity)
	assert.False(t, result.HasSupport)
	assert.Empty(t, result.TopMatches)
}

func TestDocumentScoreAveragesBest(t *testing.T) {
	a := NewAggregator(0.70)

	doc := a.DocumentScore([]ObjectiveAlignment{
		{BestSimilarity: 0.80},
		{BestSimilarity: 0.60},
		{BestSimilarity: 0.0},
	})

	// (0.80 + 0.60 + 0) / 3 * 100
	assert.InDelta(t, 46.67, doc.EmbeddingScore, 0.01)
	assert.Len(t, doc.Objectives, 3)
}

func TestDocumentScoreEmpty(t *testing.T) {
	a := NewAggregator(0.70)

	doc := a.DocumentScore(nil)
	assert.Equal(t, 0.0, doc.EmbeddingScore)
}

func TestNewAggregatorDefaultsThreshold(t *testing.T) {
	a := NewAggregator(0)

	result := a.Aggregate("obj1", "x", []SimilarityMatch{{Similarity: 0.70}})
	assert.True(t, result.HasSupport)

	result = a.Aggregate("obj1", "x", []SimilarityMatch{{Similarity: 0.69}})
	assert.False(t, result.HasSupport)
}
