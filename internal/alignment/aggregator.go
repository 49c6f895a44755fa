package alignment

import (
	"go.uber.org/zap"

	"github.com/plansync/backend/pkg/logger"
)

// SimilarityMatch is one action section retrieved for an objective, in
// retrieval rank order.
type SimilarityMatch struct {
	ActionSectionID string  `json:"action_section_id"`
	ActionTitle     string  `json:"action_title"`
	Similarity      float64 `json:"similarity"`
}

// ObjectiveAlignment is the semantic support picture for one strategic
// objective.
type ObjectiveAlignment struct {
	ObjectiveID    string            `json:"objective_id"`
	ObjectiveTitle string            `json:"objective_title"`
	BestSimilarity float64           `json:"best_similarity"`
	TopMatches     []SimilarityMatch `json:"top_matches"`
	HasSupport     bool              `json:"has_support"`
}

// DocumentAlignment aggregates per-objective alignments into the
// document-level embedding score.
type DocumentAlignment struct {
	EmbeddingScore float64              `json:"embedding_score"`
	Objectives     []ObjectiveAlignment `json:"objectives"`
}

// Aggregator turns raw nearest-neighbor hits into objective alignments.
// An objective counts as supported only when its best match clears the
// similarity threshold.
type Aggregator struct {
	similarityThreshold float64
}

func NewAggregator(similarityThreshold float64) *Aggregator {
	if similarityThreshold <= 0 {
		similarityThreshold = 0.70
	}
	return &Aggregator{similarityThreshold: similarityThreshold}
}

// Aggregate builds the alignment for one objective from its ranked matches.
// Matches arrive ordered by descending similarity; rank order is preserved so
// downstream consumers can show the retrieval as-is.
func (a *Aggregator) Aggregate(objectiveID, objectiveTitle string, matches []SimilarityMatch) ObjectiveAlignment {
	best := 0.0
	if len(matches) > 0 {
		best = matches[0].Similarity
		for _, m := range matches[1:] {
			if m.Similarity > best {
				best = m.Similarity
			}
		}
	}

	return ObjectiveAlignment{
		ObjectiveID:    objectiveID,
		ObjectiveTitle: objectiveTitle,
		BestSimilarity: best,
		TopMatches:     matches,
		HasSupport:     best >= a.similarityThreshold,
	}
}

// DocumentScore averages each objective's best similarity onto a 0-100 scale.
// Objectives with no matches drag the mean down with a 0 contribution. An
// empty objective list scores 0.
func (a *Aggregator) DocumentScore(objectives []ObjectiveAlignment) DocumentAlignment {
	if len(objectives) == 0 {
		return DocumentAlignment{EmbeddingScore: 0, Objectives: objectives}
	}

	sum := 0.0
	for _, obj := range objectives {
		sum += obj.BestSimilarity
	}

	score := sum / float64(len(objectives)) * 100

	logger.Info("Embedding alignment aggregated",
		zap.Float64("embedding_score", score),
		zap.Int("objectives", len(objectives)),
	)

	return DocumentAlignment{
		EmbeddingScore: score,
		Objectives:     objectives,
	}
}
