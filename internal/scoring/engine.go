package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/alignment"
	"github.com/plansync/backend/internal/entities"
	"github.com/plansync/backend/pkg/config"
	"github.com/plansync/backend/pkg/logger"
)

// ErrInvalidWeights is returned when the fusion weights do not sum to 1.0.
// This is a configuration fault and fatal at startup.
var ErrInvalidWeights = errors.New("fusion weights must sum to 1.0")

// ObjectiveSync is the fused view of one strategic objective. The entity
// score here is the saturating per-objective model (pointsPerMatch per match,
// capped at 100) and is unrelated to the document-wide weighted rate.
type ObjectiveSync struct {
	ObjectiveID      string                      `json:"objective_id"`
	ObjectiveTitle   string                      `json:"objective_title"`
	EmbeddingScore   float64                     `json:"embedding_score"`
	EntityMatches    int                         `json:"entity_matches"`
	EntityScore      float64                     `json:"entity_score"`
	CombinedScore    float64                     `json:"combined_score"`
	TopActions       []alignment.SimilarityMatch `json:"top_matching_actions"`
	HasStrongSupport bool                        `json:"has_strong_support"`
	Gaps             []string                    `json:"gaps"`
}

type Recommendation struct {
	Priority       string   `json:"priority"`
	Objective      string   `json:"objective"`
	CurrentScore   float64  `json:"current_score,omitempty"`
	Actions        []string `json:"actions"`
	ExpectedImpact string   `json:"expected_impact,omitempty"`
}

// Result is the complete synchronization assessment for one run.
type Result struct {
	OverallScore   float64 `json:"overall_score"`
	EmbeddingScore float64 `json:"embedding_score"`
	EntityScore    float64 `json:"entity_score"`
	Interpretation string  `json:"interpretation"`

	TotalObjectives int `json:"total_objectives"`
	StrongSupport   int `json:"objectives_with_strong_support"`
	WeakSupport     int `json:"objectives_with_weak_support"`

	Objectives []ObjectiveSync `json:"objective_synchronizations"`

	TotalStrategicEntities int `json:"total_strategic_entities"`
	MatchedEntities        int `json:"matched_entities"`
	UnmatchedEntities      int `json:"unmatched_entities"`

	AssessmentDate     string `json:"assessment_date"`
	StrategicPlanTitle string `json:"strategic_plan"`
	ActionPlanTitle    string `json:"action_plan"`

	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Engine fuses the embedding and entity signals into per-objective and
// document scores. Insight generation is injected so the rule-based and
// LLM-backed variants share one fusion path.
type Engine struct {
	embeddingWeight        float64
	entityWeight           float64
	strongSupportThreshold float64
	pointsPerMatch         float64
	insights               InsightGenerator
}

func NewEngine(cfg config.ScoringConfig, insights InsightGenerator) (*Engine, error) {
	total := cfg.EmbeddingWeight + cfg.EntityWeight
	if math.Abs(total-1.0) > 0.01 {
		return nil, fmt.Errorf("%w: got %.3f", ErrInvalidWeights, total)
	}

	pointsPerMatch := cfg.PointsPerMatch
	if pointsPerMatch <= 0 {
		pointsPerMatch = 20
	}

	strongSupport := cfg.StrongSupportThreshold
	if strongSupport <= 0 {
		strongSupport = 75
	}

	if insights == nil {
		insights = &RuleBasedInsights{}
	}

	return &Engine{
		embeddingWeight:        cfg.EmbeddingWeight,
		entityWeight:           cfg.EntityWeight,
		strongSupportThreshold: strongSupport,
		pointsPerMatch:         pointsPerMatch,
		insights:               insights,
	}, nil
}

func (e *Engine) EntityWeight() float64 {
	return e.entityWeight
}

// FuseObjectives combines each objective's alignment with its entity matches.
// Matches are attributed by the strategic entity's source section title.
func (e *Engine) FuseObjectives(alignments []alignment.ObjectiveAlignment, matches []entities.EntityMatch) []ObjectiveSync {
	matchesByTitle := make(map[string]int)
	for _, match := range matches {
		matchesByTitle[match.Strategic.SourceTitle]++
	}

	syncs := make([]ObjectiveSync, 0, len(alignments))
	for _, obj := range alignments {
		embeddingScore := obj.BestSimilarity * 100
		entityCount := matchesByTitle[obj.ObjectiveTitle]
		entityScore := math.Min(float64(entityCount)*e.pointsPerMatch, 100)
		combined := e.embeddingWeight*embeddingScore + e.entityWeight*entityScore

		var gaps []string
		if embeddingScore < 70 {
			gaps = append(gaps, "Low semantic similarity - action may not address objective intent")
		}
		if entityCount == 0 {
			gaps = append(gaps, "No explicit KPIs/targets matched in action plan")
		}
		if !obj.HasSupport {
			gaps = append(gaps, fmt.Sprintf("Best match score (%.2f) below threshold", obj.BestSimilarity))
		}

		topActions := obj.TopMatches
		if len(topActions) > 3 {
			topActions = topActions[:3]
		}

		syncs = append(syncs, ObjectiveSync{
			ObjectiveID:      obj.ObjectiveID,
			ObjectiveTitle:   obj.ObjectiveTitle,
			EmbeddingScore:   embeddingScore,
			EntityMatches:    entityCount,
			EntityScore:      entityScore,
			CombinedScore:    combined,
			TopActions:       topActions,
			HasStrongSupport: combined >= e.strongSupportThreshold,
			Gaps:             gaps,
		})
	}

	return syncs
}

// Combine fuses the document-level scores. The entity side is the weighted
// match rate, never an average of the per-objective saturating scores.
func (e *Engine) Combine(docEmbeddingScore, docEntityScore float64) float64 {
	return e.embeddingWeight*docEmbeddingScore + e.entityWeight*docEntityScore
}

// Interpret maps a score onto the reporting bands.
func Interpret(score float64) string {
	switch {
	case score >= 90:
		return "Excellent - Strong alignment across all objectives"
	case score >= 75:
		return "Good - Minor gaps that should be addressed"
	case score >= 60:
		return "Moderate - Significant improvements needed"
	default:
		return "Poor - Major misalignment requiring urgent attention"
	}
}

// Assess runs the complete fusion pass and attaches insights.
func (e *Engine) Assess(
	ctx context.Context,
	strategicTitle, actionTitle string,
	docAlign alignment.DocumentAlignment,
	entityResult entities.AnalysisResult,
) Result {
	objectives := e.FuseObjectives(docAlign.Objectives, entityResult.Matches)
	overall := e.Combine(docAlign.EmbeddingScore, entityResult.OverallScore)

	strong := 0
	for _, obj := range objectives {
		if obj.HasStrongSupport {
			strong++
		}
	}

	input := InsightInput{
		Objectives:         objectives,
		OverallScore:       overall,
		EmbeddingScore:     docAlign.EmbeddingScore,
		AverageSimilarity:  docAlign.EmbeddingScore / 100,
		MatchRate:          entityResult.MatchRate,
		UnmatchedStrategic: entityResult.UnmatchedStrategic,
		TotalUnmatched:     entityResult.UnmatchedEntities,
	}

	result := Result{
		OverallScore:           overall,
		EmbeddingScore:         docAlign.EmbeddingScore,
		EntityScore:            entityResult.OverallScore,
		Interpretation:         Interpret(overall),
		TotalObjectives:        len(objectives),
		StrongSupport:          strong,
		WeakSupport:            len(objectives) - strong,
		Objectives:             objectives,
		TotalStrategicEntities: entityResult.TotalStrategic,
		MatchedEntities:        entityResult.MatchedEntities,
		UnmatchedEntities:      entityResult.UnmatchedEntities,
		AssessmentDate:         time.Now().Format("2006-01-02 15:04:05"),
		StrategicPlanTitle:     strategicTitle,
		ActionPlanTitle:        actionTitle,
		Strengths:              e.insights.IdentifyStrengths(ctx, input),
		Weaknesses:             e.insights.IdentifyWeaknesses(ctx, input),
		Recommendations:        e.insights.GenerateRecommendations(ctx, input),
	}

	logger.Info("Synchronization assessed",
		zap.Float64("overall_score", overall),
		zap.Float64("embedding_score", docAlign.EmbeddingScore),
		zap.Float64("entity_score", entityResult.OverallScore),
		zap.Int("strong_support", strong),
		zap.Int("weak_support", len(objectives)-strong),
		zap.String("interpretation", strings.SplitN(result.Interpretation, " ", 2)[0]),
	)

	return result
}
