package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/plansync/backend/internal/entities"
)

// InsightInput carries everything an insight generator may consult. All
// fields are derived from one fusion pass and immutable.
type InsightInput struct {
	Objectives         []ObjectiveSync
	OverallScore       float64
	EmbeddingScore     float64
	AverageSimilarity  float64
	MatchRate          float64
	UnmatchedStrategic []entities.Entity
	TotalUnmatched     int
}

// InsightGenerator produces the narrative part of an assessment. The
// rule-based variant is deterministic; the LLM-backed variant degrades to
// rule-based output on any service or parse failure.
type InsightGenerator interface {
	IdentifyStrengths(ctx context.Context, in InsightInput) []string
	IdentifyWeaknesses(ctx context.Context, in InsightInput) []string
	GenerateRecommendations(ctx context.Context, in InsightInput) []Recommendation
}

// RuleBasedInsights derives strengths, weaknesses and recommendations from
// fixed thresholds over the fused scores.
type RuleBasedInsights struct{}

func (r *RuleBasedInsights) IdentifyStrengths(_ context.Context, in InsightInput) []string {
	var strengths []string

	total := len(in.Objectives)
	strong := 0
	for _, obj := range in.Objectives {
		if obj.HasStrongSupport {
			strong++
		}
	}

	if total > 0 {
		if strong == total {
			strengths = append(strengths, "All strategic objectives have strong supporting actions")
		} else if float64(strong) >= float64(total)*0.8 {
			strengths = append(strengths, fmt.Sprintf("%d/%d strategic objectives have strong support", strong, total))
		}
	}

	if in.MatchRate >= 85 {
		strengths = append(strengths, fmt.Sprintf("Excellent entity matching (%.0f%%) - KPIs and targets well-aligned", in.MatchRate))
	} else if in.MatchRate >= 70 {
		strengths = append(strengths, fmt.Sprintf("Good entity matching (%.0f%%) - most targets are tracked", in.MatchRate))
	}

	if in.AverageSimilarity >= 0.85 {
		strengths = append(strengths, fmt.Sprintf("Very high semantic alignment (%.2f) - actions clearly address objectives", in.AverageSimilarity))
	}

	if top := topByScore(in.Objectives); top != nil && top.CombinedScore >= 90 {
		strengths = append(strengths, fmt.Sprintf("Exemplary alignment on '%s'", top.ObjectiveTitle))
	}

	if len(strengths) == 0 {
		return []string{"Action plan shows general alignment with strategic direction"}
	}
	return strengths
}

func (r *RuleBasedInsights) IdentifyWeaknesses(_ context.Context, in InsightInput) []string {
	var weaknesses []string

	weak := weakObjectives(in.Objectives)
	if len(weak) > 0 {
		weaknesses = append(weaknesses, fmt.Sprintf("%d strategic objectives lack strong supporting actions", len(weak)))
	}

	// Group unmatched entities by type, keeping first-seen type order for
	// deterministic output.
	countByType := make(map[string]int)
	var typeOrder []string
	for _, entity := range in.UnmatchedStrategic {
		if _, seen := countByType[entity.Type]; !seen {
			typeOrder = append(typeOrder, entity.Type)
		}
		countByType[entity.Type]++
	}
	for _, entityType := range typeOrder {
		if countByType[entityType] >= 3 {
			weaknesses = append(weaknesses, fmt.Sprintf("%d %s entities not tracked in action plan", countByType[entityType], entityType))
		}
	}

	if in.MatchRate < 50 {
		weaknesses = append(weaknesses, fmt.Sprintf("Low entity match rate (%.0f%%) - many strategic targets missing from actions", in.MatchRate))
	}

	return weaknesses
}

func (r *RuleBasedInsights) GenerateRecommendations(_ context.Context, in InsightInput) []Recommendation {
	var recommendations []Recommendation

	weak := weakObjectives(in.Objectives)
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].CombinedScore < weak[j].CombinedScore
	})

	limit := len(weak)
	if limit > 3 {
		limit = 3
	}

	for _, obj := range weak[:limit] {
		priority := "medium"
		if obj.CombinedScore < 50 {
			priority = "high"
		}

		rec := Recommendation{
			Priority:     priority,
			Objective:    obj.ObjectiveTitle,
			CurrentScore: obj.CombinedScore,
		}

		if obj.EmbeddingScore < 70 {
			rec.Actions = append(rec.Actions, "Review action plan to ensure it directly addresses the strategic intent")
		}
		if obj.EntityMatches == 0 {
			rec.Actions = append(rec.Actions, "Add explicit KPIs, targets, and timelines matching strategic plan")
		}
		if len(obj.TopActions) == 0 {
			rec.Actions = append(rec.Actions, "Create new action items specifically supporting this objective")
		}

		recommendations = append(recommendations, rec)
	}

	if len(weak) > 5 {
		recommendations = append([]Recommendation{{
			Priority:  "high",
			Objective: "Overall Action Plan",
			Actions: []string{
				"Conduct comprehensive review to strengthen objective-action linkages",
				"Consider adding cross-reference table mapping objectives to actions",
			},
		}}, recommendations...)
	}

	return recommendations
}

func weakObjectives(objectives []ObjectiveSync) []ObjectiveSync {
	var weak []ObjectiveSync
	for _, obj := range objectives {
		if !obj.HasStrongSupport {
			weak = append(weak, obj)
		}
	}
	return weak
}

func topByScore(objectives []ObjectiveSync) *ObjectiveSync {
	var top *ObjectiveSync
	for i := range objectives {
		if top == nil || objectives[i].CombinedScore > top.CombinedScore {
			top = &objectives[i]
		}
	}
	return top
}
