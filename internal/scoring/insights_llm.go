package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/llm"
	"github.com/plansync/backend/pkg/logger"
)

// Completer is the slice of the LLM client this package needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// LLMInsights generates narrative insights with the completion service.
// Any call or parse failure falls back to the deterministic rules so an
// assessment always ships with insights.
type LLMInsights struct {
	completer Completer
	fallback  RuleBasedInsights
}

func NewLLMInsights(completer Completer) *LLMInsights {
	return &LLMInsights{completer: completer}
}

const insightSystemPrompt = "You are a strategic planning expert analyzing plan synchronization."

func (g *LLMInsights) IdentifyStrengths(ctx context.Context, in InsightInput) []string {
	prompt := fmt.Sprintf(`Analyze this strategic plan synchronization data and return ONLY a JSON object.

%s

Return format (NO other text, ONLY this JSON):
{
  "strengths": [
    "string 1",
    "string 2",
    "string 3"
  ]
}

Requirements for each strength:
1. Reference concrete data (scores, numbers, specific objectives)
2. Explain WHY it's a strength
3. Be specific and evidence-based

Generate 3-5 strengths based on the data above.
`, g.strengthsSummary(in))

	var parsed struct {
		Strengths []string `json:"strengths"`
	}
	if err := g.completeJSON(ctx, prompt, &parsed); err != nil || len(parsed.Strengths) == 0 {
		if err != nil {
			logger.Warn("LLM strengths generation failed, using rule-based insights", zap.Error(err))
		}
		return g.fallback.IdentifyStrengths(ctx, in)
	}

	return parsed.Strengths
}

func (g *LLMInsights) IdentifyWeaknesses(ctx context.Context, in InsightInput) []string {
	prompt := fmt.Sprintf(`Analyze this strategic plan synchronization data and return ONLY a JSON object.

%s

Return format (NO other text, ONLY this JSON):
{
  "weaknesses": [
    "string 1",
    "string 2"
  ]
}

Requirements:
1. Reference concrete data
2. Explain the IMPACT
3. Only identify genuine weaknesses (if score >80, focus on minor improvements)

If no significant weaknesses, return empty array: {"weaknesses": []}

Generate 0-5 weaknesses based on the data above.
`, g.weaknessesSummary(in))

	var parsed struct {
		Weaknesses []string `json:"weaknesses"`
	}
	if err := g.completeJSON(ctx, prompt, &parsed); err != nil {
		logger.Warn("LLM weaknesses generation failed, using rule-based insights", zap.Error(err))
		return g.fallback.IdentifyWeaknesses(ctx, in)
	}

	// An empty list is a legitimate answer for a well-aligned plan.
	if parsed.Weaknesses == nil && in.OverallScore <= 85 {
		return g.fallback.IdentifyWeaknesses(ctx, in)
	}

	return parsed.Weaknesses
}

func (g *LLMInsights) GenerateRecommendations(ctx context.Context, in InsightInput) []Recommendation {
	weak := weakObjectives(in.Objectives)
	if in.OverallScore > 90 && len(weak) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(`Generate actionable recommendations and return ONLY a JSON object.

%s

Return format (NO other text, ONLY this JSON):
{
  "recommendations": [
    {
      "priority": "high",
      "objective": "objective name",
      "current_score": 62.5,
      "actions": ["action 1", "action 2"],
      "expected_impact": "impact description"
    }
  ]
}

Generate 3-5 specific, actionable recommendations. Use actual objective names and scores from the data.

If score is >90 and no weak objectives, return empty array: {"recommendations": []}
`, g.recommendationsSummary(in, weak))

	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := g.completeJSON(ctx, prompt, &parsed); err != nil {
		logger.Warn("LLM recommendations generation failed, using rule-based insights", zap.Error(err))
		return g.fallback.GenerateRecommendations(ctx, in)
	}

	return parsed.Recommendations
}

func (g *LLMInsights) completeJSON(ctx context.Context, prompt string, out interface{}) error {
	resp, err := g.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: insightSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.3,
		MaxTokens:    800,
	})
	if err != nil {
		return err
	}

	raw, err := llm.ExtractJSONObject(resp.Content)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	return nil
}

func (g *LLMInsights) strengthsSummary(in InsightInput) string {
	strong := 0
	for _, obj := range in.Objectives {
		if obj.HasStrongSupport {
			strong++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ANALYSIS RESULTS:\n")
	fmt.Fprintf(&b, "- Overall Score: %.1f/100\n", in.OverallScore)
	fmt.Fprintf(&b, "- Embedding Score: %.1f/100\n", in.EmbeddingScore)
	fmt.Fprintf(&b, "- Total Objectives: %d\n", len(in.Objectives))
	fmt.Fprintf(&b, "- Strong Support: %d/%d\n", strong, len(in.Objectives))
	fmt.Fprintf(&b, "- Entity Match Rate: %.1f%%\n", in.MatchRate)

	b.WriteString("\nTOP PERFORMING OBJECTIVES:\n")
	sorted := sortedByScore(in.Objectives, true)
	for _, obj := range limitObjectives(sorted, 3) {
		fmt.Fprintf(&b, "\n- '%s': %.1f/100", obj.ObjectiveTitle, obj.CombinedScore)
		fmt.Fprintf(&b, "\n  Embedding: %.1f, Entity Matches: %d", obj.EmbeddingScore, obj.EntityMatches)
		if len(obj.TopActions) > 0 {
			fmt.Fprintf(&b, "\n  Best Action: %s", obj.TopActions[0].ActionTitle)
		}
	}

	return b.String()
}

func (g *LLMInsights) weaknessesSummary(in InsightInput) string {
	weak := weakObjectives(in.Objectives)

	var b strings.Builder
	fmt.Fprintf(&b, "IDENTIFIED ISSUES:\n")
	fmt.Fprintf(&b, "- Overall Score: %.1f/100\n", in.OverallScore)
	fmt.Fprintf(&b, "- Weak Objectives: %d/%d\n", len(weak), len(in.Objectives))
	fmt.Fprintf(&b, "- Unmatched Strategic Entities: %d\n", in.TotalUnmatched)

	b.WriteString("\nWEAKEST OBJECTIVES:\n")
	sorted := sortedByScore(in.Objectives, false)
	for _, obj := range limitObjectives(sorted, 3) {
		fmt.Fprintf(&b, "\n- '%s': %.1f/100", obj.ObjectiveTitle, obj.CombinedScore)
		fmt.Fprintf(&b, "\n  Embedding: %.1f, Entity Matches: %d", obj.EmbeddingScore, obj.EntityMatches)
		if len(obj.Gaps) > 0 {
			gaps := obj.Gaps
			if len(gaps) > 2 {
				gaps = gaps[:2]
			}
			fmt.Fprintf(&b, "\n  Gaps: %s", strings.Join(gaps, ", "))
		}
	}

	if len(in.UnmatchedStrategic) > 0 {
		countByType := make(map[string]int)
		var typeOrder []string
		sample := in.UnmatchedStrategic
		if len(sample) > 10 {
			sample = sample[:10]
		}
		for _, entity := range sample {
			if _, seen := countByType[entity.Type]; !seen {
				typeOrder = append(typeOrder, entity.Type)
			}
			countByType[entity.Type]++
		}

		b.WriteString("\n\nUNMATCHED ENTITIES BY TYPE:")
		for _, entityType := range typeOrder {
			fmt.Fprintf(&b, "\n- %s: %d", entityType, countByType[entityType])
		}
	}

	return b.String()
}

func (g *LLMInsights) recommendationsSummary(in InsightInput, weak []ObjectiveSync) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CURRENT STATE:\n")
	fmt.Fprintf(&b, "- Overall Score: %.1f/100\n", in.OverallScore)
	fmt.Fprintf(&b, "- Weak Objectives: %d/%d\n", len(weak), len(in.Objectives))

	b.WriteString("\nWEAKEST OBJECTIVES (need attention):\n")
	sorted := sortedByScore(weak, false)
	for _, obj := range limitObjectives(sorted, 3) {
		fmt.Fprintf(&b, "\nObjective: '%s'", obj.ObjectiveTitle)
		fmt.Fprintf(&b, "\n- Score: %.1f/100", obj.CombinedScore)
		fmt.Fprintf(&b, "\n- Embedding Score: %.1f/100", obj.EmbeddingScore)
		fmt.Fprintf(&b, "\n- Entity Matches: %d", obj.EntityMatches)
		if len(obj.Gaps) > 0 {
			fmt.Fprintf(&b, "\n- Gaps: %s", strings.Join(obj.Gaps, ", "))
		}
		if len(obj.TopActions) > 0 {
			fmt.Fprintf(&b, "\n- Best Matching Action: %s (%.2f)", obj.TopActions[0].ActionTitle, obj.TopActions[0].Similarity)
		}
		b.WriteString("\n")
	}

	if len(in.UnmatchedStrategic) > 0 {
		b.WriteString("\nSAMPLE UNMATCHED ENTITIES:")
		sample := in.UnmatchedStrategic
		if len(sample) > 5 {
			sample = sample[:5]
		}
		for _, entity := range sample {
			text := entity.Text
			if len(text) > 60 {
				text = text[:60]
			}
			fmt.Fprintf(&b, "\n- [%s] %s", entity.Type, text)
		}
	}

	return b.String()
}

func sortedByScore(objectives []ObjectiveSync, descending bool) []ObjectiveSync {
	sorted := make([]ObjectiveSync, len(objectives))
	copy(sorted, objectives)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].CombinedScore > sorted[j].CombinedScore
		}
		return sorted[i].CombinedScore < sorted[j].CombinedScore
	})
	return sorted
}

func limitObjectives(objectives []ObjectiveSync, n int) []ObjectiveSync {
	if len(objectives) > n {
		return objectives[:n]
	}
	return objectives
}
