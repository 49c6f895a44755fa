package proposals

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/findings"
	"github.com/plansync/backend/internal/llm"
	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/pkg/logger"
)

// Completer is the slice of the LLM client the generator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Generator produces improvement proposals with three strategies: weakest
// objectives first, then critical findings when no objective is weak, then
// entity-tracking coverage when the entity score is low. Any LLM or parse
// failure yields zero proposals for that request, never an error.
type Generator struct {
	completer Completer
}

func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// proposalDraft is the coercible shape the model returns.
type proposalDraft struct {
	ActionTitle    string   `json:"action_title"`
	Description    string   `json:"description"`
	BudgetEstimate float64  `json:"budget_estimate"`
	Timeline       string   `json:"timeline"`
	ExpectedKPIs   []string `json:"expected_kpis"`
	Rationale      string   `json:"rationale"`
	ExpectedImpact string   `json:"expected_impact"`
}

const generatorSystemPrompt = "You are a strategic planning expert who creates specific, actionable proposals. Always return valid JSON."

const entityTrackingSystemPrompt = "You are a strategic planning expert specializing in KPI frameworks and performance measurement. Always return valid JSON."

// Generate runs the strategies in order and returns the combined proposal
// set.
func (g *Generator) Generate(
	ctx context.Context,
	strategicDoc *models.PlanDocument,
	result scoring.Result,
	findingList []findings.Finding,
) []Proposal {
	var out []Proposal

	weak := make([]scoring.ObjectiveSync, 0)
	for _, obj := range result.Objectives {
		if obj.CombinedScore < 75 {
			weak = append(weak, obj)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].CombinedScore < weak[j].CombinedScore
	})
	if len(weak) > 3 {
		weak = weak[:3]
	}

	for _, obj := range weak {
		out = append(out, g.generateForObjective(ctx, obj, strategicDoc)...)
	}

	if len(out) == 0 && len(findingList) > 0 {
		logger.Info("No weak objectives, generating proposals from findings",
			zap.Int("findings", len(findingList)),
		)
		for _, finding := range findingList {
			if finding.Severity == findings.SeverityCritical || finding.Severity == findings.SeverityHigh {
				out = append(out, g.generateForFinding(ctx, finding, result)...)
			}
		}
	}

	if result.EntityScore < 60 && len(out) < 3 {
		logger.Info("Entity match score low, generating tracking proposals",
			zap.Float64("entity_score", result.EntityScore),
		)
		out = append(out, g.generateEntityTracking(ctx, result)...)
	}

	logger.Info("Proposals generated", zap.Int("count", len(out)))

	return out
}

func (g *Generator) generateForObjective(ctx context.Context, obj scoring.ObjectiveSync, strategicDoc *models.PlanDocument) []Proposal {
	promptContext := g.buildObjectiveContext(obj, strategicDoc)

	prompt := fmt.Sprintf(`You are an expert strategic planning consultant. Based on the analysis below, generate 1-2 SPECIFIC, ACTIONABLE proposals for new action items to improve alignment.

%s

Generate concrete proposals that:
1. Address the identified gaps
2. Include specific KPIs to track
3. Have realistic budgets and timelines
4. Can be directly implemented

Return ONLY valid JSON in this exact format:
{
  "proposals": [
    {
      "action_title": "Quarterly Risk Assessment Reviews",
      "description": "Implement quarterly comprehensive risk assessment reviews with Board oversight, tracking key metrics against targets.",
      "budget_estimate": 500000,
      "timeline": "Q1 2026 - Q4 2026",
      "expected_kpis": ["KPI 1 with target", "KPI 2 with target"],
      "rationale": "Addresses missing timeline milestones and KPI tracking gaps identified in analysis",
      "expected_impact": "Would improve objective score from %.1f to approximately 78 by adding measurable quarterly milestones and explicit KPI tracking"
    }
  ]
}

Generate 1-2 proposals. Be specific with numbers, dates, and KPIs.
`, promptContext, obj.CombinedScore)

	drafts := g.completeDrafts(ctx, generatorSystemPrompt, prompt)

	priority := "low"
	if obj.CombinedScore < 50 {
		priority = "high"
	} else if obj.CombinedScore < 65 {
		priority = "medium"
	}

	proposals := make([]Proposal, 0, len(drafts))
	for i, draft := range drafts {
		proposals = append(proposals, g.coerce(draft, Proposal{
			ID:             fmt.Sprintf("proposal_%s_%d", obj.ObjectiveID, i),
			Priority:       priority,
			ObjectiveID:    obj.ObjectiveID,
			ObjectiveTitle: obj.ObjectiveTitle,
		}))
	}

	return proposals
}

func (g *Generator) generateForFinding(ctx context.Context, finding findings.Finding, result scoring.Result) []Proposal {
	var b strings.Builder
	fmt.Fprintf(&b, "CRITICAL FINDING TO ADDRESS:\n")
	fmt.Fprintf(&b, "Title: %s\n", finding.Title)
	fmt.Fprintf(&b, "Severity: %s\n", strings.ToUpper(finding.Severity))
	fmt.Fprintf(&b, "Description: %s\n", finding.Description)
	fmt.Fprintf(&b, "Impact: %s\n", finding.Impact)
	b.WriteString("\nEvidence:\n")
	for _, e := range finding.Evidence {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	b.WriteString("\nCurrent State:\n")
	fmt.Fprintf(&b, "- Overall Score: %.1f/100\n", result.OverallScore)
	fmt.Fprintf(&b, "- Entity Match Score: %.1f%%\n", result.EntityScore)
	fmt.Fprintf(&b, "- Total Unmatched Entities: %d\n", result.UnmatchedEntities)

	prompt := fmt.Sprintf(`You are an expert strategic planning consultant. Based on this critical finding, generate 1-2 SPECIFIC, ACTIONABLE proposals to address the issue.

%s

The proposals should directly address this finding and improve the alignment. Include:
1. Specific actions to take
2. Clear KPIs to track
3. Realistic budget and timeline
4. Expected measurable impact

Return ONLY valid JSON in this exact format:
{
  "proposals": [
    {
      "action_title": "Monthly KPI Tracking Dashboard",
      "description": "Implement comprehensive monthly tracking dashboard for all strategic KPIs with automated alerts for off-track metrics.",
      "budget_estimate": 250000,
      "timeline": "Q1 2026 - Q2 2026",
      "expected_kpis": ["100%% KPI coverage", "Monthly tracking reports", "Automated variance alerts"],
      "rationale": "Addresses unmatched strategic entities by ensuring all KPIs have explicit tracking mechanisms",
      "expected_impact": "Would improve entity match rate by adding systematic tracking for all strategic metrics"
    }
  ]
}

Generate 1-2 specific, implementable proposals.
`, b.String())

	drafts := g.completeDrafts(ctx, generatorSystemPrompt, prompt)

	priority := "low"
	switch finding.Severity {
	case findings.SeverityCritical:
		priority = "high"
	case findings.SeverityHigh:
		priority = "medium"
	}

	proposals := make([]Proposal, 0, len(drafts))
	for i, draft := range drafts {
		proposals = append(proposals, g.coerce(draft, Proposal{
			ID:             fmt.Sprintf("proposal_finding_%s_%d", finding.ID, i),
			Priority:       priority,
			ObjectiveID:    fmt.Sprintf("finding_%s", finding.ID),
			ObjectiveTitle: finding.AffectedObjective,
		}))
	}

	return proposals
}

func (g *Generator) generateEntityTracking(ctx context.Context, result scoring.Result) []Proposal {
	var b strings.Builder
	fmt.Fprintf(&b, "ENTITY TRACKING GAP ANALYSIS:\n")
	fmt.Fprintf(&b, "- Total Unmatched Strategic Entities: %d\n", result.UnmatchedEntities)
	fmt.Fprintf(&b, "- Entity Match Score: %.1f%%\n", result.EntityScore)
	fmt.Fprintf(&b, "- Overall Synchronization Score: %.1f/100\n", result.OverallScore)
	b.WriteString("\nPROBLEM: Many strategic KPIs, targets, and metrics from the strategic plan are not explicitly tracked or measured in the action plan. This creates accountability gaps and makes it difficult to measure progress toward strategic goals.\n")

	prompt := fmt.Sprintf(`You are an expert strategic planning consultant. Based on this entity tracking gap analysis, generate 2-3 SPECIFIC, ACTIONABLE proposals to improve KPI tracking and measurement.

%s

Create proposals that:
1. Systematically address the entity tracking gaps
2. Ensure strategic KPIs are measurable in the action plan
3. Create accountability mechanisms
4. Are realistic and implementable

Return ONLY valid JSON in this exact format:
{
  "proposals": [
    {
      "action_title": "Strategic KPI Monitoring Framework",
      "description": "Establish comprehensive KPI monitoring framework with monthly dashboards, automated data collection, and variance reporting for all strategic metrics.",
      "budget_estimate": 300000,
      "timeline": "Q1 2026 - Q3 2026",
      "expected_kpis": ["100%% strategic KPI coverage", "Monthly KPI dashboards", "Automated alerts for off-track metrics"],
      "rationale": "Addresses systematic gap of %d unmatched entities by creating explicit tracking mechanisms for all strategic metrics",
      "expected_impact": "Would improve entity match score from %.1f%% to 85%%+ by ensuring every strategic target has a corresponding measurement and tracking mechanism in the action plan"
    }
  ]
}

Generate 2-3 specific proposals focused on improving measurement and tracking.
`, b.String(), result.UnmatchedEntities, result.EntityScore)

	drafts := g.completeDrafts(ctx, entityTrackingSystemPrompt, prompt)

	proposals := make([]Proposal, 0, len(drafts))
	for i, draft := range drafts {
		proposals = append(proposals, g.coerce(draft, Proposal{
			ID:             fmt.Sprintf("proposal_entity_tracking_%d", i),
			Priority:       "medium",
			ObjectiveID:    "entity_tracking",
			ObjectiveTitle: "Enterprise-wide KPI Tracking",
		}))
	}

	return proposals
}

func (g *Generator) buildObjectiveContext(obj scoring.ObjectiveSync, strategicDoc *models.PlanDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "OBJECTIVE NEEDING IMPROVEMENT:\n")
	fmt.Fprintf(&b, "Title: %s\n", obj.ObjectiveTitle)
	fmt.Fprintf(&b, "Current Score: %.1f/100\n", obj.CombinedScore)
	fmt.Fprintf(&b, "Embedding Score: %.1f/100\n", obj.EmbeddingScore)
	fmt.Fprintf(&b, "Entity Matches: %d\n", obj.EntityMatches)

	b.WriteString("\nIDENTIFIED GAPS:\n")
	for _, gap := range obj.Gaps {
		fmt.Fprintf(&b, "- %s\n", gap)
	}

	b.WriteString("\nSTRATEGIC PLAN DETAILS:\n")
	for _, section := range strategicDoc.Sections {
		if section.Title != obj.ObjectiveTitle {
			continue
		}

		fmt.Fprintf(&b, "Budget: $%.0f\n", section.Budget)
		timeline := section.Timeline
		if timeline == "" {
			timeline = "Not specified"
		}
		fmt.Fprintf(&b, "Timeline: %s\n", timeline)

		if len(section.KPIs) > 0 {
			b.WriteString("\nStrategic KPIs:\n")
			kpis := section.KPIs
			if len(kpis) > 5 {
				kpis = kpis[:5]
			}
			for _, kpi := range kpis {
				text := kpi.Metric
				if kpi.Target != nil {
					text += fmt.Sprintf(": %g%s", *kpi.Target, kpi.Unit)
				}
				if kpi.Deadline != "" {
					text += fmt.Sprintf(" by %s", kpi.Deadline)
				}
				fmt.Fprintf(&b, "- %s\n", text)
			}
		}
		break
	}

	if len(obj.TopActions) > 0 {
		b.WriteString("\nCurrent Best Matching Actions:\n")
		actions := obj.TopActions
		if len(actions) > 3 {
			actions = actions[:3]
		}
		for _, action := range actions {
			fmt.Fprintf(&b, "- %s (similarity: %.2f)\n", action.ActionTitle, action.Similarity)
		}
	}

	return b.String()
}

// completeDrafts runs one completion and parses the proposal list. Malformed
// output degrades to zero drafts.
func (g *Generator) completeDrafts(ctx context.Context, systemPrompt, prompt string) []proposalDraft {
	resp, err := g.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.4,
	})
	if err != nil {
		logger.Warn("Proposal generation failed", zap.Error(err))
		return nil
	}

	raw, err := llm.ExtractJSONObject(resp.Content)
	if err != nil {
		logger.Warn("Proposal response malformed", zap.Error(err))
		return nil
	}

	var parsed struct {
		Proposals []proposalDraft `json:"proposals"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("Proposal response malformed", zap.Error(llm.ErrMalformedResponse))
		return nil
	}

	return parsed.Proposals
}

// coerce fills a proposal from a draft, defaulting every missing field.
func (g *Generator) coerce(draft proposalDraft, base Proposal) Proposal {
	base.ActionTitle = draft.ActionTitle
	base.Description = draft.Description
	base.BudgetEstimate = draft.BudgetEstimate
	base.Timeline = draft.Timeline
	if base.Timeline == "" {
		base.Timeline = "TBD"
	}
	base.ExpectedKPIs = draft.ExpectedKPIs
	if base.ExpectedKPIs == nil {
		base.ExpectedKPIs = []string{}
	}
	base.Rationale = draft.Rationale
	base.ExpectedImpact = draft.ExpectedImpact
	base.Status = StatusPending
	return base
}
