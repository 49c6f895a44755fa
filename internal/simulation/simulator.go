package simulation

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/proposals"
	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/pkg/config"
	"github.com/plansync/backend/pkg/logger"
)

// EntityTrackingObjectiveID is the reserved objective id for proposals that
// improve measurement coverage rather than one objective.
const EntityTrackingObjectiveID = "entity_tracking"

// AffectedObjective is one objective's current/projected/delta triple.
type AffectedObjective struct {
	ObjectiveTitle string  `json:"objective_title"`
	CurrentScore   float64 `json:"current_score"`
	ProjectedScore float64 `json:"projected_score"`
	Improvement    float64 `json:"improvement"`
}

// Result is a heuristic projection of score uplift if the proposal set were
// implemented. It is never a substitute for re-running the fusion pass.
type Result struct {
	CurrentScore       float64             `json:"current_score"`
	ProjectedScore     float64             `json:"projected_score"`
	Improvement        float64             `json:"improvement"`
	AffectedObjectives []AffectedObjective `json:"affected_objectives"`
}

// Simulator models proposal impact with diminishing returns per objective and
// a flat per-proposal contribution for entity-tracking proposals.
type Simulator struct {
	baseImprovement           float64
	diminishingFactor         float64
	entityTrackingImprovement float64
	entityWeight              float64
}

func NewSimulator(cfg config.SimulationConfig, entityWeight float64) *Simulator {
	base := cfg.BaseImprovement
	if base <= 0 {
		base = 12.0
	}
	factor := cfg.DiminishingFactor
	if factor <= 0 {
		factor = 0.7
	}
	entityImprovement := cfg.EntityTrackingImprovement
	if entityImprovement <= 0 {
		entityImprovement = 8.0
	}

	return &Simulator{
		baseImprovement:           base,
		diminishingFactor:         factor,
		entityTrackingImprovement: entityImprovement,
		entityWeight:              entityWeight,
	}
}

// isEntityTracking classifies proposals that target measurement coverage
// instead of a concrete objective. Finding-derived proposals land here too;
// their synthetic objective ids never appear in the objective list.
func isEntityTracking(objectiveID string) bool {
	return objectiveID == EntityTrackingObjectiveID ||
		strings.Contains(strings.ToLower(objectiveID), "entity") ||
		strings.Contains(objectiveID, "finding")
}

// Simulate projects the overall score uplift. The n-th proposal against the
// same objective contributes base × factor^n, so stacking proposals on one
// objective yields decreasing returns. Per-objective projections cap at 100,
// as does the overall projection.
func (s *Simulator) Simulate(
	proposalSet []proposals.Proposal,
	objectives []scoring.ObjectiveSync,
	currentScore, entityScore float64,
) Result {
	improvements := make(map[string]float64)
	proposalCounts := make(map[string]int)
	entityTrackingImprovement := 0.0

	for _, p := range proposalSet {
		if isEntityTracking(p.ObjectiveID) {
			entityTrackingImprovement += s.entityTrackingImprovement
			continue
		}

		n := proposalCounts[p.ObjectiveID]
		improvements[p.ObjectiveID] += s.baseImprovement * math.Pow(s.diminishingFactor, float64(n))
		proposalCounts[p.ObjectiveID]++
	}

	var affected []AffectedObjective
	totalImprovement := 0.0

	for _, obj := range objectives {
		improvement, ok := improvements[obj.ObjectiveID]
		if !ok {
			continue
		}

		current := obj.CombinedScore
		projected := math.Min(current+improvement, 100)

		affected = append(affected, AffectedObjective{
			ObjectiveTitle: obj.ObjectiveTitle,
			CurrentScore:   current,
			ProjectedScore: projected,
			Improvement:    projected - current,
		})

		totalImprovement += projected - current
	}

	if entityTrackingImprovement > 0 {
		entityProjected := math.Min(entityScore+entityTrackingImprovement, 100)

		affected = append(affected, AffectedObjective{
			ObjectiveTitle: "Entity Tracking & KPI Coverage",
			CurrentScore:   entityScore,
			ProjectedScore: entityProjected,
			Improvement:    entityProjected - entityScore,
		})

		totalImprovement += (entityProjected - entityScore) * s.entityWeight
	}

	projectedOverall := currentScore
	if len(affected) > 0 {
		if len(improvements) > 0 {
			avgImprovement := totalImprovement
			if len(objectives) > 0 {
				avgImprovement = totalImprovement / float64(len(objectives))
			}
			projectedOverall = math.Min(currentScore+avgImprovement, 100)
		} else {
			// Entity-tracking proposals alone: the raw accumulated
			// improvement contributes through the entity weight without
			// dilution over the objective count.
			projectedOverall = math.Min(currentScore+entityTrackingImprovement*s.entityWeight, 100)
		}
	}

	result := Result{
		CurrentScore:       currentScore,
		ProjectedScore:     projectedOverall,
		Improvement:        projectedOverall - currentScore,
		AffectedObjectives: affected,
	}

	logger.Info("Impact simulated",
		zap.Float64("current_score", currentScore),
		zap.Float64("projected_score", projectedOverall),
		zap.Float64("improvement", result.Improvement),
		zap.Int("affected_objectives", len(affected)),
	)

	return result
}
