package entities

// Entity types mirror what the upstream extractor produces. Unknown types are
// accepted and scored with DefaultWeight.
const (
	TypeKPI          = "KPI"
	TypeMetricTarget = "METRIC_TARGET"
	TypeBudget       = "BUDGET"
	TypeTimeline     = "TIMELINE"
	TypeGoal         = "GOAL"
	TypeInitiative   = "INITIATIVE"
)

// Match classifications, ordered by strength.
const (
	MatchExact   = "exact"
	MatchFuzzy   = "fuzzy"
	MatchPartial = "partial"
	MatchNone    = "no_match"
)

// Entity is one structured item extracted from a plan section. Immutable once
// extracted.
type Entity struct {
	Text            string `json:"text"`
	Type            string `json:"type"`
	Value           string `json:"value,omitempty"`
	SourceSectionID string `json:"source_section_id"`
	SourceTitle     string `json:"source_title"`
}

// EntityMatch pairs a strategic entity with its single best action-plan
// candidate of the same type.
type EntityMatch struct {
	Strategic  Entity  `json:"strategic_entity"`
	Action     Entity  `json:"action_entity"`
	MatchScore float64 `json:"match_score"`
	MatchType  string  `json:"match_type"`
}

// AnalysisResult is the document-level entity matching outcome.
type AnalysisResult struct {
	OverallScore       float64        `json:"overall_score"`
	TotalStrategic     int            `json:"total_strategic_entities"`
	MatchedEntities    int            `json:"matched_entities"`
	UnmatchedEntities  int            `json:"unmatched_entities"`
	MatchRate          float64        `json:"match_rate"`
	MatchesByType      map[string]int `json:"matches_by_type"`
	Matches            []EntityMatch  `json:"entity_matches"`
	UnmatchedStrategic []Entity       `json:"unmatched_strategic_entities"`
}

// typeWeights drive the document-wide weighted match rate. Metric targets and
// KPIs dominate because they are the measurable backbone of a plan.
var typeWeights = map[string]float64{
	TypeMetricTarget: 3.0,
	TypeKPI:          3.0,
	TypeBudget:       2.5,
	TypeTimeline:     2.0,
	TypeGoal:         1.5,
	TypeInitiative:   1.5,
}

const DefaultWeight = 1.0

// TypeWeight returns the scoring weight for an entity type.
func TypeWeight(entityType string) float64 {
	if w, ok := typeWeights[entityType]; ok {
		return w
	}
	return DefaultWeight
}

// canonicalTypeOrder fixes the scan order so repeated runs over identical
// inputs produce identical match sets.
var canonicalTypeOrder = []string{
	TypeKPI,
	TypeMetricTarget,
	TypeBudget,
	TypeTimeline,
	TypeGoal,
	TypeInitiative,
}
