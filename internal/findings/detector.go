package findings

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/pkg/logger"
)

// Severity levels, strongest first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
}

// Finding is one detected misalignment. Immutable once emitted.
type Finding struct {
	ID                string   `json:"id"`
	Severity          string   `json:"severity"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	AffectedObjective string   `json:"affected_objective"`
	Impact            string   `json:"impact"`
	Evidence          []string `json:"evidence"`
}

// Detector applies a fixed rule ladder over a fused assessment. One counter
// spans all rules so ids stay unique within a run.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect emits findings for severely misaligned objectives, weakly supported
// objectives, and document-wide entity coverage gaps, sorted by severity with
// stable order inside each tier.
func (d *Detector) Detect(result scoring.Result) []Finding {
	var findings []Finding
	findingID := 0

	for _, obj := range result.Objectives {
		if obj.CombinedScore < 50 {
			findingID++
			findings = append(findings, Finding{
				ID:                fmt.Sprintf("critical_%d", findingID),
				Severity:          SeverityCritical,
				Title:             fmt.Sprintf("Severe Misalignment: %s", obj.ObjectiveTitle),
				Description:       fmt.Sprintf("Objective scoring only %.1f/100, indicating major gaps in action plan support.", obj.CombinedScore),
				AffectedObjective: obj.ObjectiveTitle,
				Impact:            "High - This strategic priority lacks adequate execution plan",
				Evidence: []string{
					fmt.Sprintf("Embedding score: %.1f%%", obj.EmbeddingScore),
					fmt.Sprintf("Entity matches: %d", obj.EntityMatches),
					fmt.Sprintf("Gaps: %s", strings.Join(obj.Gaps, ", ")),
				},
			})
		}
	}

	for _, obj := range result.Objectives {
		if obj.CombinedScore >= 50 && obj.CombinedScore < 65 {
			findingID++
			evidence := []string{fmt.Sprintf("Only %d entity matches found", obj.EntityMatches)}
			gaps := obj.Gaps
			if len(gaps) > 2 {
				gaps = gaps[:2]
			}
			evidence = append(evidence, gaps...)

			findings = append(findings, Finding{
				ID:                fmt.Sprintf("high_%d", findingID),
				Severity:          SeverityHigh,
				Title:             fmt.Sprintf("Weak Support: %s", obj.ObjectiveTitle),
				Description:       fmt.Sprintf("Objective scoring %.1f/100 needs strengthened action support.", obj.CombinedScore),
				AffectedObjective: obj.ObjectiveTitle,
				Impact:            "Medium-High - Strategic goal at risk of underdelivery",
				Evidence:          evidence,
			})
		}
	}

	if result.UnmatchedEntities > 10 {
		findingID++
		findings = append(findings, Finding{
			ID:                fmt.Sprintf("entities_%d", findingID),
			Severity:          SeverityHigh,
			Title:             "Significant Entity Coverage Gaps",
			Description:       fmt.Sprintf("%d strategic entities (KPIs, targets) not tracked in action plan.", result.UnmatchedEntities),
			AffectedObjective: "Multiple objectives",
			Impact:            "Medium - Accountability and measurement gaps across strategic plan",
			Evidence: []string{
				fmt.Sprintf("Total unmatched: %d", result.UnmatchedEntities),
				fmt.Sprintf("Match rate: %.1f%%", result.EntityScore),
			},
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return severityRank[findings[i].Severity] < severityRank[findings[j].Severity]
	})

	logger.Info("Findings detected",
		zap.Int("count", len(findings)),
		zap.Int("critical", countSeverity(findings, SeverityCritical)),
		zap.Int("high", countSeverity(findings, SeverityHigh)),
	)

	return findings
}

func countSeverity(findings []Finding, severity string) int {
	n := 0
	for _, f := range findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}
