package entities

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/plansync/backend/pkg/logger"
)

// Matcher pairs strategic entities with action-plan entities of the same type
// and derives the document-wide weighted match rate.
type Matcher struct {
	fuzzyThreshold int
}

func NewMatcher(fuzzyThreshold int) *Matcher {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = 85
	}
	return &Matcher{fuzzyThreshold: fuzzyThreshold}
}

// Collect groups section entities by type, deduplicating by lowercased
// trimmed text. Type is deliberately not part of the dedup key. Normalized
// texts of length <= 3 are noise and dropped.
func Collect(entities []Entity) map[string][]Entity {
	grouped := make(map[string][]Entity)
	seen := make(map[string]bool)

	for _, entity := range entities {
		normalized := strings.ToLower(strings.TrimSpace(entity.Text))
		if len(normalized) <= 3 || seen[normalized] {
			continue
		}
		seen[normalized] = true
		grouped[entity.Type] = append(grouped[entity.Type], entity)
	}

	return grouped
}

// Similarity scores two entity texts on a 0-100 scale and classifies the
// match. Normalized-equal strings are forced to 100/exact; otherwise the
// score is the higher of a token-order-invariant ratio and a substring
// overlap ratio.
func (m *Matcher) Similarity(a, b string) (float64, string) {
	aNorm := strings.ToLower(strings.TrimSpace(a))
	bNorm := strings.ToLower(strings.TrimSpace(b))

	if aNorm == bNorm {
		return 100, MatchExact
	}

	tokenScore := fuzzy.TokenSortRatio(aNorm, bNorm)
	partialScore := fuzzy.PartialRatio(aNorm, bNorm)

	score := tokenScore
	if partialScore > score {
		score = partialScore
	}

	switch {
	case score >= 95:
		return float64(score), MatchExact
	case score >= m.fuzzyThreshold:
		return float64(score), MatchFuzzy
	case score >= 60:
		return float64(score), MatchPartial
	default:
		return float64(score), MatchNone
	}
}

// Match finds the best action candidate for every strategic entity. Only the
// single highest-scoring candidate per strategic entity is considered, and a
// match is emitted only when that best score clears the fuzzy threshold.
// Ties keep the first candidate in action-list order.
func (m *Matcher) Match(strategic, action map[string][]Entity) []EntityMatch {
	var matches []EntityMatch

	for _, entityType := range orderedTypes(strategic) {
		actionCandidates, ok := action[entityType]
		if !ok || len(actionCandidates) == 0 {
			continue
		}

		for _, spEntity := range strategic[entityType] {
			var best *Entity
			bestScore := 0.0
			bestType := MatchNone

			for i := range actionCandidates {
				score, matchType := m.Similarity(spEntity.Text, actionCandidates[i].Text)
				if score > bestScore {
					bestScore = score
					bestType = matchType
					best = &actionCandidates[i]
				}
			}

			if best != nil && bestScore >= float64(m.fuzzyThreshold) {
				matches = append(matches, EntityMatch{
					Strategic:  spEntity,
					Action:     *best,
					MatchScore: bestScore,
					MatchType:  bestType,
				})
			}
		}
	}

	logger.Debug("Entity matching complete", zap.Int("matches", len(matches)))

	return matches
}

// Score computes the document-wide weighted match rate and collects unmatched
// strategic entities verbatim for finding generation.
func (m *Matcher) Score(strategic map[string][]Entity, matches []EntityMatch) AnalysisResult {
	matchedTexts := make(map[string]bool)
	matchesByType := make(map[string]int)
	for _, match := range matches {
		matchesByType[match.Strategic.Type]++
		matchedTexts[strings.ToLower(match.Strategic.Text)] = true
	}

	totalWeighted := 0.0
	matchedWeighted := 0.0
	totalStrategic := 0
	var unmatched []Entity

	for _, entityType := range orderedTypes(strategic) {
		weight := TypeWeight(entityType)
		for _, entity := range strategic[entityType] {
			totalStrategic++
			totalWeighted += weight
			if matchedTexts[strings.ToLower(entity.Text)] {
				matchedWeighted += weight
			} else {
				unmatched = append(unmatched, entity)
			}
		}
	}

	matchRate := 0.0
	if totalWeighted > 0 {
		matchRate = matchedWeighted / totalWeighted * 100
	}

	result := AnalysisResult{
		OverallScore:       matchRate,
		TotalStrategic:     totalStrategic,
		MatchedEntities:    len(matchedTexts),
		UnmatchedEntities:  totalStrategic - len(matchedTexts),
		MatchRate:          matchRate,
		MatchesByType:      matchesByType,
		Matches:            matches,
		UnmatchedStrategic: unmatched,
	}

	logger.Info("Entity score calculated",
		zap.Float64("match_rate", matchRate),
		zap.Int("total_strategic", totalStrategic),
		zap.Int("matched", result.MatchedEntities),
		zap.Int("unmatched", result.UnmatchedEntities),
	)

	return result
}

// Analyze is the full entity pass: match then score.
func (m *Matcher) Analyze(strategic, action map[string][]Entity) AnalysisResult {
	matches := m.Match(strategic, action)
	return m.Score(strategic, matches)
}

// orderedTypes returns the canonical type order first, then any remaining
// types sorted, restricted to types present in the map.
func orderedTypes(grouped map[string][]Entity) []string {
	var ordered []string
	seen := make(map[string]bool)

	for _, entityType := range canonicalTypeOrder {
		if _, ok := grouped[entityType]; ok {
			ordered = append(ordered, entityType)
			seen[entityType] = true
		}
	}

	var rest []string
	for entityType := range grouped {
		if !seen[entityType] {
			rest = append(rest, entityType)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}
