package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/alignment"
	"github.com/plansync/backend/internal/entities"
	"github.com/plansync/backend/internal/findings"
	"github.com/plansync/backend/internal/graph/neo4j"
	"github.com/plansync/backend/internal/ingestion"
	"github.com/plansync/backend/internal/metrics"
	"github.com/plansync/backend/internal/proposals"
	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/internal/simulation"
	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/internal/storage/sqlite"
	"github.com/plansync/backend/internal/vector/milvus"
	"github.com/plansync/backend/pkg/logger"
)

// Searcher is the vector index surface the pipeline queries.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, namespace string) ([]milvus.SearchResult, error)
}

// GraphExporter mirrors the alignment picture; export is best effort.
type GraphExporter interface {
	ExportAlignment(ctx context.Context, runID string, objectives []neo4j.ObjectiveNode, edges []neo4j.SupportEdge) error
}

// ProgressFunc receives stage updates while a run is in flight.
type ProgressFunc func(stage, message string)

// Summary is the executive roll-up of one run.
type Summary struct {
	TotalFindings         int     `json:"total_findings"`
	CriticalCount         int     `json:"critical_count"`
	HighCount             int     `json:"high_count"`
	TotalProposals        int     `json:"total_proposals"`
	HighPriorityProposals int     `json:"high_priority_proposals"`
	CurrentScore          float64 `json:"current_score"`
	ProjectedScore        float64 `json:"projected_score"`
	Improvement           float64 `json:"improvement"`
	ObjectivesAffected    int     `json:"objectives_affected"`
}

// Report is the complete result of one analysis run. The persisted payload
// is this struct marshalled to JSON.
type Report struct {
	RunID           string               `json:"run_id"`
	StrategicPlanID string               `json:"strategic_plan_id"`
	ActionPlanID    string               `json:"action_plan_id"`
	Synchronization scoring.Result       `json:"synchronization"`
	Findings        []findings.Finding   `json:"critical_findings"`
	Proposals       []proposals.Proposal `json:"proposals"`
	Simulation      simulation.Result    `json:"impact_simulation"`
	Summary         Summary              `json:"summary"`
}

// Pipeline runs the analysis stages strictly in sequence. External service
// failures inside a stage degrade that stage to empty results; only missing
// documents abort the run.
type Pipeline struct {
	store      *sqlite.Client
	processor  *ingestion.Processor
	index      Searcher
	matcher    *entities.Matcher
	aggregator *alignment.Aggregator
	engine     *scoring.Engine
	detector   *findings.Detector
	generator  *proposals.Generator
	simulator  *simulation.Simulator
	manager    *proposals.Manager
	graph      GraphExporter
	topK       int
}

func NewPipeline(
	store *sqlite.Client,
	processor *ingestion.Processor,
	index Searcher,
	matcher *entities.Matcher,
	aggregator *alignment.Aggregator,
	engine *scoring.Engine,
	detector *findings.Detector,
	generator *proposals.Generator,
	simulator *simulation.Simulator,
	manager *proposals.Manager,
	graph GraphExporter,
	topK int,
) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		store:      store,
		processor:  processor,
		index:      index,
		matcher:    matcher,
		aggregator: aggregator,
		engine:     engine,
		detector:   detector,
		generator:  generator,
		simulator:  simulator,
		manager:    manager,
		graph:      graph,
		topK:       topK,
	}
}

// Run executes the full pipeline for one plan pair.
func (p *Pipeline) Run(ctx context.Context, strategicPlanID, actionPlanID string, progress ProgressFunc) (*Report, error) {
	started := time.Now()
	notify := func(stage, message string) {
		if progress != nil {
			progress(stage, message)
		}
	}

	strategicDoc, err := p.store.GetDocument(strategicPlanID)
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load strategic plan: %w", err)
	}
	actionDoc, err := p.store.GetDocument(actionPlanID)
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load action plan: %w", err)
	}

	notify("entities", "Matching strategic and action entities")
	strategic := entities.Collect(strategicDoc.AllEntities())
	action := entities.Collect(actionDoc.AllEntities())
	entityResult := p.matcher.Analyze(strategic, action)

	notify("alignment", "Computing semantic alignment per objective")
	docAlign := p.alignObjectives(ctx, strategicDoc, actionPlanID)

	notify("fusion", "Fusing similarity and entity signals")
	syncResult := p.engine.Assess(ctx, strategicDoc.Title, actionDoc.Title, docAlign, entityResult)

	notify("findings", "Detecting misalignment findings")
	findingList := p.detector.Detect(syncResult)
	for _, f := range findingList {
		metrics.FindingsDetected.WithLabelValues(f.Severity).Inc()
	}

	notify("proposals", "Generating improvement proposals")
	proposalSet := p.generator.Generate(ctx, strategicDoc, syncResult, findingList)
	for _, prop := range proposalSet {
		metrics.ProposalsGenerated.WithLabelValues(prop.Priority).Inc()
	}

	notify("simulation", "Simulating proposal impact")
	impact := p.simulator.Simulate(proposalSet, syncResult.Objectives, syncResult.OverallScore, syncResult.EntityScore)

	runID := uuid.New().String()
	report := &Report{
		RunID:           runID,
		StrategicPlanID: strategicPlanID,
		ActionPlanID:    actionPlanID,
		Synchronization: syncResult,
		Findings:        findingList,
		Proposals:       proposalSet,
		Simulation:      impact,
		Summary:         buildSummary(findingList, proposalSet, impact),
	}

	notify("persist", "Persisting analysis record")
	if err := p.persist(report); err != nil {
		metrics.AnalysisTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if p.graph != nil {
		notify("graph", "Exporting alignment graph")
		p.exportGraph(ctx, runID, docAlign, syncResult)
	}

	metrics.AnalysisTotal.WithLabelValues("success").Inc()
	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	metrics.SynchronizationScore.Set(syncResult.OverallScore)

	logger.Info("Analysis run complete",
		zap.String("run_id", runID),
		zap.Float64("overall_score", syncResult.OverallScore),
		zap.Int("findings", len(findingList)),
		zap.Int("proposals", len(proposalSet)),
		zap.Duration("duration", time.Since(started)),
	)

	return report, nil
}

// alignObjectives queries the vector index for each strategic objective.
// Embedding or search failures degrade that objective to zero matches.
func (p *Pipeline) alignObjectives(ctx context.Context, strategicDoc *models.PlanDocument, actionPlanID string) alignment.DocumentAlignment {
	var aligned []alignment.ObjectiveAlignment

	for _, section := range strategicDoc.ObjectiveSections() {
		var matches []alignment.SimilarityMatch

		embedding, err := p.processor.EmbedText(ctx, ingestion.SectionText(section))
		if err != nil {
			logger.Warn("Failed to embed objective, treating as unsupported",
				zap.String("objective_id", section.ID),
				zap.Error(err),
			)
		} else {
			hits, err := p.index.Search(ctx, embedding, p.topK, milvus.NamespaceAction)
			if err != nil {
				logger.Warn("Vector search failed, treating objective as unsupported",
					zap.String("objective_id", section.ID),
					zap.Error(err),
				)
			} else {
				metrics.VectorResultsCount.Observe(float64(len(hits)))
				for _, hit := range hits {
					if hit.PlanID != actionPlanID {
						continue
					}
					matches = append(matches, alignment.SimilarityMatch{
						ActionSectionID: hit.SectionID,
						ActionTitle:     hit.Title,
						Similarity:      float64(hit.Score),
					})
				}
			}
		}

		aligned = append(aligned, p.aggregator.Aggregate(section.ID, section.Title, matches))
	}

	return p.aggregator.DocumentScore(aligned)
}

func (p *Pipeline) persist(report *Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis payload: %w", err)
	}

	run := &models.AnalysisRun{
		ID:              report.RunID,
		StrategicPlanID: report.StrategicPlanID,
		ActionPlanID:    report.ActionPlanID,
		OverallScore:    report.Synchronization.OverallScore,
		EmbeddingScore:  report.Synchronization.EmbeddingScore,
		EntityScore:     report.Synchronization.EntityScore,
		Payload:         string(payload),
		CreatedAt:       time.Now(),
	}

	if err := p.store.InsertAnalysisRun(run); err != nil {
		return err
	}

	if err := p.manager.Save(report.RunID, report.Proposals); err != nil {
		return fmt.Errorf("failed to persist proposals: %w", err)
	}

	return nil
}

func (p *Pipeline) exportGraph(ctx context.Context, runID string, docAlign alignment.DocumentAlignment, syncResult scoring.Result) {
	combinedByID := make(map[string]scoring.ObjectiveSync, len(syncResult.Objectives))
	for _, obj := range syncResult.Objectives {
		combinedByID[obj.ObjectiveID] = obj
	}

	var nodes []neo4j.ObjectiveNode
	var edges []neo4j.SupportEdge

	for _, obj := range docAlign.Objectives {
		sync := combinedByID[obj.ObjectiveID]
		nodes = append(nodes, neo4j.ObjectiveNode{
			ID:            obj.ObjectiveID,
			Title:         obj.ObjectiveTitle,
			CombinedScore: sync.CombinedScore,
			StrongSupport: sync.HasStrongSupport,
		})

		for _, match := range obj.TopMatches {
			edges = append(edges, neo4j.SupportEdge{
				ObjectiveID: obj.ObjectiveID,
				ActionID:    match.ActionSectionID,
				ActionTitle: match.ActionTitle,
				Similarity:  match.Similarity,
			})
		}
	}

	if err := p.graph.ExportAlignment(ctx, runID, nodes, edges); err != nil {
		logger.Warn("Alignment graph export failed", zap.Error(err))
	}
}

func buildSummary(findingList []findings.Finding, proposalSet []proposals.Proposal, impact simulation.Result) Summary {
	summary := Summary{
		TotalFindings:      len(findingList),
		TotalProposals:     len(proposalSet),
		CurrentScore:       impact.CurrentScore,
		ProjectedScore:     impact.ProjectedScore,
		Improvement:        impact.Improvement,
		ObjectivesAffected: len(impact.AffectedObjectives),
	}

	for _, f := range findingList {
		switch f.Severity {
		case findings.SeverityCritical:
			summary.CriticalCount++
		case findings.SeverityHigh:
			summary.HighCount++
		}
	}

	for _, prop := range proposalSet {
		if prop.Priority == "high" {
			summary.HighPriorityProposals++
		}
	}

	return summary
}
