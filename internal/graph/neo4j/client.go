package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/plansync/backend/pkg/circuitbreaker"
	"github.com/plansync/backend/pkg/logger"
	"github.com/plansync/backend/pkg/retry"
)

// Client mirrors the alignment picture into a graph so dashboards can walk
// objective-to-action support edges. Exports are best effort; the analysis
// pipeline never fails on a graph error.
type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// ObjectiveNode is one strategic objective as stored in the graph.
type ObjectiveNode struct {
	ID            string
	Title         string
	CombinedScore float64
	StrongSupport bool
}

// SupportEdge links an objective to the action section that supports it.
type SupportEdge struct {
	ObjectiveID string
	ActionID    string
	ActionTitle string
	Similarity  float64
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// ExportAlignment replaces the alignment subgraph for one analysis run.
func (c *Client) ExportAlignment(ctx context.Context, runID string, objectives []ObjectiveNode, edges []SupportEdge) error {
	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, `
			MATCH (o:Objective {run_id: $run_id})
			DETACH DELETE o
		`, map[string]interface{}{"run_id": runID})
		if err != nil {
			return fmt.Errorf("failed to clear previous run: %w", err)
		}

		for _, obj := range objectives {
			_, err := session.Run(ctx, `
				MERGE (o:Objective {id: $id, run_id: $run_id})
				SET o.title = $title,
				    o.combined_score = $combined_score,
				    o.strong_support = $strong_support,
				    o.updated_at = timestamp()
			`, map[string]interface{}{
				"id":             obj.ID,
				"run_id":         runID,
				"title":          obj.Title,
				"combined_score": obj.CombinedScore,
				"strong_support": obj.StrongSupport,
			})
			if err != nil {
				return fmt.Errorf("failed to create objective node: %w", err)
			}
		}

		for _, edge := range edges {
			_, err := session.Run(ctx, `
				MATCH (o:Objective {id: $objective_id, run_id: $run_id})
				MERGE (a:ActionItem {id: $action_id})
				SET a.title = $action_title
				MERGE (a)-[r:SUPPORTS]->(o)
				SET r.similarity = $similarity,
				    r.run_id = $run_id,
				    r.updated_at = timestamp()
			`, map[string]interface{}{
				"objective_id": edge.ObjectiveID,
				"action_id":    edge.ActionID,
				"action_title": edge.ActionTitle,
				"similarity":   edge.Similarity,
				"run_id":       runID,
			})
			if err != nil {
				return fmt.Errorf("failed to create support edge: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	logger.Info("Alignment graph exported",
		zap.String("run_id", runID),
		zap.Int("objectives", len(objectives)),
		zap.Int("edges", len(edges)),
	)

	return nil
}

// UnsupportedObjectives returns objectives of a run that have no SUPPORTS
// edge, for dashboard gap views.
func (c *Client) UnsupportedObjectives(ctx context.Context, runID string) ([]ObjectiveNode, error) {
	var objectives []ObjectiveNode

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, `
			MATCH (o:Objective {run_id: $run_id})
			WHERE NOT ( (:ActionItem)-[:SUPPORTS]->(o) )
			RETURN o.id, o.title, o.combined_score, o.strong_support
			ORDER BY o.combined_score
		`, map[string]interface{}{"run_id": runID})
		if err != nil {
			return fmt.Errorf("failed to query unsupported objectives: %w", err)
		}

		for result.Next(ctx) {
			record := result.Record()
			id, _ := record.Get("o.id")
			title, _ := record.Get("o.title")
			score, _ := record.Get("o.combined_score")
			strong, _ := record.Get("o.strong_support")

			objectives = append(objectives, ObjectiveNode{
				ID:            id.(string),
				Title:         title.(string),
				CombinedScore: score.(float64),
				StrongSupport: strong.(bool),
			})
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	return objectives, nil
}
