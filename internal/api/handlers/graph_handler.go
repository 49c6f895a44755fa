package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/graph/neo4j"
	"github.com/plansync/backend/pkg/logger"
)

// GraphHandler serves gap views from the exported alignment graph. It is only
// mounted when the graph export is enabled.
type GraphHandler struct {
	graph *neo4j.Client
}

func NewGraphHandler(graph *neo4j.Client) *GraphHandler {
	return &GraphHandler{graph: graph}
}

// HandleUnsupported returns the objectives of a run with no supporting action.
func (h *GraphHandler) HandleUnsupported(c *fiber.Ctx) error {
	runID := c.Params("runId")

	objectives, err := h.graph.UnsupportedObjectives(c.Context(), runID)
	if err != nil {
		logger.Error("Failed to query unsupported objectives", zap.String("run_id", runID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query alignment graph",
		})
	}

	out := make([]fiber.Map, 0, len(objectives))
	for _, obj := range objectives {
		out = append(out, fiber.Map{
			"objective_id":   obj.ID,
			"title":          obj.Title,
			"combined_score": obj.CombinedScore,
			"strong_support": obj.StrongSupport,
		})
	}

	return c.JSON(fiber.Map{
		"run_id":     runID,
		"objectives": out,
	})
}
