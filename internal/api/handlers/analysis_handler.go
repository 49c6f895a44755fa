package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/analysis"
	"github.com/plansync/backend/internal/cache/redis"
	"github.com/plansync/backend/internal/metrics"
	"github.com/plansync/backend/internal/storage/sqlite"
	"github.com/plansync/backend/pkg/logger"
)

type AnalysisHandler struct {
	pipeline *analysis.Pipeline
	store    *sqlite.Client
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewAnalysisHandler(pipeline *analysis.Pipeline, store *sqlite.Client, cache *redis.Client, cacheTTL time.Duration) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline: pipeline,
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// HandleAnalyze runs the full pipeline for one plan pair.
func (h *AnalysisHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req struct {
		StrategicPlanID string `json:"strategic_plan_id"`
		ActionPlanID    string `json:"action_plan_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.StrategicPlanID == "" || req.ActionPlanID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "strategic_plan_id and action_plan_id are required",
		})
	}

	report, err := h.pipeline.Run(c.Context(), req.StrategicPlanID, req.ActionPlanID, nil)
	if errors.Is(err, sqlite.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan document not found",
		})
	}
	if err != nil {
		logger.Error("Analysis run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Analysis failed",
		})
	}

	return c.JSON(report)
}

// HandleGetRun returns a persisted analysis record by run id, cache-first.
func (h *AnalysisHandler) HandleGetRun(c *fiber.Ctx) error {
	id := c.Params("id")

	if h.cache != nil {
		var payload json.RawMessage
		if ok, err := h.cache.GetAnalysis(c.Context(), id, &payload); err == nil && ok {
			metrics.CacheHits.WithLabelValues("analysis").Inc()
			c.Set("Content-Type", "application/json")
			return c.Send(payload)
		}
		metrics.CacheMisses.WithLabelValues("analysis").Inc()
	}

	run, err := h.store.GetAnalysisRun(id)
	if errors.Is(err, sqlite.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Analysis run not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load analysis run", zap.String("run_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analysis run",
		})
	}

	if h.cache != nil {
		if err := h.cache.SetAnalysis(c.Context(), id, json.RawMessage(run.Payload), h.cacheTTL); err != nil {
			logger.Warn("Failed to cache analysis payload", zap.Error(err))
		}
	}

	c.Set("Content-Type", "application/json")
	return c.SendString(run.Payload)
}

// HandleGetLatest returns the most recent analysis record.
func (h *AnalysisHandler) HandleGetLatest(c *fiber.Ctx) error {
	run, err := h.store.GetLatestAnalysisRun()
	if errors.Is(err, sqlite.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No analysis runs yet",
		})
	}
	if err != nil {
		logger.Error("Failed to load latest analysis run", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analysis run",
		})
	}

	c.Set("Content-Type", "application/json")
	return c.SendString(run.Payload)
}
