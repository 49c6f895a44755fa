package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/analysis"
	"github.com/plansync/backend/pkg/logger"
)

// WebSocketHandler streams analysis progress to dashboard clients. A run can
// take minutes against large plans; the progress events keep the UI honest.
type WebSocketHandler struct {
	pipeline *analysis.Pipeline
}

func NewWebSocketHandler(pipeline *analysis.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{pipeline: pipeline}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type            string `json:"type"`
			StrategicPlanID string `json:"strategic_plan_id"`
			ActionPlanID    string `json:"action_plan_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "analyze" {
			continue
		}

		if msg.StrategicPlanID == "" || msg.ActionPlanID == "" {
			h.sendError(c, "strategic_plan_id and action_plan_id are required")
			continue
		}

		logger.Info("Processing WebSocket analysis request",
			zap.String("strategic_plan_id", msg.StrategicPlanID),
			zap.String("action_plan_id", msg.ActionPlanID),
		)

		if err := h.runAnalysis(c, msg.StrategicPlanID, msg.ActionPlanID); err != nil {
			logger.Error("WebSocket analysis failed", zap.Error(err))
			h.sendError(c, "Analysis failed")
		}
	}
}

func (h *WebSocketHandler) runAnalysis(c *websocket.Conn, strategicPlanID, actionPlanID string) error {
	ctx := context.Background()

	progress := func(stage, message string) {
		h.sendProgress(c, stage, message)
	}

	report, err := h.pipeline.Run(ctx, strategicPlanID, actionPlanID, progress)
	if err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"report": report,
	})
}

func (h *WebSocketHandler) sendProgress(c *websocket.Conn, stage, message string) {
	msg := map[string]interface{}{
		"type":    "progress",
		"stage":   stage,
		"message": message,
	}

	if err := c.WriteJSON(msg); err != nil {
		logger.Warn("Failed to send progress event", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}
