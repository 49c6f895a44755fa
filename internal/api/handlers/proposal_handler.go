package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/metrics"
	"github.com/plansync/backend/internal/proposals"
	"github.com/plansync/backend/pkg/logger"
)

type ProposalHandler struct {
	manager *proposals.Manager
}

func NewProposalHandler(manager *proposals.Manager) *ProposalHandler {
	return &ProposalHandler{manager: manager}
}

// HandleList returns the proposals of one analysis run.
func (h *ProposalHandler) HandleList(c *fiber.Ctx) error {
	runID := c.Params("runId")

	proposalSet, err := h.manager.List(runID)
	if err != nil {
		logger.Error("Failed to list proposals", zap.String("run_id", runID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list proposals",
		})
	}

	return c.JSON(fiber.Map{
		"run_id":    runID,
		"proposals": proposalSet,
	})
}

// HandleGet returns one proposal by id.
func (h *ProposalHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")

	proposal, err := h.manager.Get(id)
	if errors.Is(err, proposals.ErrProposalNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proposal not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load proposal", zap.String("proposal_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load proposal",
		})
	}

	return c.JSON(proposal)
}

// HandleAccept finalizes a proposal into the action plan.
func (h *ProposalHandler) HandleAccept(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		ActionPlanID string `json:"action_plan_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ActionPlanID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action_plan_id is required",
		})
	}

	doc, err := h.manager.Accept(c.Context(), id, req.ActionPlanID)
	switch {
	case errors.Is(err, proposals.ErrProposalNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proposal not found",
		})
	case errors.Is(err, proposals.ErrProposalFinalized):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Proposal already finalized",
		})
	case err != nil:
		logger.Error("Failed to accept proposal", zap.String("proposal_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to accept proposal",
		})
	}

	metrics.ProposalsFinalized.WithLabelValues(proposals.StatusAccepted).Inc()

	return c.JSON(fiber.Map{
		"proposal_id": id,
		"status":      proposals.StatusAccepted,
		"action_plan": doc,
	})
}

// HandleReject finalizes a proposal without touching the action plan.
func (h *ProposalHandler) HandleReject(c *fiber.Ctx) error {
	id := c.Params("id")

	err := h.manager.Reject(c.Context(), id)
	switch {
	case errors.Is(err, proposals.ErrProposalNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Proposal not found",
		})
	case errors.Is(err, proposals.ErrProposalFinalized):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Proposal already finalized",
		})
	case err != nil:
		logger.Error("Failed to reject proposal", zap.String("proposal_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reject proposal",
		})
	}

	metrics.ProposalsFinalized.WithLabelValues(proposals.StatusRejected).Inc()

	return c.JSON(fiber.Map{
		"proposal_id": id,
		"status":      proposals.StatusRejected,
	})
}
