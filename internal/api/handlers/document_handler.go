package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/ingestion"
	"github.com/plansync/backend/internal/metrics"
	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/internal/storage/sqlite"
	"github.com/plansync/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
	store     *sqlite.Client
}

func NewDocumentHandler(processor *ingestion.Processor, store *sqlite.Client) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
		store:     store,
	}
}

// HandleIngest accepts a structured plan document and indexes it.
func (h *DocumentHandler) HandleIngest(c *fiber.Ctx) error {
	var doc models.PlanDocument

	if err := c.BodyParser(&doc); err != nil {
		logger.Error("Failed to parse document body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if doc.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Document id is required",
		})
	}
	if doc.DocumentType != models.DocTypeStrategicPlan && doc.DocumentType != models.DocTypeActionPlan {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "document_type must be strategic_plan or action_plan",
		})
	}
	if len(doc.Sections) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Document has no sections",
		})
	}

	if err := h.processor.Ingest(c.Context(), &doc); err != nil {
		logger.Error("Failed to ingest document", zap.String("doc_id", doc.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to ingest document",
		})
	}

	metrics.DocumentsIngested.WithLabelValues(doc.DocumentType).Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       doc.ID,
		"sections": len(doc.Sections),
	})
}

// HandleGet returns a stored document by id.
func (h *DocumentHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")

	doc, err := h.store.GetDocument(id)
	if errors.Is(err, sqlite.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load document", zap.String("doc_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load document",
		})
	}

	return c.JSON(doc)
}
