package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plansync/backend/internal/metrics"
	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/internal/vector/milvus"
	"github.com/plansync/backend/pkg/logger"
	"github.com/plansync/backend/pkg/utils"
)

// Embedder generates embeddings for section texts.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache is an optional cache keyed by content hash.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
	InvalidateAnalyses(ctx context.Context) error
}

// Index receives the section vectors.
type Index interface {
	Upsert(ctx context.Context, sections []milvus.SectionVector) error
}

// DocumentStore persists the structured document.
type DocumentStore interface {
	UpsertDocument(doc *models.PlanDocument) error
}

// Processor takes a structured plan document, embeds its sections, indexes
// them under the document's namespace, and persists the document. Embedding
// failure is fatal for the document: a partially indexed plan would skew
// every later analysis.
type Processor struct {
	store        DocumentStore
	embedder     Embedder
	index        Index
	cache        EmbeddingCache
	embeddingTTL time.Duration
}

func NewProcessor(store DocumentStore, embedder Embedder, index Index, cache EmbeddingCache, embeddingTTL time.Duration) *Processor {
	return &Processor{
		store:        store,
		embedder:     embedder,
		index:        index,
		cache:        cache,
		embeddingTTL: embeddingTTL,
	}
}

func namespaceFor(documentType string) (string, error) {
	switch documentType {
	case models.DocTypeStrategicPlan:
		return milvus.NamespaceStrategic, nil
	case models.DocTypeActionPlan:
		return milvus.NamespaceAction, nil
	default:
		return "", fmt.Errorf("unknown document type: %s", documentType)
	}
}

// Ingest stores and indexes one document.
func (p *Processor) Ingest(ctx context.Context, doc *models.PlanDocument) error {
	namespace, err := namespaceFor(doc.DocumentType)
	if err != nil {
		return err
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	embeddings, err := p.embedSections(ctx, doc.Sections)
	if err != nil {
		return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}

	vectors := make([]milvus.SectionVector, len(doc.Sections))
	for i, section := range doc.Sections {
		vectors[i] = milvus.SectionVector{
			SectionID: section.ID,
			PlanID:    doc.ID,
			Namespace: namespace,
			Title:     section.Title,
			Content:   section.Content,
			Budget:    section.Budget,
			Timeline:  section.Timeline,
			Embedding: embeddings[i],
		}
	}

	if err := p.index.Upsert(ctx, vectors); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	if err := p.store.UpsertDocument(doc); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}

	// A changed document makes every cached analysis stale.
	if p.cache != nil {
		if err := p.cache.InvalidateAnalyses(ctx); err != nil {
			logger.Warn("Failed to invalidate analysis cache", zap.Error(err))
		}
	}

	logger.Info("Document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("namespace", namespace),
		zap.Int("sections", len(doc.Sections)),
	)

	return nil
}

// SectionText is the content that gets embedded for one section.
func SectionText(section models.Section) string {
	return section.Title + "\n" + section.Content
}

// EmbedText returns the embedding for one ad hoc text, cache-first.
func (p *Processor) EmbedText(ctx context.Context, text string) ([]float32, error) {
	hash := utils.HashString(text)

	if p.cache != nil {
		if cached, ok, err := p.cache.GetEmbedding(ctx, hash); err == nil && ok {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	embedding, err := p.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.SetEmbedding(ctx, hash, embedding, p.embeddingTTL); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}

	return embedding, nil
}

// embedSections resolves each section's embedding, serving cached vectors and
// batching the rest into one service call.
func (p *Processor) embedSections(ctx context.Context, sections []models.Section) ([][]float32, error) {
	embeddings := make([][]float32, len(sections))
	var missing []int
	var missingTexts []string

	for i, section := range sections {
		text := SectionText(section)

		if p.cache != nil {
			if cached, ok, err := p.cache.GetEmbedding(ctx, utils.HashString(text)); err == nil && ok {
				metrics.CacheHits.WithLabelValues("embedding").Inc()
				embeddings[i] = cached
				continue
			}
			metrics.CacheMisses.WithLabelValues("embedding").Inc()
		}

		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}

	if len(missingTexts) > 0 {
		fresh, err := p.embedder.GenerateBatchEmbeddings(ctx, missingTexts)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missingTexts) {
			return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(missingTexts), len(fresh))
		}

		for j, idx := range missing {
			embeddings[idx] = fresh[j]

			if p.cache != nil {
				hash := utils.HashString(missingTexts[j])
				if err := p.cache.SetEmbedding(ctx, hash, fresh[j], p.embeddingTTL); err != nil {
					logger.Warn("Failed to cache embedding", zap.Error(err))
				}
			}
		}
	}

	logger.Debug("Sections embedded",
		zap.Int("total", len(sections)),
		zap.Int("cache_hits", len(sections)-len(missing)),
	)

	return embeddings, nil
}
