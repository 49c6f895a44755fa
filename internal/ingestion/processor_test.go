package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/internal/vector/milvus"
	"github.com/plansync/backend/pkg/utils"
)

type fakeEmbedder struct {
	batchCalls  int
	singleCalls int
	err         error
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	f.singleCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), float32(i) + 0.5}
	}
	return out, nil
}

type fakeCache struct {
	embeddings  map[string][]float32
	sets        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{embeddings: make(map[string][]float32)}
}

func (f *fakeCache) GetEmbedding(_ context.Context, textHash string) ([]float32, bool, error) {
	embedding, ok := f.embeddings[textHash]
	return embedding, ok, nil
}

func (f *fakeCache) SetEmbedding(_ context.Context, textHash string, embedding []float32, _ time.Duration) error {
	f.sets++
	f.embeddings[textHash] = embedding
	return nil
}

func (f *fakeCache) InvalidateAnalyses(_ context.Context) error {
	f.invalidated++
	return nil
}

type fakeIndex struct {
	upserted []milvus.SectionVector
}

func (f *fakeIndex) Upsert(_ context.Context, sections []milvus.SectionVector) error {
	f.upserted = append(f.upserted, sections...)
	return nil
}

type fakeDocStore struct {
	docs map[string]*models.PlanDocument
}

func (f *fakeDocStore) UpsertDocument(doc *models.PlanDocument) error {
	if f.docs == nil {
		f.docs = make(map[string]*models.PlanDocument)
	}
	f.docs[doc.ID] = doc
	return nil
}

func testDocument() *models.PlanDocument {
	return &models.PlanDocument{
		ID:           "sp1",
		DocumentType: models.DocTypeStrategicPlan,
		Title:        "Strategic Plan 2026",
		Sections: []models.Section{
			{ID: "s1", Type: models.SectionStrategicObjective, Title: "Objective one", Content: "Grow revenue."},
			{ID: "s2", Type: models.SectionStrategicObjective, Title: "Objective two", Content: "Cut costs."},
		},
	}
}

func TestIngestIndexesAndStores(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := newFakeCache()
	index := &fakeIndex{}
	store := &fakeDocStore{}

	p := NewProcessor(store, embedder, index, cache, time.Hour)

	doc := testDocument()
	require.NoError(t, p.Ingest(context.Background(), doc))

	require.Len(t, index.upserted, 2)
	assert.Equal(t, "s1", index.upserted[0].SectionID)
	assert.Equal(t, "sp1", index.upserted[0].PlanID)
	assert.Equal(t, milvus.NamespaceStrategic, index.upserted[0].Namespace)

	assert.NotNil(t, store.docs["sp1"])
	assert.False(t, doc.CreatedAt.IsZero())
	assert.False(t, doc.UpdatedAt.IsZero())

	// One batch for both sections; a changed plan invalidates analyses.
	assert.Equal(t, 1, embedder.batchCalls)
	assert.Equal(t, 2, cache.sets)
	assert.Equal(t, 1, cache.invalidated)
}

func TestIngestActionPlanNamespace(t *testing.T) {
	index := &fakeIndex{}
	p := NewProcessor(&fakeDocStore{}, &fakeEmbedder{}, index, nil, time.Hour)

	doc := testDocument()
	doc.DocumentType = models.DocTypeActionPlan

	require.NoError(t, p.Ingest(context.Background(), doc))
	assert.Equal(t, milvus.NamespaceAction, index.upserted[0].Namespace)
}

func TestIngestRejectsUnknownType(t *testing.T) {
	p := NewProcessor(&fakeDocStore{}, &fakeEmbedder{}, &fakeIndex{}, nil, time.Hour)

	doc := testDocument()
	doc.DocumentType = "quarterly_report"

	assert.Error(t, p.Ingest(context.Background(), doc))
}

func TestIngestFailsWhenEmbeddingFails(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("service down")}
	index := &fakeIndex{}
	store := &fakeDocStore{}

	p := NewProcessor(store, embedder, index, nil, time.Hour)

	assert.Error(t, p.Ingest(context.Background(), testDocument()))
	assert.Empty(t, index.upserted)
	assert.Empty(t, store.docs)
}

func TestIngestServesCachedEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := newFakeCache()

	doc := testDocument()
	for _, section := range doc.Sections {
		cache.embeddings[utils.HashString(SectionText(section))] = []float32{0.9, 0.9}
	}

	p := NewProcessor(&fakeDocStore{}, embedder, &fakeIndex{}, cache, time.Hour)

	require.NoError(t, p.Ingest(context.Background(), doc))
	assert.Equal(t, 0, embedder.batchCalls)
}

func TestEmbedTextCacheFirst(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := newFakeCache()
	p := NewProcessor(&fakeDocStore{}, embedder, &fakeIndex{}, cache, time.Hour)

	first, err := p.EmbedText(context.Background(), "grow revenue")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.singleCalls)

	second, err := p.EmbedText(context.Background(), "grow revenue")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.singleCalls)
	assert.Equal(t, first, second)
}
