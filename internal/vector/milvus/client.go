package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/plansync/backend/pkg/logger"
)

// Namespaces partition the shared collection by document role.
const (
	NamespaceStrategic = "strategic_plan"
	NamespaceAction    = "action_plan"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// SectionVector is one plan section ready for indexing.
type SectionVector struct {
	SectionID string
	PlanID    string
	Namespace string
	Title     string
	Content   string
	Budget    float64
	Timeline  string
	Embedding []float32
}

// SearchResult is one nearest-neighbor hit. Score is cosine similarity in
// [-1, 1], higher is closer.
type SearchResult struct {
	SectionID string
	PlanID    string
	Title     string
	Score     float32
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Plan section embeddings",
		Fields: []*entity.Field{
			{
				Name:       "section_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "plan_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "namespace",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
			{
				Name:     "budget",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "timeline",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

// Upsert replaces the indexed vectors for the given sections. Sections are
// deleted by primary key first so reingesting a plan never duplicates rows.
func (m *Client) Upsert(ctx context.Context, sections []SectionVector) error {
	if len(sections) == 0 {
		return nil
	}

	expr := "section_id in ["
	for i, s := range sections {
		if i > 0 {
			expr += ", "
		}
		expr += fmt.Sprintf("%q", s.SectionID)
	}
	expr += "]"
	if err := m.client.Delete(ctx, m.collectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete stale sections: %w", err)
	}

	sectionIDs := make([]string, len(sections))
	embeddings := make([][]float32, len(sections))
	planIDs := make([]string, len(sections))
	namespaces := make([]string, len(sections))
	titles := make([]string, len(sections))
	contents := make([]string, len(sections))
	budgets := make([]float64, len(sections))
	timelines := make([]string, len(sections))

	for i, s := range sections {
		sectionIDs[i] = s.SectionID
		embeddings[i] = s.Embedding
		planIDs[i] = s.PlanID
		namespaces[i] = s.Namespace
		titles[i] = s.Title
		contents[i] = s.Content
		budgets[i] = s.Budget
		timelines[i] = s.Timeline
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("section_id", sectionIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("plan_id", planIDs),
		entity.NewColumnVarChar("namespace", namespaces),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnDouble("budget", budgets),
		entity.NewColumnVarChar("timeline", timelines),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sections: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Sections indexed", zap.Int("count", len(sections)))

	return nil
}

// Search returns the topK nearest sections within one namespace, ordered by
// descending similarity.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int, namespace string) ([]SearchResult, error) {
	expr := ""
	if namespace != "" {
		expr = fmt.Sprintf(`namespace == "%s"`, namespace)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"section_id", "plan_id", "title"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			sectionIDCol := sr.Fields.GetColumn("section_id")
			planIDCol := sr.Fields.GetColumn("plan_id")
			titleCol := sr.Fields.GetColumn("title")

			sectionID, _ := sectionIDCol.Get(i)
			planID, _ := planIDCol.Get(i)
			title, _ := titleCol.Get(i)

			results = append(results, SearchResult{
				SectionID: sectionID.(string),
				PlanID:    planID.(string),
				Title:     title.(string),
				Score:     sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
		zap.String("namespace", namespace),
	)

	return results, nil
}
