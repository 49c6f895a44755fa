package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/alignment"
	"github.com/plansync/backend/internal/analysis"
	"github.com/plansync/backend/internal/api/handlers"
	"github.com/plansync/backend/internal/cache/redis"
	"github.com/plansync/backend/internal/entities"
	"github.com/plansync/backend/internal/findings"
	"github.com/plansync/backend/internal/graph/neo4j"
	"github.com/plansync/backend/internal/ingestion"
	"github.com/plansync/backend/internal/llm"
	"github.com/plansync/backend/internal/metrics"
	"github.com/plansync/backend/internal/proposals"
	"github.com/plansync/backend/internal/scoring"
	"github.com/plansync/backend/internal/simulation"
	"github.com/plansync/backend/internal/storage/sqlite"
	"github.com/plansync/backend/internal/vector/milvus"
	"github.com/plansync/backend/pkg/config"
	appLogger "github.com/plansync/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting PlanSync API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	err = milvusClient.CreateCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without embedding cache", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	var graphClient *neo4j.Client
	if cfg.Neo4j.Enabled {
		graphClient, err = neo4j.NewClient(
			cfg.Neo4j.URI,
			cfg.Neo4j.Username,
			cfg.Neo4j.Password,
			cfg.Neo4j.Database,
		)
		if err != nil {
			appLogger.Warn("Neo4j unavailable, running without graph export", zap.Error(err))
			graphClient = nil
		} else {
			defer graphClient.Close(context.Background())
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.MaxEmbedChars,
	)

	engine, err := scoring.NewEngine(cfg.Scoring, scoring.NewLLMInsights(llmClient))
	if err != nil {
		appLogger.Fatal("Invalid scoring configuration", zap.Error(err))
	}

	var embeddingCache ingestion.EmbeddingCache
	if cacheClient != nil {
		embeddingCache = cacheClient
	}
	processor := ingestion.NewProcessor(
		sqliteClient,
		llmClient,
		milvusClient,
		embeddingCache,
		time.Duration(cfg.Redis.EmbeddingTTL)*time.Second,
	)

	matcher := entities.NewMatcher(cfg.Scoring.FuzzyThreshold)
	aggregator := alignment.NewAggregator(cfg.Scoring.SimilarityThreshold)
	detector := findings.NewDetector()
	generator := proposals.NewGenerator(llmClient)
	simulator := simulation.NewSimulator(cfg.Simulation, engine.EntityWeight())
	manager := proposals.NewManager(sqliteClient)

	var graphExporter analysis.GraphExporter
	if graphClient != nil {
		graphExporter = graphClient
	}

	pipeline := analysis.NewPipeline(
		sqliteClient,
		processor,
		milvusClient,
		matcher,
		aggregator,
		engine,
		detector,
		generator,
		simulator,
		manager,
		graphExporter,
		cfg.Milvus.TopK,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	documentHandler := handlers.NewDocumentHandler(processor, sqliteClient)
	analysisHandler := handlers.NewAnalysisHandler(
		pipeline,
		sqliteClient,
		cacheClient,
		time.Duration(cfg.Redis.AnalysisTTL)*time.Second,
	)
	proposalHandler := handlers.NewProposalHandler(manager)
	wsHandler := handlers.NewWebSocketHandler(pipeline)

	api := app.Group("/api/v1")

	api.Post("/documents", documentHandler.HandleIngest)
	api.Get("/documents/:id", documentHandler.HandleGet)

	api.Post("/analysis", analysisHandler.HandleAnalyze)
	api.Get("/analysis/latest", analysisHandler.HandleGetLatest)
	api.Get("/analysis/:id", analysisHandler.HandleGetRun)

	api.Get("/runs/:runId/proposals", proposalHandler.HandleList)
	if graphClient != nil {
		graphHandler := handlers.NewGraphHandler(graphClient)
		api.Get("/runs/:runId/gaps", graphHandler.HandleUnsupported)
	}
	api.Get("/proposals/:id", proposalHandler.HandleGet)
	api.Post("/proposals/:id/accept", proposalHandler.HandleAccept)
	api.Post("/proposals/:id/reject", proposalHandler.HandleReject)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analysis", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.Handler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
