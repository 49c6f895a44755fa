package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Milvus     MilvusConfig
	Redis      RedisConfig
	Neo4j      Neo4jConfig
	LLM        LLMConfig
	Scoring    ScoringConfig
	Simulation SimulationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
	TopK           int
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	EmbeddingTTL int
	AnalysisTTL  int
	Enabled      bool
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Enabled  bool
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	MaxEmbedChars  int
}

// ScoringConfig carries every fusion and matching policy constant. The
// document-wide entity weights and the per-objective points-per-match model
// are distinct on purpose; see internal/scoring.
type ScoringConfig struct {
	EmbeddingWeight        float64
	EntityWeight           float64
	StrongSupportThreshold float64
	SimilarityThreshold    float64
	FuzzyThreshold         int
	PointsPerMatch         float64
}

type SimulationConfig struct {
	BaseImprovement           float64
	DiminishingFactor         float64
	EntityTrackingImprovement float64
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/plansync")

	viper.SetEnvPrefix("PLANSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/plansync.db")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "plan_sections")
	viper.SetDefault("milvus.vectorDim", 1536)
	viper.SetDefault("milvus.topK", 5)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.embeddingTTL", 86400)
	viper.SetDefault("redis.analysisTTL", 3600)
	viper.SetDefault("redis.enabled", true)

	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.enabled", false)

	viper.SetDefault("llm.model", "gpt-4-turbo-preview")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-large")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.maxEmbedChars", 8000)

	viper.SetDefault("scoring.embeddingWeight", 0.60)
	viper.SetDefault("scoring.entityWeight", 0.40)
	viper.SetDefault("scoring.strongSupportThreshold", 75.0)
	viper.SetDefault("scoring.similarityThreshold", 0.70)
	viper.SetDefault("scoring.fuzzyThreshold", 85)
	viper.SetDefault("scoring.pointsPerMatch", 20.0)

	viper.SetDefault("simulation.baseImprovement", 12.0)
	viper.SetDefault("simulation.diminishingFactor", 0.7)
	viper.SetDefault("simulation.entityTrackingImprovement", 8.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
