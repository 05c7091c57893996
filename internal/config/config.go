// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充。
var Conf Config

// Config 与 configs/config.yaml 的结构一一对应。
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Generator    GeneratorConfig    `mapstructure:"generator"`
	Vector       VectorConfig       `mapstructure:"vector"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	MinIO        MinIOConfig        `mapstructure:"minio"`
	RAG          RAGConfig          `mapstructure:"rag"`
	Metadata     MetadataConfig     `mapstructure:"metadata"`
}

// ServerConfig 存储 HTTP 服务相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
// Provider 为 "mock" 时不访问任何外部服务。
type EmbeddingConfig struct {
	Provider          string  `mapstructure:"provider"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	Dimensions        int     `mapstructure:"dimensions"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey            string              `mapstructure:"api_key"`
	BaseURL           string              `mapstructure:"base_url"`
	Model             string              `mapstructure:"model"`
	RequestsPerSecond float64             `mapstructure:"requests_per_second"`
	TimeoutSeconds    int                 `mapstructure:"timeout_seconds"`
	Generation        LLMGenerationConfig `mapstructure:"generation"`
	Prompt            LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示与上下文包裹格式（可选）。
type LLMPromptConfig struct {
	Rules    string `mapstructure:"rules"`
	RefStart string `mapstructure:"ref_start"`
	RefEnd   string `mapstructure:"ref_end"`
}

// GeneratorConfig 选择回答生成策略: "rule" 或 "llm"。
type GeneratorConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// VectorConfig 选择向量索引后端: "memory"、"elasticsearch" 或 "qdrant"。
type VectorConfig struct {
	Backend       string              `mapstructure:"backend"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// QdrantConfig 存储 Qdrant gRPC 连接配置。
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

// ConversationConfig 选择会话存储后端: "memory" 或 "redis"。
type ConversationConfig struct {
	Backend  string `mapstructure:"backend"`
	MaxTurns int    `mapstructure:"max_turns"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。开启后分块记录会落库。
type MySQLConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储异步导入任务使用的 Kafka 配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// RAGConfig 控制检索增强流程本身的参数。
type RAGConfig struct {
	TopK              int    `mapstructure:"top_k"`
	ChunkSize         int    `mapstructure:"chunk_size"`
	IngestConcurrency int    `mapstructure:"ingest_concurrency"`
	PreviewLength     int    `mapstructure:"preview_length"`
	NoContextText     string `mapstructure:"no_context_text"`
	HistoryTurns      int    `mapstructure:"history_turns"`
	CorpusPath        string `mapstructure:"corpus_path"`
	AutoIngest        bool   `mapstructure:"auto_ingest"`
}

// MetadataConfig 决定导入摘要写到哪里: "file"、"minio" 或 "none"。
type MetadataConfig struct {
	Sink       string `mapstructure:"sink"`
	Path       string `mapstructure:"path"`
	ObjectName string `mapstructure:"object_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "")

	v.SetDefault("embedding.provider", "mock")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.requests_per_second", 10.0)
	v.SetDefault("embedding.timeout_seconds", 15)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("llm.generation.temperature", 0.3)
	v.SetDefault("llm.generation.top_p", 0.0)
	v.SetDefault("llm.generation.max_tokens", 512)
	v.SetDefault("llm.prompt.rules", "You are a Formula 1 assistant. Answer only from the reference material. If the material does not cover the question, say so.")
	v.SetDefault("llm.prompt.ref_start", "<<REF>>")
	v.SetDefault("llm.prompt.ref_end", "<<END>>")

	v.SetDefault("generator.strategy", "rule")

	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.elasticsearch.addresses", "http://localhost:9200")
	v.SetDefault("vector.elasticsearch.username", "")
	v.SetDefault("vector.elasticsearch.password", "")
	v.SetDefault("vector.elasticsearch.index_name", "f1_knowledge")
	v.SetDefault("vector.qdrant.host", "localhost")
	v.SetDefault("vector.qdrant.port", 6334)
	v.SetDefault("vector.qdrant.collection", "f1_knowledge")

	v.SetDefault("conversation.backend", "memory")
	v.SetDefault("conversation.max_turns", 20)
	v.SetDefault("conversation.ttl_hours", 168)

	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "f1-ingestion")
	v.SetDefault("kafka.group_id", "f1-rag-ingestor")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "f1-rag")

	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.chunk_size", 500)
	v.SetDefault("rag.ingest_concurrency", 4)
	v.SetDefault("rag.preview_length", 200)
	v.SetDefault("rag.no_context_text", "No relevant F1 information found.")
	v.SetDefault("rag.history_turns", 5)
	v.SetDefault("rag.corpus_path", "configs/corpus.yaml")
	v.SetDefault("rag.auto_ingest", false)

	v.SetDefault("metadata.sink", "file")
	v.SetDefault("metadata.path", "data/metadata.json")
	v.SetDefault("metadata.object_name", "metadata/summary.json")
}

// Load 读取 YAML 配置文件并叠加 RAG_ 前缀的环境变量。
// 配置文件不存在时只使用默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("检查配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 加载配置到全局变量 Conf，失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
