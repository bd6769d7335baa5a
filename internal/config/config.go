package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Catalog   CatalogConfig   `json:"catalog"`
	Matching  MatchingConfig  `json:"matching"`
	Gateway   GatewayConfig   `json:"gateway"`
	Database  DatabaseConfig  `json:"database"`
	Translate TranslateConfig `json:"translate"`
	Embedding EmbeddingConfig `json:"embedding"`
	Analytics AnalyticsConfig `json:"analytics"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// CatalogConfig selects where clause records are loaded from.
// Source is "files" (default) or "postgres".
type CatalogConfig struct {
	Source       string `json:"source"`
	DataDir      string `json:"data_dir"`
	ConceptsPath string `json:"concepts_path"`
}

// MatchingConfig is the scoring/ranking configuration surface.
// All values are validated at startup; an invalid value is fatal.
// Pointer fields distinguish an omitted knob (defaulted) from an
// explicit zero (validated as supplied, never replaced).
type MatchingConfig struct {
	LexicalWeight   *float64           `json:"lexical_weight"`
	SemanticWeight  *float64           `json:"semantic_weight"`
	FrameworkBoosts map[string]float64 `json:"framework_boosts,omitempty"`
	DedupThreshold  *float64           `json:"dedup_threshold"`
	MaxResults      *int               `json:"max_results"`
	FuzzyThreshold  *float64           `json:"fuzzy_threshold"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL        string `json:"url"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// TranslateConfig points at a LibreTranslate-compatible endpoint.
// Empty endpoint disables translation; queries pass through unchanged.
type TranslateConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	Target   string `json:"target"`
}

type EmbeddingConfig struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

type AnalyticsConfig struct {
	Enabled            bool   `json:"enabled"`
	CSVPath            string `json:"csv_path"`
	TrackerEndpoint    string `json:"tracker_endpoint"`
	TrackerMeasurement string `json:"tracker_measurement"`
	TrackerSecret      string `json:"tracker_secret"`
}

// ConfigurationError reports an invalid caller-supplied configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable
// references, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills values the config file omitted entirely.
// Explicitly supplied invalid values are never corrected here; they fail
// validation instead.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = "files"
	}
	if c.Catalog.DataDir == "" {
		c.Catalog.DataDir = "data/sample"
	}
	if c.Matching.LexicalWeight == nil && c.Matching.SemanticWeight == nil {
		c.Matching.LexicalWeight = floatPtr(0.7)
		c.Matching.SemanticWeight = floatPtr(0.3)
	}
	if c.Matching.LexicalWeight == nil {
		c.Matching.LexicalWeight = floatPtr(0)
	}
	if c.Matching.SemanticWeight == nil {
		c.Matching.SemanticWeight = floatPtr(0)
	}
	if c.Matching.DedupThreshold == nil {
		c.Matching.DedupThreshold = floatPtr(0.85)
	}
	if c.Matching.MaxResults == nil {
		c.Matching.MaxResults = intPtr(5)
	}
	if c.Matching.FuzzyThreshold == nil {
		c.Matching.FuzzyThreshold = floatPtr(0.88)
	}
	if c.Database.Redis.TTLSeconds == 0 {
		c.Database.Redis.TTLSeconds = 600
	}
	if c.Translate.Target == "" {
		c.Translate.Target = "en"
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// Validate enforces the configuration contract. Out-of-range values are
// rejected outright rather than clamped. Runs after applyDefaults, so
// every matching pointer is non-nil here.
func (c *Config) Validate() error {
	m := c.Matching
	if *m.LexicalWeight < 0 {
		return &ConfigurationError{Field: "matching.lexical_weight", Reason: "must be non-negative"}
	}
	if *m.SemanticWeight < 0 {
		return &ConfigurationError{Field: "matching.semantic_weight", Reason: "must be non-negative"}
	}
	if *m.LexicalWeight+*m.SemanticWeight == 0 {
		return &ConfigurationError{Field: "matching weights", Reason: "must not both be zero"}
	}
	if *m.DedupThreshold < 0 || *m.DedupThreshold > 1 {
		return &ConfigurationError{Field: "matching.dedup_threshold", Reason: "must be in [0,1]"}
	}
	if *m.FuzzyThreshold < 0 || *m.FuzzyThreshold > 1 {
		return &ConfigurationError{Field: "matching.fuzzy_threshold", Reason: "must be in [0,1]"}
	}
	if *m.MaxResults <= 0 {
		return &ConfigurationError{Field: "matching.max_results", Reason: "must be > 0"}
	}
	for fw, boost := range m.FrameworkBoosts {
		if boost < 0 {
			return &ConfigurationError{Field: "matching.framework_boosts." + fw, Reason: "must be non-negative"}
		}
	}
	switch c.Catalog.Source {
	case "files", "postgres":
	default:
		return &ConfigurationError{Field: "catalog.source", Reason: `must be "files" or "postgres"`}
	}
	return nil
}
