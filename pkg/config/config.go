package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Chat      ChatConfig      `json:"chat"`
	Providers ProvidersConfig `json:"providers"`
	Session   SessionConfig   `json:"session"`
	Cache     CacheConfig     `json:"cache"`
	Fallback  FallbackConfig  `json:"fallback"`
	Sizing    SizingConfig    `json:"sizing"`
	Catalog   CatalogConfig   `json:"catalog"`
	LogLevel  string          `json:"log_level" env:"ASSISTANT_LOG_LEVEL"`
}

type ChatConfig struct {
	// ContextWindow is how many recent turns feed provider prompts and
	// fallback suggestion biasing.
	ContextWindow   int `json:"context_window" env:"ASSISTANT_CHAT_CONTEXT_WINDOW"`
	MaxQuickReplies int `json:"max_quick_replies" env:"ASSISTANT_CHAT_MAX_QUICK_REPLIES"`
}

type ProvidersConfig struct {
	Gemini GeminiConfig `json:"gemini"`
	Ollama OllamaConfig `json:"ollama"`

	// Retry policy for generative providers. Hard caps, see the chain.
	Attempts       int `json:"attempts" env:"ASSISTANT_PROVIDERS_ATTEMPTS"`
	BackoffMS      int `json:"backoff_ms" env:"ASSISTANT_PROVIDERS_BACKOFF_MS"`
	TimeoutSeconds int `json:"timeout_seconds" env:"ASSISTANT_PROVIDERS_TIMEOUT_SECONDS"`

	// How long a provider availability probe result is trusted.
	AvailabilityTTLSeconds int `json:"availability_ttl_seconds" env:"ASSISTANT_PROVIDERS_AVAILABILITY_TTL_SECONDS"`
}

type GeminiConfig struct {
	APIKey string `json:"api_key" env:"ASSISTANT_PROVIDERS_GEMINI_API_KEY"`
	Model  string `json:"model" env:"ASSISTANT_PROVIDERS_GEMINI_MODEL"`
}

type OllamaConfig struct {
	BaseURL   string `json:"base_url" env:"ASSISTANT_PROVIDERS_OLLAMA_BASE_URL"`
	Model     string `json:"model" env:"ASSISTANT_PROVIDERS_OLLAMA_MODEL"`
	MaxTokens int    `json:"max_tokens" env:"ASSISTANT_PROVIDERS_OLLAMA_MAX_TOKENS"`
}

type SessionConfig struct {
	TTLSeconds           int    `json:"ttl_seconds" env:"ASSISTANT_SESSION_TTL_SECONDS"`
	PreferenceTTLSeconds int    `json:"preference_ttl_seconds" env:"ASSISTANT_SESSION_PREFERENCE_TTL_SECONDS"`
	HistoryLimit         int    `json:"history_limit" env:"ASSISTANT_SESSION_HISTORY_LIMIT"`
	RedisAddr            string `json:"redis_addr" env:"ASSISTANT_SESSION_REDIS_ADDR"`
	RedisPassword        string `json:"redis_password" env:"ASSISTANT_SESSION_REDIS_PASSWORD"`
	RedisDB              int    `json:"redis_db" env:"ASSISTANT_SESSION_REDIS_DB"`

	// Cron schedule for the in-memory store's expiry sweep. Lazy expiry on
	// read is the contract; the sweep only bounds memory growth.
	SweepSchedule string `json:"sweep_schedule" env:"ASSISTANT_SESSION_SWEEP_SCHEDULE"`
}

type CacheConfig struct {
	ResponseTTLSeconds int `json:"response_ttl_seconds" env:"ASSISTANT_CACHE_RESPONSE_TTL_SECONDS"`
	MaxEntries         int `json:"max_entries" env:"ASSISTANT_CACHE_MAX_ENTRIES"`
}

type FallbackConfig struct {
	// Seed for clarification template selection. Zero means time-seeded;
	// tests pin a fixed seed for deterministic output.
	Seed int64 `json:"seed" env:"ASSISTANT_FALLBACK_SEED"`
}

type SizingConfig struct {
	// Distance weighting for nearest-bucket search on tops. Height mismatch
	// predicts poor drape more strongly than weight, hence the default split.
	HeightWeight float64 `json:"height_weight" env:"ASSISTANT_SIZING_HEIGHT_WEIGHT"`
	WeightWeight float64 `json:"weight_weight" env:"ASSISTANT_SIZING_WEIGHT_WEIGHT"`

	// Outside-normal-range thresholds, kept as the asymmetric values the
	// sizing chart was tuned with.
	OverweightMarginKG    float64 `json:"overweight_margin_kg" env:"ASSISTANT_SIZING_OVERWEIGHT_MARGIN_KG"`
	ShortHeavyHeightCM    float64 `json:"short_heavy_height_cm" env:"ASSISTANT_SIZING_SHORT_HEAVY_HEIGHT_CM"`
	ShortHeavyWeightKG    float64 `json:"short_heavy_weight_kg" env:"ASSISTANT_SIZING_SHORT_HEAVY_WEIGHT_KG"`
	LowHeavyHeightCM      float64 `json:"low_heavy_height_cm" env:"ASSISTANT_SIZING_LOW_HEAVY_HEIGHT_CM"`
	LowHeavyWeightKG      float64 `json:"low_heavy_weight_kg" env:"ASSISTANT_SIZING_LOW_HEAVY_WEIGHT_KG"`
	HeightMarginCM        float64 `json:"height_margin_cm" env:"ASSISTANT_SIZING_HEIGHT_MARGIN_CM"`
	UnderweightMarginKG   float64 `json:"underweight_margin_kg" env:"ASSISTANT_SIZING_UNDERWEIGHT_MARGIN_KG"`
	WeightOnlyMarginKG    float64 `json:"weight_only_margin_kg" env:"ASSISTANT_SIZING_WEIGHT_ONLY_MARGIN_KG"`
	ToleranceCM           float64 `json:"tolerance_cm" env:"ASSISTANT_SIZING_TOLERANCE_CM"`
	ToleranceKG           float64 `json:"tolerance_kg" env:"ASSISTANT_SIZING_TOLERANCE_KG"`
	FootLengthHeightRatio float64 `json:"foot_length_height_ratio" env:"ASSISTANT_SIZING_FOOT_LENGTH_HEIGHT_RATIO"`
}

type CatalogConfig struct {
	DBPath      string `json:"db_path" env:"ASSISTANT_CATALOG_DB_PATH"`
	SearchLimit int    `json:"search_limit" env:"ASSISTANT_CATALOG_SEARCH_LIMIT"`
}

func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			ContextWindow:   5,
			MaxQuickReplies: 4,
		},
		Providers: ProvidersConfig{
			Gemini: GeminiConfig{
				Model: "gemini-1.5-flash",
			},
			Ollama: OllamaConfig{
				BaseURL:   "http://localhost:11434",
				Model:     "llama3.2:1b",
				MaxTokens: 150,
			},
			Attempts:               3,
			BackoffMS:              1000,
			TimeoutSeconds:         30,
			AvailabilityTTLSeconds: 120,
		},
		Session: SessionConfig{
			TTLSeconds:           3600,
			PreferenceTTLSeconds: 86400,
			HistoryLimit:         20,
			SweepSchedule:        "*/10 * * * *",
		},
		Cache: CacheConfig{
			ResponseTTLSeconds: 300,
			MaxEntries:         512,
		},
		Fallback: FallbackConfig{
			Seed: 0,
		},
		Sizing: SizingConfig{
			HeightWeight:          0.6,
			WeightWeight:          0.4,
			OverweightMarginKG:    5,
			ShortHeavyHeightCM:    155,
			ShortHeavyWeightKG:    70,
			LowHeavyHeightCM:      160,
			LowHeavyWeightKG:      75,
			HeightMarginCM:        10,
			UnderweightMarginKG:   8,
			WeightOnlyMarginKG:    10,
			ToleranceCM:           5,
			ToleranceKG:           5,
			FootLengthHeightRatio: 0.15,
		},
		Catalog: CatalogConfig{
			DBPath:      "~/.assistant/catalog.db",
			SearchLimit: 10,
		},
		LogLevel: "info",
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// CatalogPath expands a leading ~ in the configured catalog DB path.
func (c *Config) CatalogPath() string {
	return expandHome(c.Catalog.DBPath)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
