package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trendora/assistant/pkg/catalog"
	"github.com/trendora/assistant/pkg/config"
	"github.com/trendora/assistant/pkg/engine"
	"github.com/trendora/assistant/pkg/fallback"
	"github.com/trendora/assistant/pkg/intent"
	"github.com/trendora/assistant/pkg/logger"
	"github.com/trendora/assistant/pkg/providers"
	"github.com/trendora/assistant/pkg/session"
	"github.com/trendora/assistant/pkg/sizing"
)

// app owns the wired conversation engine and everything that needs
// closing when the process exits.
type app struct {
	cfg    *config.Config
	engine *engine.Engine
	store  session.Store
	cat    catalog.Catalog
	gemini *providers.GeminiResponder
	cancel context.CancelFunc
}

// buildApp constructs the full engine from configuration. Redis backs
// sessions and the response cache when an address is configured;
// otherwise everything runs in-process.
func buildApp(cfg *config.Config) (*app, error) {
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())

	sessionTTL := time.Duration(cfg.Session.TTLSeconds) * time.Second
	prefTTL := time.Duration(cfg.Session.PreferenceTTLSeconds) * time.Second
	responseTTL := time.Duration(cfg.Cache.ResponseTTLSeconds) * time.Second

	var store session.Store
	var cache providers.ResponseCache
	if cfg.Session.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		store = session.NewRedisStore(client, sessionTTL, prefTTL)
		cache = providers.NewRedisCache(client, responseTTL)
		logger.InfoCF("app", "using redis session store",
			map[string]interface{}{"addr": cfg.Session.RedisAddr})
	} else {
		mem := session.NewMemoryStore(sessionTTL, prefTTL)
		if err := mem.StartSweeper(ctx, cfg.Session.SweepSchedule); err != nil {
			cancel()
			return nil, fmt.Errorf("start session sweeper: %w", err)
		}
		store = mem
		cache = providers.NewLRUCache(cfg.Cache.MaxEntries, responseTTL)
	}

	cat, err := catalog.NewSQLiteCatalog(cfg.CatalogPath(), cfg.Catalog.SearchLimit)
	if err != nil {
		cancel()
		_ = store.Close()
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	var rich []providers.Responder
	var gemini *providers.GeminiResponder
	if cfg.Providers.Gemini.APIKey != "" {
		gemini, err = providers.NewGeminiResponder(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model, cat)
		if err != nil {
			logger.WarnCF("app", "gemini unavailable, continuing without it",
				map[string]interface{}{"error": err.Error()})
			gemini = nil
		} else {
			rich = append(rich, gemini)
		}
	}
	rich = append(rich, providers.NewOllamaResponder(
		cfg.Providers.Ollama.BaseURL, cfg.Providers.Ollama.Model, cfg.Providers.Ollama.MaxTokens))

	chain := providers.NewChain(providers.ChainConfig{
		Attempts:        cfg.Providers.Attempts,
		Backoff:         time.Duration(cfg.Providers.BackoffMS) * time.Millisecond,
		Timeout:         time.Duration(cfg.Providers.TimeoutSeconds) * time.Second,
		AvailabilityTTL: time.Duration(cfg.Providers.AvailabilityTTLSeconds) * time.Second,
	}, cache, providers.NewRuleResponder(), rich...)

	var rng *rand.Rand
	if cfg.Fallback.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Fallback.Seed))
	}

	eng := engine.New(engine.Options{
		Classifier:      intent.NewClassifier(),
		Consultant:      sizing.NewConsultant(thresholdsFromConfig(cfg.Sizing)),
		Sessions:        session.NewManager(store, sessionTTL, cfg.Session.HistoryLimit),
		Policy:          fallback.NewPolicy(rng),
		Chain:           chain,
		Catalog:         cat,
		ContextWindow:   cfg.Chat.ContextWindow,
		MaxQuickReplies: cfg.Chat.MaxQuickReplies,
	})

	return &app{cfg: cfg, engine: eng, store: store, cat: cat, gemini: gemini, cancel: cancel}, nil
}

func (a *app) Close() {
	a.cancel()
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			logger.WarnCF("app", "gemini close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := a.cat.Close(); err != nil {
		logger.WarnCF("app", "catalog close failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.store.Close(); err != nil {
		logger.WarnCF("app", "session store close failed", map[string]interface{}{"error": err.Error()})
	}
}

func thresholdsFromConfig(c config.SizingConfig) sizing.Thresholds {
	t := sizing.DefaultThresholds()
	if c.HeightWeight > 0 {
		t.HeightWeight = c.HeightWeight
	}
	if c.WeightWeight > 0 {
		t.WeightWeight = c.WeightWeight
	}
	if c.OverweightMarginKG > 0 {
		t.OverweightMarginKG = int(c.OverweightMarginKG)
	}
	if c.ShortHeavyHeightCM > 0 {
		t.ShortHeavyHeightCM = int(c.ShortHeavyHeightCM)
	}
	if c.ShortHeavyWeightKG > 0 {
		t.ShortHeavyWeightKG = int(c.ShortHeavyWeightKG)
	}
	if c.LowHeavyHeightCM > 0 {
		t.LowHeavyHeightCM = int(c.LowHeavyHeightCM)
	}
	if c.LowHeavyWeightKG > 0 {
		t.LowHeavyWeightKG = int(c.LowHeavyWeightKG)
	}
	if c.HeightMarginCM > 0 {
		t.HeightMarginCM = int(c.HeightMarginCM)
	}
	if c.UnderweightMarginKG > 0 {
		t.UnderweightMarginKG = int(c.UnderweightMarginKG)
	}
	if c.WeightOnlyMarginKG > 0 {
		t.WeightOnlyMarginKG = int(c.WeightOnlyMarginKG)
	}
	if c.ToleranceCM > 0 {
		t.ToleranceCM = int(c.ToleranceCM)
	}
	if c.ToleranceKG > 0 {
		t.ToleranceKG = int(c.ToleranceKG)
	}
	if c.FootLengthHeightRatio > 0 {
		t.FootLengthHeightRatio = c.FootLengthHeightRatio
	}
	return t
}
