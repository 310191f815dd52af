package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/trendora/assistant/pkg/logger"
)

// ChainConfig tunes the retry and caching behavior of the chain.
type ChainConfig struct {
	Attempts        int
	Backoff         time.Duration
	Timeout         time.Duration
	AvailabilityTTL time.Duration
}

func (c ChainConfig) withDefaults() ChainConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.AvailabilityTTL <= 0 {
		c.AvailabilityTTL = time.Minute
	}
	return c
}

// Chain routes a request through the AI backends and guarantees an
// answer: quick-reply table first, then the response cache, then the
// backends ordered by message complexity with retries, and finally the
// terminal rule responder, which cannot fail.
type Chain struct {
	rich     []Responder
	terminal Responder
	cache    ResponseCache
	avail    *expirable.LRU[string, bool]
	cfg      ChainConfig
}

// NewChain builds a chain. terminal must never return an error or an
// empty reply; rich backends are tried in the given order unless the
// routing heuristic reorders them.
func NewChain(cfg ChainConfig, cache ResponseCache, terminal Responder, rich ...Responder) *Chain {
	cfg = cfg.withDefaults()
	return &Chain{
		rich:     rich,
		terminal: terminal,
		cache:    cache,
		avail:    expirable.NewLRU[string, bool](16, nil, cfg.AvailabilityTTL),
		cfg:      cfg,
	}
}

var errEmptyReply = errors.New("backend returned an empty reply")

var quickReplies = map[string]string{
	"hi":        "Hi! What can I find for you today?",
	"hello":     "Hello! Looking for anything in particular?",
	"hey":       "Hey! How can I help?",
	"thanks":    "You're welcome!",
	"thank you": "You're welcome!",
	"ok":        "Great! Let me know if you need anything else.",
	"bye":       "See you! Happy shopping.",
	"goodbye":   "Goodbye! Come back any time.",
}

// complexMarkers push a message to the hosted model; the local model
// handles small talk and short factual asks.
var complexMarkers = []string{
	"compare", "difference", "recommend", "suggest", "why", "explain",
	"best", "policy", "warranty", "return", "which one", "help me choose",
}

// Respond never returns nil: some backend always answers.
func (c *Chain) Respond(ctx context.Context, req *Request) *Reply {
	normalized := strings.ToLower(strings.TrimSpace(req.Message))

	if text, ok := quickReplies[normalized]; ok {
		return &Reply{Content: text, Provider: "quick_reply"}
	}

	key := CacheKey(req.Message)
	if c.cache != nil {
		if text, ok := c.cache.Get(ctx, key); ok {
			logger.DebugCF("providers", "cache hit", map[string]interface{}{"key": key})
			return &Reply{Content: text, Provider: "cache", Cached: true}
		}
	}

	for _, responder := range c.route(normalized) {
		if !c.available(ctx, responder) {
			logger.DebugCF("providers", "backend unavailable, skipping",
				map[string]interface{}{"provider": responder.Name()})
			continue
		}

		reply, err := c.tryResponder(ctx, responder, req)
		if err != nil {
			logger.WarnCF("providers", "backend failed after retries",
				map[string]interface{}{"provider": responder.Name(), "error": err.Error()})
			continue
		}

		if c.cache != nil {
			c.cache.Set(ctx, key, reply.Content)
		}
		return reply
	}

	reply, err := c.terminal.Generate(ctx, req)
	if err != nil || reply == nil || reply.Content == "" {
		return &Reply{
			Content:  "Sorry, something went wrong on my side. Could you try that again?",
			Provider: "rules",
		}
	}
	return reply
}

// route orders the rich backends for this message: complex questions go
// to the hosted model first, everything else to the local model first.
func (c *Chain) route(normalized string) []Responder {
	preferred := "ollama"
	for _, marker := range complexMarkers {
		if strings.Contains(normalized, marker) {
			preferred = "gemini"
			break
		}
	}
	if len(strings.Fields(normalized)) > 12 {
		preferred = "gemini"
	}

	ordered := make([]Responder, 0, len(c.rich))
	var rest []Responder
	for _, r := range c.rich {
		if r.Name() == preferred {
			ordered = append(ordered, r)
		} else {
			rest = append(rest, r)
		}
	}
	return append(ordered, rest...)
}

func (c *Chain) tryResponder(ctx context.Context, r Responder, req *Request) (*Reply, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.Backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		reply, err := r.Generate(attemptCtx, req)
		cancel()
		if err == nil && reply != nil && reply.Content != "" {
			return reply, nil
		}
		if err == nil {
			err = errEmptyReply
		}
		lastErr = err
	}
	return nil, lastErr
}

// available caches the probe result so every message does not re-ping a
// downed backend.
func (c *Chain) available(ctx context.Context, r Responder) bool {
	if ok, cached := c.avail.Get(r.Name()); cached {
		return ok
	}
	ok := r.Available(ctx)
	c.avail.Add(r.Name(), ok)
	return ok
}
