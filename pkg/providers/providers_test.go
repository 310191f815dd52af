package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	key := CacheKey("  Hello THERE ")
	assert.Equal(t, key, CacheKey("hello there"))
	assert.NotEqual(t, key, CacheKey("hello here"))
	assert.Contains(t, key, "resp:")
	assert.Len(t, key, len("resp:")+64)
}

func TestLRUCacheExpires(t *testing.T) {
	cache := NewLRUCache(8, 50*time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "k", "v")
	got, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestOllamaResponder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/generate":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"response":"<think>reasoning</think> We have hoodies in stock."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	o := NewOllamaResponder(server.URL, "test-model", 32)
	ctx := context.Background()

	assert.True(t, o.Available(ctx))

	reply, err := o.Generate(ctx, &Request{Message: "do you have hoodies"})
	require.NoError(t, err)
	assert.Equal(t, "We have hoodies in stock.", reply.Content)
	assert.Equal(t, "ollama", reply.Provider)
	assert.Equal(t, "test-model", reply.Model)
}

func TestOllamaResponderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	o := NewOllamaResponder(server.URL, "", 0)
	_, err := o.Generate(context.Background(), &Request{Message: "hello"})
	assert.Error(t, err)
}

func TestRuleResponderAlwaysAnswers(t *testing.T) {
	r := NewRuleResponder()
	ctx := context.Background()

	for _, msg := range []string{
		"how much does this cost",
		"what size should I get",
		"when will my order ship",
		"asdf qwerty zxcv",
		"",
	} {
		reply, err := r.Generate(ctx, &Request{Message: msg})
		require.NoError(t, err, msg)
		assert.NotEmpty(t, reply.Content, msg)
		assert.Equal(t, "rules", reply.Provider)
	}

	reply, err := r.Generate(ctx, &Request{Message: "thank you so much"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "welcome")
}

type fakeResponder struct {
	name      string
	reachable bool
	reply     *Reply
	err       error
	calls     int
}

func (f *fakeResponder) Name() string                     { return f.name }
func (f *fakeResponder) Available(_ context.Context) bool { return f.reachable }
func (f *fakeResponder) Generate(_ context.Context, _ *Request) (*Reply, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func fastChainConfig() ChainConfig {
	return ChainConfig{Attempts: 2, Backoff: time.Millisecond, Timeout: time.Second}
}

func TestChainQuickReply(t *testing.T) {
	backend := &fakeResponder{name: "gemini", reachable: true}
	chain := NewChain(fastChainConfig(), nil, NewRuleResponder(), backend)

	reply := chain.Respond(context.Background(), &Request{Message: "  Hi "})
	assert.Equal(t, "quick_reply", reply.Provider)
	assert.NotEmpty(t, reply.Content)
	assert.Zero(t, backend.calls)
}

func TestChainFallsThroughToRules(t *testing.T) {
	gemini := &fakeResponder{name: "gemini", reachable: true, err: errors.New("quota exceeded")}
	ollama := &fakeResponder{name: "ollama", reachable: true, err: errors.New("connection refused")}
	chain := NewChain(fastChainConfig(), nil, NewRuleResponder(), gemini, ollama)

	reply := chain.Respond(context.Background(), &Request{Message: "what color hoodies do you carry"})
	assert.Equal(t, "rules", reply.Provider)
	assert.NotEmpty(t, reply.Content)
	assert.Equal(t, 2, gemini.calls)
	assert.Equal(t, 2, ollama.calls)
}

func TestChainSkipsUnavailableBackend(t *testing.T) {
	down := &fakeResponder{name: "gemini", reachable: false}
	up := &fakeResponder{
		name: "ollama", reachable: true,
		reply: &Reply{Content: "we carry black and navy", Provider: "ollama"},
	}
	chain := NewChain(fastChainConfig(), nil, NewRuleResponder(), down, up)

	reply := chain.Respond(context.Background(), &Request{Message: "explain the difference between these two"})
	assert.Equal(t, "ollama", reply.Provider)
	assert.Zero(t, down.calls)
	assert.Equal(t, 1, up.calls)
}

func TestChainCachesSuccesses(t *testing.T) {
	backend := &fakeResponder{
		name: "ollama", reachable: true,
		reply: &Reply{Content: "orders arrive in two to four days", Provider: "ollama"},
	}
	chain := NewChain(fastChainConfig(), NewLRUCache(8, time.Minute), NewRuleResponder(), backend)
	req := &Request{Message: "how long does delivery take"}

	first := chain.Respond(context.Background(), req)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, backend.calls)

	second := chain.Respond(context.Background(), req)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, backend.calls)
}

func TestChainRoutesByComplexity(t *testing.T) {
	gemini := &fakeResponder{
		name: "gemini", reachable: true,
		reply: &Reply{Content: "detailed comparison", Provider: "gemini"},
	}
	ollama := &fakeResponder{
		name: "ollama", reachable: true,
		reply: &Reply{Content: "quick answer", Provider: "ollama"},
	}
	chain := NewChain(fastChainConfig(), nil, NewRuleResponder(), ollama, gemini)

	reply := chain.Respond(context.Background(), &Request{Message: "compare the hoodie and the sweater"})
	assert.Equal(t, "gemini", reply.Provider)

	reply = chain.Respond(context.Background(), &Request{Message: "got any hoodies"})
	assert.Equal(t, "ollama", reply.Provider)
}
