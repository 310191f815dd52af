package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendora/assistant/pkg/catalog"
	"github.com/trendora/assistant/pkg/fallback"
	"github.com/trendora/assistant/pkg/intent"
	"github.com/trendora/assistant/pkg/providers"
	"github.com/trendora/assistant/pkg/session"
	"github.com/trendora/assistant/pkg/sizing"
)

type staticResponder struct {
	content string
	calls   int
}

func (s *staticResponder) Name() string                     { return "ollama" }
func (s *staticResponder) Available(_ context.Context) bool { return true }
func (s *staticResponder) Generate(_ context.Context, _ *providers.Request) (*providers.Reply, error) {
	s.calls++
	return &providers.Reply{Content: s.content, Provider: s.Name()}, nil
}

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "p1", Name: "Basic Cotton T-Shirt", Category: "t-shirt", Sizes: []string{"S", "M", "L"}, Price: 250000, Stock: 12, Sold: 140},
		{ID: "p2", Name: "Slim Fit Jeans", Category: "jeans", Sizes: []string{"29", "30", "31"}, Price: 450000, Stock: 8, Sold: 90},
		{ID: "p3", Name: "Oversized Hoodie", Category: "hoodie", Sizes: []string{"M", "L", "XL"}, Price: 390000, Stock: 5, Sold: 200},
	}
}

func newTestEngine(t *testing.T) (*Engine, *staticResponder) {
	t.Helper()

	store := session.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	backend := &staticResponder{content: "happy to help"}
	chain := providers.NewChain(
		providers.ChainConfig{Attempts: 1, Backoff: time.Millisecond, Timeout: time.Second},
		nil, providers.NewRuleResponder(), backend)

	eng := New(Options{
		Classifier:      intent.NewClassifier(),
		Consultant:      sizing.NewConsultant(sizing.DefaultThresholds()),
		Sessions:        session.NewManager(store, time.Hour, 20),
		Policy:          fallback.NewPolicy(rand.New(rand.NewSource(7))),
		Chain:           chain,
		Catalog:         catalog.NewMemoryCatalog(testProducts()),
		ContextWindow:   5,
		MaxQuickReplies: 4,
	})
	return eng, backend
}

func TestSendProductSearch(t *testing.T) {
	eng, _ := newTestEngine(t)

	reply := eng.Send(context.Background(), "", "user-1", "find men's t-shirt size L under 500k")
	require.NotNil(t, reply)
	assert.Equal(t, "product_search", reply.Intent)
	assert.GreaterOrEqual(t, reply.Confidence, 0.7)
	assert.NotEmpty(t, reply.SessionID)
	require.Len(t, reply.Products, 1)
	assert.Equal(t, "p1", reply.Products[0].ID)
	assert.Contains(t, reply.Message, "Basic Cotton T-Shirt")
	assert.Contains(t, reply.Message, "250,000")
}

func TestSendPersistsTurnAndPreferences(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	first := eng.Send(ctx, "", "user-2", "find men's t-shirt size L under 500k")
	sess := eng.sessions.Touch(ctx, first.SessionID, "user-2")
	require.Len(t, sess.History, 1)
	assert.Equal(t, "product_search", sess.History[0].Intent)
	assert.Equal(t, "t-shirt", sess.CurrentTopic)

	prefs := eng.sessions.Preferences(ctx, "user-2")
	assert.Contains(t, prefs.Categories, "t-shirt")
	assert.Contains(t, prefs.Sizes, "l")
	assert.Equal(t, 500000, prefs.PriceRange.Max)
}

func TestSendLowConfidenceSkipsPersistence(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	reply := eng.Send(ctx, "", "user-3", "zzz qqq flrb nope maybe")
	assert.Equal(t, "unknown", reply.Intent)
	assert.NotEmpty(t, reply.Message)
	assert.NotEmpty(t, reply.QuickReplies)

	sess := eng.sessions.Touch(ctx, reply.SessionID, "user-3")
	assert.Empty(t, sess.History)
}

func TestSendEscalationPreemptsRouting(t *testing.T) {
	eng, _ := newTestEngine(t)

	// Trigger phrase wins even though the rest classifies confidently.
	reply := eng.Send(context.Background(), "", "user-4",
		"find men's t-shirt size L under 500k, but honestly this is useless, let me talk to a human")
	assert.True(t, reply.Metadata.Escalated)
	assert.Equal(t, "high", reply.Metadata.Priority)
	assert.Empty(t, reply.Products)
}

func TestSendSizeInquiry(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	reply := eng.Send(ctx, "", "user-5",
		"i am female, my height is 162cm and my weight is 60kg, will it fit, what size should i choose")
	assert.Equal(t, "size_inquiry", reply.Intent)
	assert.Contains(t, reply.Message, "Size M should fit you well")
	assert.False(t, reply.Metadata.Escalated)
}

func TestSendSizeInquiryWithoutMeasurements(t *testing.T) {
	eng, _ := newTestEngine(t)

	reply := eng.Send(context.Background(), "", "user-6",
		"what size, which sizes do you have, will it fit or be tight, is the fitting loose")
	assert.Equal(t, "size_inquiry", reply.Intent)
	assert.Contains(t, reply.Message, "height and weight")
}

func TestSendSizeInquirySpecialCase(t *testing.T) {
	eng, _ := newTestEngine(t)

	reply := eng.Send(context.Background(), "", "user-7",
		"my height is 150cm and my weight is 100kg, will it fit, what size should i choose")
	assert.Equal(t, "size_inquiry", reply.Intent)
	assert.True(t, reply.Metadata.Escalated)
	assert.Contains(t, reply.Message, "outside our standard charts")
}

func TestSendRecommendation(t *testing.T) {
	eng, backend := newTestEngine(t)

	reply := eng.Send(context.Background(), "", "user-8",
		"can you suggest or recommend something popular and trending, any style advice, what do you think")
	assert.Equal(t, "recommendation", reply.Intent)
	assert.Contains(t, reply.Message, "Oversized Hoodie")
	assert.Zero(t, backend.calls)
}

func TestSendPolicyQuestionIsDeterministic(t *testing.T) {
	eng, backend := newTestEngine(t)
	ctx := context.Background()
	message := "what is your return and refund policy, do you offer exchange or warranty, and is shipping free, can i pay with cod"

	reply := eng.Send(ctx, "", "user-9", message)
	assert.Equal(t, "policy_question", reply.Intent)
	assert.Contains(t, reply.Message, "within 7 days")
	assert.Empty(t, reply.Metadata.Provider)
	assert.Zero(t, backend.calls)

	// Policy text is canned; the same question always gets the same words.
	again := eng.Send(ctx, "", "user-9", message)
	assert.Equal(t, reply.Message, again.Message)
}

func TestHandlePolicyQuestionBranches(t *testing.T) {
	eng, _ := newTestEngine(t)

	cases := []struct {
		text string
		want string
	}{
		{"how long does delivery take", "Nationwide delivery"},
		{"can i pay with cod", "Cash on delivery"},
		{"is there a warranty on defects", "30-day warranty"},
		{"tell me about your policies", "Which one"},
	}
	for _, c := range cases {
		reply := eng.handlePolicyQuestion(c.text)
		assert.Contains(t, reply.Message, c.want, c.text)
	}
}

func TestSendPendingQuestionLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	vague := eng.Send(ctx, "", "user-11", "zzz qqq flrb nope maybe")
	sess := eng.sessions.Touch(ctx, vague.SessionID, "user-11")
	assert.Equal(t, []string{"zzz qqq flrb nope maybe"}, sess.PendingQuestions)

	confident := eng.Send(ctx, vague.SessionID, "user-11", "find men's t-shirt size L under 500k")
	sess = eng.sessions.Touch(ctx, confident.SessionID, "user-11")
	assert.Empty(t, sess.PendingQuestions)
}

func TestSendRecoversFromPanic(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.consultant = nil

	reply := eng.Send(context.Background(), "", "user-10",
		"i am female, my height is 162cm and my weight is 60kg, will it fit, what size should i choose")
	require.NotNil(t, reply)
	assert.Equal(t, recoveredReply, reply.Message)
}

func TestParsePriceBounds(t *testing.T) {
	cases := []struct {
		in       string
		min, max int
	}{
		{"under 500000", 0, 500000},
		{"over 200000", 200000, 0},
		{"from 100000 to 300000", 100000, 300000},
		{"400000 - 200000", 200000, 400000},
		{"300000", 0, 300000},
		{"cheap", 0, 0},
	}
	for _, c := range cases {
		min, max := parsePriceBounds(c.in)
		assert.Equal(t, c.min, min, c.in)
		assert.Equal(t, c.max, max, c.in)
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "250,000", formatPrice(250000))
	assert.Equal(t, "1,250,000", formatPrice(1250000))
	assert.Equal(t, "999", formatPrice(999))
}
