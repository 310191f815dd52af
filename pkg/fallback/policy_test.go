package fallback

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendora/assistant/pkg/intent"
	"github.com/trendora/assistant/pkg/session"
)

func newTestPolicy() *Policy {
	return NewPolicy(rand.New(rand.NewSource(42)))
}

func TestEscalationPreemptsEverything(t *testing.T) {
	p := newTestPolicy()

	// A message that would otherwise get a product clarification still
	// escalates when a trigger phrase is present.
	res := intent.Result{Intent: intent.ProductSearch, Confidence: 0.3}
	out := p.Decide(res, "I want to speak to a human about finding a shirt", nil)

	assert.True(t, out.EscalateToHuman)
	assert.False(t, out.ClarificationNeeded)
	assert.NotEmpty(t, out.Message)
}

func TestFlagsAreMutuallyExclusive(t *testing.T) {
	p := newTestPolicy()

	cases := []struct {
		res  intent.Result
		text string
	}{
		{intent.Result{Intent: intent.ProductSearch}, "something vague"},
		{intent.Result{Intent: intent.PriceInquiry}, "hmm"},
		{intent.Result{Intent: intent.SizeInquiry}, "size?"},
		{intent.Result{Intent: intent.Unknown}, "asdf qwer"},
		{intent.Result{Intent: intent.GeneralChat}, "ok then"},
		{intent.Result{Intent: intent.Complaint}, "this is terrible, get me a manager"},
	}
	for _, tc := range cases {
		out := p.Decide(tc.res, tc.text, nil)
		assert.NotEqual(t, out.ClarificationNeeded, out.EscalateToHuman, "text %q", tc.text)
	}
}

func TestClarificationPoolsPerIntent(t *testing.T) {
	p := newTestPolicy()

	out := p.Decide(intent.Result{Intent: intent.SizeInquiry}, "size", nil)
	assert.True(t, out.ClarificationNeeded)
	assert.Contains(t, clarificationTemplates[intent.SizeInquiry], out.Message)
	assert.Equal(t, sizeSuggestions, out.Suggestions)
	assert.Len(t, out.Tips, 2)
	assert.NotEqual(t, out.Tips[0], out.Tips[1])
}

func TestProductSearchAsksForMissingDetails(t *testing.T) {
	p := newTestPolicy()

	// All key entities present: the ask shifts to refinement.
	res := intent.Result{
		Intent: intent.ProductSearch,
		Entities: map[string][]string{
			intent.EntityProductType: {"jeans"},
			intent.EntitySize:        {"32"},
			intent.EntityPriceRange:  {"under 500000"},
		},
	}
	out := p.Decide(res, "jeans size 32 under 500k??", nil)
	assert.Equal(t, []string{"Pick a color", "Pick a brand", "Show all matches"}, out.Suggestions)
}

func TestUnknownIntentUsesRecentContext(t *testing.T) {
	p := newTestPolicy()

	recent := []session.Turn{
		{Intent: string(intent.Greeting)},
		{Intent: string(intent.ProductSearch)},
	}
	out := p.Decide(intent.Result{Intent: intent.Unknown}, "hmmm", recent)
	require.True(t, out.ClarificationNeeded)
	assert.Equal(t, productSuggestions[:4], out.Suggestions)

	out = p.Decide(intent.Result{Intent: intent.Unknown}, "hmmm", nil)
	assert.Equal(t, generalSuggestions, out.Suggestions)
}

func TestDecisionsAreDeterministicForAPinnedSeed(t *testing.T) {
	a := NewPolicy(rand.New(rand.NewSource(7)))
	b := NewPolicy(rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		outA := a.Decide(intent.Result{Intent: intent.PriceInquiry}, "price", nil)
		outB := b.Decide(intent.Result{Intent: intent.PriceInquiry}, "price", nil)
		assert.Equal(t, outA, outB)
	}
}
