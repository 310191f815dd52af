// Package fallback decides what to say when the classifier is not
// confident enough to act: ask a clarifying question, or hand the shopper
// to a human.
package fallback

import (
	"math/rand"
	"strings"

	"github.com/trendora/assistant/pkg/intent"
	"github.com/trendora/assistant/pkg/session"
)

// Response is the policy's decision. ClarificationNeeded and
// EscalateToHuman are mutually exclusive: exactly one is always true.
type Response struct {
	Message             string   `json:"message"`
	Suggestions         []string `json:"suggestions"`
	ClarificationNeeded bool     `json:"clarification_needed"`
	EscalateToHuman     bool     `json:"escalate_to_human"`
	Tips                []string `json:"tips,omitempty"`
}

// escalationTriggers are scanned case-insensitively against the raw
// message before any other fallback logic runs.
var escalationTriggers = []string{
	"not satisfied", "unsatisfied", "disappointed", "terrible", "awful",
	"useless", "complain", "complaint", "manager", "supervisor",
	"real person", "real human", "speak to a human", "talk to a human",
	"talk to someone", "this is not helping", "you are not helping",
}

var clarificationTemplates = map[intent.Type][]string{
	intent.ProductSearch: {
		"Which kind of product are you after? For example: t-shirts, jeans, sneakers...",
		"I didn't quite catch what you're looking for. Could you describe it in more detail?",
		"To find the right item, could you tell me the product type, size, color, or budget?",
	},
	intent.PriceInquiry: {
		"Which product's price would you like? Or what budget are you shopping within?",
		"Tell me the product name and I'll check the price for you!",
		"Could you say a bit more about the product and the price you have in mind?",
	},
	intent.SizeInquiry: {
		"Which product do you need sizing help with? And what size do you usually wear?",
		"For an accurate size, could you share your height and weight?",
		"Which size are you considering? S, M, L, or a numeric size?",
	},
}

var genericTemplates = []string{
	"I didn't quite understand. Could you phrase that another way?",
	"Could you describe that in more detail so I can help better?",
	"Sorry, I didn't catch that. What exactly do you need help with?",
}

var productSuggestions = []string{
	"Browse products by category",
	"Shop by price range",
	"See what's trending",
	"See new arrivals",
	"See items on sale",
}

var generalSuggestions = []string{
	"Find a product",
	"Ask a price",
	"Check your size",
	"See current deals",
	"Shop policies",
	"Contact support",
}

var priceSuggestions = []string{
	"Ask the price of a specific item",
	"Search within a budget",
	"See items on sale",
	"Compare prices",
}

var sizeSuggestions = []string{
	"Get a size from your height and weight",
	"See the full size chart",
	"Ask about a specific item's sizing",
}

var boostTips = []string{
	"Name the product you mean",
	"Mention a budget or price range",
	"Keep one question per message",
	"Add your size or measurements",
	"Give a concrete example",
}

// Policy picks clarification templates and suggestion lists. The random
// source is injected so tests can pin the choice.
type Policy struct {
	rng *rand.Rand
}

func NewPolicy(rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Policy{rng: rng}
}

// Decide handles a low-confidence or unknown classification. The
// escalation scan runs first and pre-empts everything else.
func (p *Policy) Decide(res intent.Result, rawText string, recent []session.Turn) Response {
	if ShouldEscalate(rawText) {
		return Response{
			Message: "I'll connect you with one of our staff who can sort this out personally. " +
				"You can also reach the shop directly via the contact page.",
			Suggestions:     []string{"Contact support", "Leave your phone number"},
			EscalateToHuman: true,
		}
	}

	switch res.Intent {
	case intent.ProductSearch:
		return p.clarify(intent.ProductSearch, p.productSearchSuggestions(res), nil)
	case intent.PriceInquiry:
		return p.clarify(intent.PriceInquiry, priceSuggestions, nil)
	case intent.SizeInquiry:
		return p.clarify(intent.SizeInquiry, sizeSuggestions, nil)
	case intent.Unknown:
		msg, suggestions := p.contextual(recent)
		return Response{
			Message:             msg,
			Suggestions:         suggestions,
			ClarificationNeeded: true,
			Tips:                p.sampleTips(),
		}
	default:
		return Response{
			Message:             genericTemplates[p.rng.Intn(len(genericTemplates))],
			Suggestions:         generalSuggestions[:5],
			ClarificationNeeded: true,
			Tips:                p.sampleTips(),
		}
	}
}

func (p *Policy) clarify(t intent.Type, suggestions []string, tips []string) Response {
	pool := clarificationTemplates[t]
	if tips == nil {
		tips = p.sampleTips()
	}
	return Response{
		Message:             pool[p.rng.Intn(len(pool))],
		Suggestions:         suggestions,
		ClarificationNeeded: true,
		Tips:                tips,
	}
}

// productSearchSuggestions narrows the ask to whatever the shopper has
// not told us yet.
func (p *Policy) productSearchSuggestions(res intent.Result) []string {
	var missing []string
	if len(res.Entities[intent.EntityProductType]) == 0 {
		missing = append(missing, "the product type")
	}
	if len(res.Entities[intent.EntitySize]) == 0 {
		missing = append(missing, "a size")
	}
	if len(res.Entities[intent.EntityPriceRange]) == 0 {
		missing = append(missing, "a budget")
	}
	if len(missing) == 0 {
		return []string{"Pick a color", "Pick a brand", "Show all matches"}
	}
	return productSuggestions[:4]
}

// contextual biases the suggestion list toward the topic the shopper was
// already pursuing in the last few turns.
func (p *Policy) contextual(recent []session.Turn) (string, []string) {
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	seen := map[string]bool{}
	for _, t := range recent {
		seen[t.Intent] = true
	}

	switch {
	case seen[string(intent.ProductSearch)]:
		return "Here are some ways I can help you find a product:", productSuggestions[:4]
	case seen[string(intent.PriceInquiry)]:
		return "You can ask about prices like this:", priceSuggestions[:3]
	default:
		return "Here's what I can help you with:", generalSuggestions
	}
}

// sampleTips picks two distinct phrasing tips.
func (p *Policy) sampleTips() []string {
	i := p.rng.Intn(len(boostTips))
	j := p.rng.Intn(len(boostTips) - 1)
	if j >= i {
		j++
	}
	return []string{boostTips[i], boostTips[j]}
}

// ShouldEscalate reports whether the raw message contains an escalation
// trigger phrase. Callers run this before trusting any intent routing.
func ShouldEscalate(text string) bool {
	text = strings.ToLower(text)
	for _, trigger := range escalationTriggers {
		if strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}
