package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Type is the closed set of conversation intents. Declaration order is
// significant: it is the tie-break order when two intents score equally.
type Type string

const (
	ProductSearch  Type = "product_search"
	PriceInquiry   Type = "price_inquiry"
	StockCheck     Type = "stock_check"
	SizeInquiry    Type = "size_inquiry"
	PolicyQuestion Type = "policy_question"
	Recommendation Type = "recommendation"
	Greeting       Type = "greeting"
	Goodbye        Type = "goodbye"
	Complaint      Type = "complaint"
	OrderStatus    Type = "order_status"
	GeneralChat    Type = "general_chat"
	Unknown        Type = "unknown"
)

// AllIntents lists every intent in tie-break order.
var AllIntents = []Type{
	ProductSearch,
	PriceInquiry,
	StockCheck,
	SizeInquiry,
	PolicyQuestion,
	Recommendation,
	Greeting,
	Goodbye,
	Complaint,
	OrderStatus,
	GeneralChat,
	Unknown,
}

// Entity categories.
const (
	EntityProductType = "product_type"
	EntitySize        = "size"
	EntityColor       = "color"
	EntityPriceRange  = "price_range"
	EntityBrand       = "brand"
)

// Result is the outcome of classifying one message. It is never an error:
// unmatchable input degrades to GeneralChat or Unknown.
type Result struct {
	Intent        Type                `json:"intent"`
	Confidence    float64             `json:"confidence"`
	Entities      map[string][]string `json:"entities"`
	Keywords      []string            `json:"keywords"`
	ContextNeeded bool                `json:"context_needed"`
}

const (
	patternScore      = 10
	entityBonus       = 15
	confidenceCeiling = 100.0

	// ContextThreshold is the confidence below which a reply needs
	// clarification from the fallback policy.
	ContextThreshold = 0.7

	shortChatConfidence = 0.5
	unknownConfidence   = 0.3
	shortChatMaxWords   = 3
)

// Classifier turns free text into an intent with confidence and entities.
// Construct once; Classify is safe for concurrent use.
type Classifier struct {
	intents   []intentMatcher
	entities  []entityMatcher
	slang     []substitution
	thousands *regexp.Regexp
	spaces    *regexp.Regexp
}

type intentMatcher struct {
	intent      Type
	patterns    []*regexp.Regexp
	bonusEntity string
}

type entityMatcher struct {
	category string
	patterns []entityPattern
	// firstOnly stops at the first pattern that yields any match, so
	// conflicting patterns (range vs. bare price) resolve by declaration
	// order rather than accumulating both readings.
	firstOnly bool
}

type entityPattern struct {
	re    *regexp.Regexp
	group int
}

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

func NewClassifier() *Classifier {
	return &Classifier{
		intents:   buildIntentMatchers(),
		entities:  buildEntityMatchers(),
		slang:     buildSlangTable(),
		thousands: regexp.MustCompile(`\b(\d+)k\b`),
		spaces:    regexp.MustCompile(`\s+`),
	}
}

// Normalize lower-cases the text, expands slang and abbreviations with
// whole-word substitutions, rewrites shorthand prices ("500k" -> "500000"),
// and collapses whitespace. Normalization is idempotent.
func (c *Classifier) Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, "'", "")

	for _, sub := range c.slang {
		text = sub.re.ReplaceAllString(text, sub.replacement)
	}

	text = c.thousands.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(strings.TrimSuffix(m, "k"))
		if err != nil {
			return m
		}
		return strconv.Itoa(n * 1000)
	})

	return strings.TrimSpace(c.spaces.ReplaceAllString(text, " "))
}

// ExtractEntities runs every category's patterns against normalized text.
// Values are deduplicated preserving first-match order; categories with no
// match are absent from the map.
func (c *Classifier) ExtractEntities(normalized string) map[string][]string {
	entities := make(map[string][]string)

	for _, m := range c.entities {
		var values []string
		for _, p := range m.patterns {
			var found []string
			if p.group == 0 {
				found = p.re.FindAllString(normalized, -1)
			} else {
				for _, sm := range p.re.FindAllStringSubmatch(normalized, -1) {
					if len(sm) > p.group {
						found = append(found, sm[p.group])
					}
				}
			}
			values = append(values, found...)
			if m.firstOnly && len(found) > 0 {
				break
			}
		}
		if deduped := dedupe(values); len(deduped) > 0 {
			entities[m.category] = deduped
		}
	}

	return entities
}

// Classify scores every intent's pattern list against the normalized text
// and picks the strictly highest scorer. It never fails: inputs with no
// signal fall back to GeneralChat (short) or Unknown.
func (c *Classifier) Classify(text string) Result {
	normalized := c.Normalize(text)
	entities := c.ExtractEntities(normalized)

	bestScore := 0
	bestIntent := Unknown
	var keywords []string

	for _, m := range c.intents {
		score := 0
		var matched []string
		for _, re := range m.patterns {
			hits := re.FindAllString(normalized, -1)
			score += len(hits) * patternScore
			matched = append(matched, hits...)
		}
		// The bonus applies even without a pattern hit, so an
		// entity-only message still resolves to the related intent.
		if m.bonusEntity != "" {
			if _, ok := entities[m.bonusEntity]; ok {
				score += entityBonus
			}
		}
		// Strict comparison keeps the declaration-order tie-break.
		if score > bestScore {
			bestScore = score
			bestIntent = m.intent
			keywords = matched
		}
	}

	if bestScore > 0 {
		confidence := float64(bestScore) / confidenceCeiling
		if confidence > 1.0 {
			confidence = 1.0
		}
		return Result{
			Intent:        bestIntent,
			Confidence:    confidence,
			Entities:      entities,
			Keywords:      dedupe(keywords),
			ContextNeeded: confidence < ContextThreshold,
		}
	}

	if normalized != "" && len(strings.Fields(normalized)) <= shortChatMaxWords {
		return Result{
			Intent:        GeneralChat,
			Confidence:    shortChatConfidence,
			Entities:      entities,
			ContextNeeded: true,
		}
	}

	return Result{
		Intent:        Unknown,
		Confidence:    unknownConfidence,
		Entities:      entities,
		ContextNeeded: true,
	}
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
