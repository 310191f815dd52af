package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/trendora/assistant/pkg/catalog"
	"github.com/trendora/assistant/pkg/intent"
	"github.com/trendora/assistant/pkg/logger"
	"github.com/trendora/assistant/pkg/session"
	"github.com/trendora/assistant/pkg/sizing"
)

func (e *Engine) handleProductSearch(ctx context.Context, sess *session.Session, res intent.Result) *Reply {
	if e.catalog == nil {
		return &Reply{Message: "Our product browser is offline right now. Tell me what you're after and I'll do my best from memory."}
	}

	q := e.queryFromEntities(ctx, sess, res.Entities)
	products, err := e.catalog.Search(ctx, q)
	if err != nil {
		logger.WarnCF("engine", "catalog search failed",
			map[string]interface{}{"error": err.Error()})
		return &Reply{Message: "I couldn't reach the product catalog just now. Mind trying again in a moment?"}
	}

	if len(products) == 0 {
		return &Reply{
			Message: "I couldn't find anything in stock matching that. Want to try a different size or budget?",
			QuickReplies: []string{
				"Show trending products",
				"Search without size filter",
				"Raise my budget",
			},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found (%d match", len(products))
	if len(products) > 1 {
		b.WriteString("es")
	}
	b.WriteString("):\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		if len(p.Sizes) > 0 {
			fmt.Fprintf(&b, " (sizes %s)", strings.Join(p.Sizes, ", "))
		}
		fmt.Fprintf(&b, " - %sd\n", formatPrice(p.Price))
	}
	b.WriteString("Want details on any of these?")

	return &Reply{
		Message:  b.String(),
		Products: products,
		QuickReplies: []string{
			"Tell me more about #1",
			"Do you have other colors?",
			"What size fits me?",
		},
	}
}

// queryFromEntities maps extracted entities onto a catalog query and
// fills gaps from learned preferences: an explicit price in the message
// always wins over the remembered budget.
func (e *Engine) queryFromEntities(ctx context.Context, sess *session.Session, entities map[string][]string) catalog.Query {
	var q catalog.Query

	if types := entities[intent.EntityProductType]; len(types) > 0 {
		q.Keyword = types[0]
	}
	if sizes := entities[intent.EntitySize]; len(sizes) > 0 {
		q.Size = sizes[0]
	}
	if colors := entities[intent.EntityColor]; len(colors) > 0 {
		q.Color = colors[0]
	}
	if brands := entities[intent.EntityBrand]; len(brands) > 0 {
		q.Brand = brands[0]
	}

	if prices := entities[intent.EntityPriceRange]; len(prices) > 0 {
		q.PriceMin, q.PriceMax = parsePriceBounds(prices[0])
	} else {
		prefs := e.preferences(ctx, sess)
		if prefs.PriceRange.Max > 0 {
			q.PriceMin, q.PriceMax = prefs.PriceRange.Min, prefs.PriceRange.Max
		}
	}
	return q
}

func (e *Engine) handlePriceInquiry(ctx context.Context, sess *session.Session, res intent.Result, text string) *Reply {
	keyword := firstEntity(res.Entities, intent.EntityProductType)
	if keyword == "" {
		keyword = sess.CurrentTopic
	}
	if keyword == "" || e.catalog == nil {
		return &Reply{
			Message:      "Which product would you like the price for?",
			QuickReplies: []string{"T-shirts", "Jeans", "Sneakers"},
		}
	}

	products, err := e.catalog.Search(ctx, catalog.Query{Keyword: keyword})
	if err != nil || len(products) == 0 {
		return e.handleWithChain(ctx, sess, res, text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Prices for %s:\n", keyword)
	for _, p := range products {
		fmt.Fprintf(&b, "- %s: %sd\n", p.Name, formatPrice(p.Price))
	}
	return &Reply{Message: strings.TrimRight(b.String(), "\n"), Products: products}
}

func (e *Engine) handleStockCheck(ctx context.Context, res intent.Result, text string) *Reply {
	keyword := firstEntity(res.Entities, intent.EntityProductType)
	if keyword == "" || e.catalog == nil {
		return &Reply{Message: "Which product should I check stock for?"}
	}

	products, err := e.catalog.Search(ctx, catalog.Query{Keyword: keyword})
	if err != nil {
		logger.WarnCF("engine", "catalog search failed",
			map[string]interface{}{"error": err.Error()})
		return &Reply{Message: "I couldn't check stock just now. Please try again shortly."}
	}
	if len(products) == 0 {
		return &Reply{Message: fmt.Sprintf("Sorry, %s is out of stock at the moment. Can I suggest something similar?", keyword)}
	}

	var b strings.Builder
	b.WriteString("Yes, in stock:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s: %d left", p.Name, p.Stock)
		if len(p.Sizes) > 0 {
			fmt.Fprintf(&b, " (sizes %s)", strings.Join(p.Sizes, ", "))
		}
		b.WriteByte('\n')
	}
	return &Reply{Message: strings.TrimRight(b.String(), "\n"), Products: products}
}

func (e *Engine) handleSizeInquiry(text string) *Reply {
	m := sizing.ExtractMeasurements(text)
	garment := sizing.DetectGarment(text)

	rec, err := e.consultant.Recommend(m, garment)
	if err != nil {
		return &Reply{
			Message: "To suggest a size I need your height and weight. For example: \"I'm 1m65 and 58kg\".",
			QuickReplies: []string{
				"Show the size chart",
				"I'm 1m70, 65kg",
			},
		}
	}

	if rec.SpecialCase {
		return &Reply{
			Message: "Your measurements fall outside our standard charts, and I'd rather not guess. " +
				"Our staff can measure a piece for you directly - just ask and I'll connect you.",
			Metadata: Metadata{Escalated: true, Priority: "normal"},
		}
	}

	var b strings.Builder
	for _, s := range rec.Suggestions {
		switch s.Fit {
		case sizing.FitPerfect:
			fmt.Fprintf(&b, "Size %s should fit you well", s.Size)
		case sizing.FitAcceptable:
			fmt.Fprintf(&b, "Size %s would also work", s.Size)
		case sizing.FitClosest:
			fmt.Fprintf(&b, "Size %s is the closest match", s.Size)
		case sizing.FitEstimated:
			fmt.Fprintf(&b, "I'd estimate %s", s.Size)
		}
		if s.GenderUsed == sizing.GenderMale || s.GenderUsed == sizing.GenderFemale {
			fmt.Fprintf(&b, " (%s chart)", s.GenderUsed)
		}
		if s.Note != "" {
			fmt.Fprintf(&b, " - %s", s.Note)
		}
		b.WriteString(".\n")
	}
	if rec.FootLengthCM > 0 {
		fmt.Fprintf(&b, "That's based on an estimated foot length of %.1fcm.\n", rec.FootLengthCM)
	}
	if rec.Note != "" {
		b.WriteString(rec.Note + "\n")
	}

	return &Reply{
		Message:      strings.TrimRight(b.String(), "\n"),
		QuickReplies: []string{"Show the full size chart", "Find products in this size"},
	}
}

// handleRecommendation surfaces best sellers filtered by what we know
// about the shopper. It skips the provider chain: the answer must
// reflect live catalog data, not a cached generation.
func (e *Engine) handleRecommendation(ctx context.Context, sess *session.Session) *Reply {
	if e.catalog == nil {
		return &Reply{Message: "Tell me what styles you like and I'll suggest something."}
	}

	products, err := e.catalog.Trending(ctx, e.maxQuickReplies+1)
	if err != nil || len(products) == 0 {
		return &Reply{Message: "I'm short on suggestions right now. What kind of item are you shopping for?"}
	}

	prefs := e.preferences(ctx, sess)
	products = preferFirst(products, prefs.Categories)

	var b strings.Builder
	b.WriteString("Our most popular picks right now:\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s - %sd (%d sold)\n", i+1, p.Name, formatPrice(p.Price), p.Sold)
	}
	b.WriteString("Any of these catch your eye?")

	return &Reply{Message: b.String(), Products: products}
}

// handlePolicyQuestion answers from fixed policy text keyed on what the
// message mentions. Shop policy never goes through the provider chain;
// the answer has to be the same every time.
func (e *Engine) handlePolicyQuestion(text string) *Reply {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "return", "refund", "exchange"):
		return &Reply{
			Message: "Returns and exchanges:\n" +
				"- Returns accepted within 7 days of delivery\n" +
				"- Items must be unworn with tags attached\n" +
				"- Free size exchange within the first 3 days\n" +
				"- Return shipping is charged at our standard rates",
			QuickReplies: []string{"Shipping info", "Payment methods", "Talk to support"},
		}
	case containsAny(lower, "ship", "delivery", "deliver"):
		return &Reply{
			Message: "Shipping:\n" +
				"- Nationwide delivery\n" +
				"- Fee 30,000d, free on orders over 500,000d\n" +
				"- 2-3 days in the city, 3-5 days elsewhere",
			QuickReplies: []string{"Return policy", "Payment methods"},
		}
	case containsAny(lower, "pay", "payment", "cod", "installment"):
		return &Reply{
			Message: "Payment methods:\n" +
				"- Cash on delivery (COD)\n" +
				"- Bank transfer\n" +
				"- E-wallets (Momo, ZaloPay)\n" +
				"- Credit and debit cards",
			QuickReplies: []string{"Return policy", "Shipping info"},
		}
	case containsAny(lower, "warranty", "guarantee", "defect", "faulty"):
		return &Reply{
			Message: "Warranty:\n" +
				"- 30-day warranty on manufacturing defects\n" +
				"- Repairs at fair cost after that\n" +
				"- Replacement for serious faults",
			QuickReplies: []string{"Return policy", "Talk to support"},
		}
	default:
		return &Reply{
			Message:      "Happy to explain our policies. Which one are you curious about?",
			QuickReplies: []string{"Returns", "Shipping", "Payment", "Warranty"},
		}
	}
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func (e *Engine) handleComplaint() *Reply {
	return &Reply{
		Message: "I'm really sorry about that. I've flagged this for our support team - " +
			"someone will follow up with you shortly. Is there anything I can fix right now?",
		Metadata: Metadata{Escalated: true, Priority: "high"},
	}
}

func (e *Engine) handleOrderStatus() *Reply {
	return &Reply{
		Message: "I can't look up orders from the chat yet. Please share your order number " +
			"and a team member will check it, or track it from the confirmation email.",
		QuickReplies: []string{"Talk to support", "Keep shopping"},
	}
}

// handleWithChain is the generative path shared by greetings and small
// talk.
func (e *Engine) handleWithChain(ctx context.Context, sess *session.Session, res intent.Result, text string) *Reply {
	reply := e.chain.Respond(ctx, e.chainRequest(ctx, sess, res, text))
	return &Reply{
		Message:  reply.Content,
		Metadata: Metadata{Provider: reply.Provider},
	}
}

// preferFirst stable-sorts preferred categories to the front without
// dropping anything.
func preferFirst(products []catalog.Product, categories []string) []catalog.Product {
	if len(categories) == 0 {
		return products
	}
	preferred := make(map[string]bool, len(categories))
	for _, c := range categories {
		preferred[strings.ToLower(c)] = true
	}
	sort.SliceStable(products, func(i, j int) bool {
		return preferred[strings.ToLower(products[i].Category)] &&
			!preferred[strings.ToLower(products[j].Category)]
	})
	return products
}

func firstEntity(entities map[string][]string, key string) string {
	if vals := entities[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

var boundNumbers = regexp.MustCompile(`\d+`)

// parsePriceBounds turns a price entity like "under 500000" or
// "200000 - 400000" into query bounds. Zero means unbounded.
func parsePriceBounds(text string) (min, max int) {
	nums := boundNumbers.FindAllString(text, 2)
	if len(nums) == 0 {
		return 0, 0
	}

	first, _ := strconv.Atoi(nums[0])
	if len(nums) >= 2 {
		second, _ := strconv.Atoi(nums[1])
		if first > second {
			first, second = second, first
		}
		return first, second
	}

	lower := strings.ToLower(text)
	for _, marker := range []string{"over", "above", "more than", "at least", "from"} {
		if strings.Contains(lower, marker) {
			return first, 0
		}
	}
	return 0, first
}

// formatPrice renders 250000 as "250,000".
func formatPrice(v int) string {
	s := strconv.Itoa(v)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
