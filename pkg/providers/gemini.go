package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/trendora/assistant/pkg/catalog"
	"github.com/trendora/assistant/pkg/logger"
)

const (
	defaultGeminiModel = "gemini-1.5-flash"

	// maxToolRounds bounds the function-calling loop; after this many
	// rounds the model must answer with whatever it has.
	maxToolRounds = 3
)

const geminiSystemPrompt = `You are the shopping assistant for a clothing store.
Answer briefly and warmly in the customer's language. Use the provided tools
to look up real products, stock, and shop statistics before answering
questions about them. Never invent products or prices. When you have no
data, say so and suggest what the customer could ask instead.`

// GeminiResponder answers with a hosted Gemini model. The model can call
// back into the product catalog through a bounded function-calling loop.
type GeminiResponder struct {
	client  *genai.Client
	model   string
	catalog catalog.Catalog
}

func NewGeminiResponder(ctx context.Context, apiKey, model string, cat catalog.Catalog) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiResponder{client: client, model: model, catalog: cat}, nil
}

func (g *GeminiResponder) Name() string { return "gemini" }

// Available reports whether the responder is configured. Real failures
// surface from Generate and are handled by the chain's retry policy.
func (g *GeminiResponder) Available(ctx context.Context) bool {
	return g.client != nil
}

func (g *GeminiResponder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiResponder) Generate(ctx context.Context, req *Request) (*Reply, error) {
	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(geminiSystemPrompt)},
	}
	m.Tools = []*genai.Tool{{FunctionDeclarations: toolDeclarations()}}

	chat := m.StartChat()

	resp, err := chat.SendMessage(ctx, genai.Text(renderPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		responses := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result := g.dispatch(ctx, call)
			responses = append(responses, genai.FunctionResponse{
				Name:     call.Name,
				Response: result,
			})
		}

		resp, err = chat.SendMessage(ctx, responses...)
		if err != nil {
			return nil, fmt.Errorf("gemini tool round: %w", err)
		}
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}
	return &Reply{Content: text, Provider: g.Name(), Model: g.model}, nil
}

func renderPrompt(req *Request) string {
	var b strings.Builder
	if req.Preferences != "" {
		b.WriteString("Known customer preferences: ")
		b.WriteString(req.Preferences)
		b.WriteString("\n")
	}
	if len(req.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, h := range req.History {
			b.WriteString(h)
			b.WriteString("\n")
		}
	}
	b.WriteString("Customer: ")
	b.WriteString(req.Message)
	return b.String()
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

func toolDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "search_products",
			Description: "Search the product catalog by keyword, category, size and price range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"keyword":   {Type: genai.TypeString, Description: "Words from the product name"},
					"category":  {Type: genai.TypeString, Description: "tops, trousers, dresses or footwear"},
					"size":      {Type: genai.TypeString},
					"price_min": {Type: genai.TypeInteger},
					"price_max": {Type: genai.TypeInteger},
				},
			},
		},
		{
			Name:        "get_shop_stats",
			Description: "Get shop-wide numbers: product count, stock, price range.",
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
		},
		{
			Name:        "get_recommendations",
			Description: "Get the current best-selling products.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"limit": {Type: genai.TypeInteger},
				},
			},
		},
		{
			Name:        "check_availability",
			Description: "Check whether a product is in stock, optionally in a given size.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"keyword": {Type: genai.TypeString},
					"size":    {Type: genai.TypeString},
				},
				Required: []string{"keyword"},
			},
		},
	}
}

// dispatch executes one model-requested tool call against the catalog.
// Failures come back as an error field so the model can recover in text.
func (g *GeminiResponder) dispatch(ctx context.Context, call genai.FunctionCall) map[string]any {
	if g.catalog == nil {
		return map[string]any{"error": "catalog unavailable"}
	}

	logger.DebugCF("providers", "gemini tool call", map[string]interface{}{"name": call.Name})

	switch call.Name {
	case "search_products":
		q := catalog.Query{
			Keyword:  argString(call.Args, "keyword"),
			Category: argString(call.Args, "category"),
			Size:     argString(call.Args, "size"),
			PriceMin: argInt(call.Args, "price_min"),
			PriceMax: argInt(call.Args, "price_max"),
		}
		products, err := g.catalog.Search(ctx, q)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"products": productsJSON(products)}

	case "get_shop_stats":
		stats, err := g.catalog.Stats(ctx)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{
			"total_products": stats.TotalProducts,
			"total_stock":    stats.TotalStock,
			"categories":     stats.Categories,
			"min_price":      stats.MinPrice,
			"max_price":      stats.MaxPrice,
			"avg_price":      stats.AvgPrice,
		}

	case "get_recommendations":
		limit := argInt(call.Args, "limit")
		products, err := g.catalog.Trending(ctx, limit)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"products": productsJSON(products)}

	case "check_availability":
		products, err := g.catalog.Search(ctx, catalog.Query{
			Keyword: argString(call.Args, "keyword"),
			Size:    argString(call.Args, "size"),
			Limit:   3,
		})
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{
			"in_stock": len(products) > 0,
			"products": productsJSON(products),
		}
	}
	return map[string]any{"error": "unknown tool " + call.Name}
}

func productsJSON(products []catalog.Product) []map[string]any {
	out := make([]map[string]any, 0, len(products))
	for _, p := range products {
		out = append(out, map[string]any{
			"name":     p.Name,
			"category": p.Category,
			"price":    p.Price,
			"stock":    p.Stock,
			"sizes":    strings.Join(p.Sizes, ","),
		})
	}
	return out
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}
