// Package engine orchestrates one conversation turn: session lookup,
// intent classification, the per-intent handler, and persistence of what
// the turn taught us about the shopper.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trendora/assistant/pkg/catalog"
	"github.com/trendora/assistant/pkg/fallback"
	"github.com/trendora/assistant/pkg/intent"
	"github.com/trendora/assistant/pkg/logger"
	"github.com/trendora/assistant/pkg/providers"
	"github.com/trendora/assistant/pkg/session"
	"github.com/trendora/assistant/pkg/sizing"
)

// Reply is the full envelope returned for one user message.
type Reply struct {
	Message      string              `json:"message"`
	SessionID    string              `json:"session_id"`
	Intent       string              `json:"intent"`
	Confidence   float64             `json:"confidence"`
	Entities     map[string][]string `json:"entities,omitempty"`
	QuickReplies []string            `json:"quick_replies,omitempty"`
	Products     []catalog.Product   `json:"products,omitempty"`
	Metadata     Metadata            `json:"metadata"`
}

// Metadata describes how the reply was produced.
type Metadata struct {
	Provider  string `json:"provider,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Escalated bool   `json:"escalated,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

// Options carries the engine's collaborators. All fields are required
// except Catalog, which degrades product handlers to generic replies.
type Options struct {
	Classifier *intent.Classifier
	Consultant *sizing.Consultant
	Sessions   *session.Manager
	Policy     *fallback.Policy
	Chain      *providers.Chain
	Catalog    catalog.Catalog

	ContextWindow   int
	MaxQuickReplies int
}

type Engine struct {
	classifier *intent.Classifier
	consultant *sizing.Consultant
	sessions   *session.Manager
	policy     *fallback.Policy
	chain      *providers.Chain
	catalog    catalog.Catalog

	contextWindow   int
	maxQuickReplies int
}

func New(opts Options) *Engine {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 5
	}
	if opts.MaxQuickReplies <= 0 {
		opts.MaxQuickReplies = 4
	}
	return &Engine{
		classifier:      opts.Classifier,
		consultant:      opts.Consultant,
		sessions:        opts.Sessions,
		policy:          opts.Policy,
		chain:           opts.Chain,
		catalog:         opts.Catalog,
		contextWindow:   opts.ContextWindow,
		maxQuickReplies: opts.MaxQuickReplies,
	}
}

const recoveredReply = "Sorry, something went wrong while I was thinking. Could you say that again?"

// Send processes one user message and always returns a reply. A handler
// panic is recovered into an apology so a single bad turn cannot take the
// conversation down.
func (e *Engine) Send(ctx context.Context, sessionID, userID, text string) (reply *Reply) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("engine", "recovered from handler panic",
				map[string]interface{}{"panic": fmt.Sprint(r), "session_id": sessionID})
			reply = &Reply{
				Message:   recoveredReply,
				SessionID: sessionID,
				Intent:    string(intent.Unknown),
				Metadata:  Metadata{LatencyMS: time.Since(start).Milliseconds()},
			}
		}
	}()

	sess := e.sessions.Touch(ctx, sessionID, userID)
	res := e.classifier.Classify(text)

	logger.DebugCF("engine", "classified message", map[string]interface{}{
		"session_id": sess.ID,
		"intent":     string(res.Intent),
		"confidence": res.Confidence,
	})

	// Escalation triggers pre-empt intent routing, even when the
	// classifier is confident about something else.
	if fallback.ShouldEscalate(text) || res.ContextNeeded || res.Intent == intent.Unknown {
		reply = e.lowConfidence(ctx, sess, res, text)
	} else {
		reply = e.dispatch(ctx, sess, res, text)
		e.persist(ctx, sess, res, text, reply)
	}

	reply.SessionID = sess.ID
	reply.Intent = string(res.Intent)
	reply.Confidence = res.Confidence
	reply.Entities = res.Entities
	reply.Metadata.LatencyMS = time.Since(start).Milliseconds()
	reply.QuickReplies = capList(reply.QuickReplies, e.maxQuickReplies)
	return reply
}

// lowConfidence asks the fallback policy what to say. The turn is not
// written to history and teaches no preferences: a misread message must
// not pollute what we think we know about the shopper. The message is
// parked as a pending question so the next confident turn can see what
// went unanswered.
func (e *Engine) lowConfidence(ctx context.Context, sess *session.Session, res intent.Result, text string) *Reply {
	fb := e.policy.Decide(res, text, e.recentTurns(sess))

	message := fb.Message
	if len(fb.Tips) > 0 {
		message += "\n" + strings.Join(fb.Tips, "\n")
	}

	reply := &Reply{
		Message:      message,
		QuickReplies: fb.Suggestions,
	}
	if fb.EscalateToHuman {
		reply.Metadata.Escalated = true
		reply.Metadata.Priority = "high"
	} else {
		e.sessions.AddPendingQuestion(ctx, sess.ID, text)
	}
	return reply
}

func (e *Engine) dispatch(ctx context.Context, sess *session.Session, res intent.Result, text string) *Reply {
	switch res.Intent {
	case intent.ProductSearch:
		return e.handleProductSearch(ctx, sess, res)
	case intent.PriceInquiry:
		return e.handlePriceInquiry(ctx, sess, res, text)
	case intent.StockCheck:
		return e.handleStockCheck(ctx, res, text)
	case intent.SizeInquiry:
		return e.handleSizeInquiry(text)
	case intent.PolicyQuestion:
		return e.handlePolicyQuestion(text)
	case intent.Recommendation:
		return e.handleRecommendation(ctx, sess)
	case intent.Greeting, intent.Goodbye, intent.GeneralChat:
		return e.handleWithChain(ctx, sess, res, text)
	case intent.Complaint:
		return e.handleComplaint()
	case intent.OrderStatus:
		return e.handleOrderStatus()
	default:
		return e.handleWithChain(ctx, sess, res, text)
	}
}

// persist records the finished turn and mines its entities for durable
// preferences.
func (e *Engine) persist(ctx context.Context, sess *session.Session, res intent.Result, text string, reply *Reply) {
	e.sessions.AppendTurn(ctx, sess.ID, session.Turn{
		Timestamp:   time.Now(),
		UserMessage: text,
		BotMessage:  reply.Message,
		Intent:      string(res.Intent),
		Entities:    res.Entities,
	})
	e.sessions.LearnPreferences(ctx, sess.UserID, res.Entities)

	if types := res.Entities[intent.EntityProductType]; len(types) > 0 {
		e.sessions.SetTopic(ctx, sess.ID, types[0])
	}
	if len(sess.PendingQuestions) > 0 {
		e.sessions.ClearPendingQuestions(ctx, sess.ID)
	}
}

func (e *Engine) recentTurns(sess *session.Session) []session.Turn {
	if len(sess.History) <= e.contextWindow {
		return sess.History
	}
	return sess.History[len(sess.History)-e.contextWindow:]
}

// chainRequest renders session context into the provider request.
func (e *Engine) chainRequest(ctx context.Context, sess *session.Session, res intent.Result, text string) *providers.Request {
	req := &providers.Request{
		Message: text,
		Intent:  string(res.Intent),
	}
	for _, turn := range e.recentTurns(sess) {
		req.History = append(req.History,
			"Customer: "+turn.UserMessage,
			"Assistant: "+turn.BotMessage)
	}
	req.Preferences = renderPreferences(e.preferences(ctx, sess))
	return req
}

// preferences resolves the durable cross-session preferences, falling
// back to the session's own copy for anonymous shoppers.
func (e *Engine) preferences(ctx context.Context, sess *session.Session) session.Preferences {
	if sess.UserID == "" {
		return sess.Preferences
	}
	return e.sessions.Preferences(ctx, sess.UserID)
}

func renderPreferences(p session.Preferences) string {
	var parts []string
	if len(p.Categories) > 0 {
		parts = append(parts, "likes "+strings.Join(p.Categories, ", "))
	}
	if len(p.Sizes) > 0 {
		parts = append(parts, "wears size "+strings.Join(p.Sizes, "/"))
	}
	if len(p.Brands) > 0 {
		parts = append(parts, "prefers "+strings.Join(p.Brands, ", "))
	}
	if p.PriceRange.Max > 0 && p.PriceRange.Max < 1_000_000 {
		parts = append(parts, fmt.Sprintf("budget up to %s", formatPrice(p.PriceRange.Max)))
	}
	return strings.Join(parts, "; ")
}

func capList(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}
