package providers

import (
	"context"
	"strings"
)

// RuleResponder is the terminal backend. It matches keyword groups and
// always produces a non-empty answer, so the chain can never end a turn
// silent.
type RuleResponder struct{}

func NewRuleResponder() *RuleResponder { return &RuleResponder{} }

func (r *RuleResponder) Name() string { return "rules" }

func (r *RuleResponder) Available(ctx context.Context) bool { return true }

var ruleTable = []struct {
	keywords []string
	reply    string
}{
	{
		[]string{"hello", "hi ", "hey", "good morning", "good afternoon", "good evening"},
		"Hi there! I can help you find products, check prices, or pick the right size. What are you looking for?",
	},
	{
		[]string{"thank", "thanks"},
		"You're welcome! Anything else I can help with?",
	},
	{
		[]string{"bye", "goodbye", "see you"},
		"Thanks for stopping by! Come back any time.",
	},
	{
		[]string{"sorry", "problem", "wrong", "bad", "complaint"},
		"I'm sorry to hear that. If something went wrong with an order, our support team can sort it out for you.",
	},
	{
		[]string{"price", "cost", "how much"},
		"Tell me which product you mean and I'll check its price for you.",
	},
	{
		[]string{"size", "fit"},
		"Share your height and weight and I'll suggest a size that should fit.",
	},
	{
		[]string{"ship", "delivery"},
		"We ship nationwide; orders usually arrive in two to four days.",
	},
}

const ruleDefaultReply = "I can help you browse products, check prices and stock, or find your size. What would you like to do?"

func (r *RuleResponder) Generate(ctx context.Context, req *Request) (*Reply, error) {
	text := " " + strings.ToLower(req.Message) + " "
	for _, rule := range ruleTable {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return &Reply{Content: rule.reply, Provider: r.Name()}, nil
			}
		}
	}
	return &Reply{Content: ruleDefaultReply, Provider: r.Name()}, nil
}
