package intent

import "regexp"

const garmentWords = `t-shirt|shirt|polo|hoodie|sweater|cardigan|jacket|coat|jeans|pants|trousers|shorts|joggers|leggings|dress|skirt|gown|shoes|sneakers|boots|sandals|slippers|heels`

func buildIntentMatchers() []intentMatcher {
	return []intentMatcher{
		{
			intent: ProductSearch,
			patterns: compile(
				`\b(find|search|looking|look|show|browse|buy|shop|want|need|sell|have)\b.*\b(`+garmentWords+`|product|products|clothes|clothing)\b`,
				`\b(`+garmentWords+`)\b`,
				`\b(men|mens|women|womens|male|female|kids|unisex)\b`,
				`\b(`+garmentWords+`)\b.*\bsize\b`,
				`\b(under|below|over|above|between|around)\b \d+`,
				`\b(`+garmentWords+`)\b.*\b(under|below|over|above)\b`,
			),
			bonusEntity: EntityProductType,
		},
		{
			intent: PriceInquiry,
			patterns: compile(
				`\b(price|prices|priced|cost|costs|pricing)\b`,
				`\bhow much\b`,
				`\b(cheap|cheaper|cheapest|expensive|affordable|budget)\b`,
				`\b(under|below|over|above|from|between)\b \d+`,
				`\b\d+ ?(dollars|usd|vnd|dong|bucks)\b`,
			),
			bonusEntity: EntityPriceRange,
		},
		{
			intent: StockCheck,
			patterns: compile(
				`\b(in stock|restock|restocked|inventory|availability)\b`,
				`\b(sold out|out of stock)\b`,
				`\bstill (have|got|available)\b`,
				`\b(check|any|some)\b.*\b(stock|left|remaining)\b`,
			),
		},
		{
			intent: SizeInquiry,
			patterns: compile(
				`\b(size|sizes|sizing)\b`,
				`\b(fit|fits|fitting|tight|loose)\b`,
				`\b(tall|height|weigh|weight)\b`,
				`\b\d+ ?(cm|kg)\b`,
				`\bwhat size\b`,
			),
			bonusEntity: EntitySize,
		},
		{
			intent: PolicyQuestion,
			patterns: compile(
				`\b(return|returns|refund|refunds|exchange|exchanges)\b`,
				`\b(policy|policies|warranty|guarantee)\b`,
				`\b(shipping|delivery)\b.*\b(fee|cost|time|long|policy|free)\b`,
				`\b(payment|pay|cod|installment|installments)\b`,
			),
		},
		{
			intent: Recommendation,
			patterns: compile(
				`\b(recommend|recommendation|recommendations|suggest|suggestion|suggestions)\b`,
				`\b(should i|what do you think|advice|advise)\b`,
				`\b(outfit|matching|style|styling|combo)\b`,
				`\b(trending|trendy|popular|new arrivals|latest)\b`,
			),
		},
		{
			intent: Greeting,
			patterns: compile(
				`^(hi|hello|hey|yo|good morning|good afternoon|good evening)\b`,
				`\banyone (there|here)\b`,
				`\b(shop|store) open\b`,
			),
		},
		{
			intent: Goodbye,
			patterns: compile(
				`\b(bye|goodbye|see you|farewell)\b`,
				`\b(that is all|thats all|i am done|im done)\b`,
			),
		},
		{
			intent: Complaint,
			patterns: compile(
				`\b(bad|poor|terrible|awful|horrible)\b.*\b(quality|service|product|experience)\b`,
				`\b(complain|complaint|complaints)\b`,
				`\b(wrong|broken|damaged|defective|faulty)\b`,
				`\b(disappointed|disappointing|unacceptable)\b`,
			),
		},
		{
			intent: OrderStatus,
			patterns: compile(
				`\b(order|orders|ordered)\b`,
				`\b(status|tracking|track)\b`,
				`\border ?(id|number|code)\b`,
				`\b(shipped|delivered|arriving|on the way)\b`,
			),
		},
		// GeneralChat and Unknown carry no patterns; they are fallbacks.
	}
}

func buildEntityMatchers() []entityMatcher {
	return []entityMatcher{
		{
			category: EntityProductType,
			patterns: entityPatterns(
				`\b(t-shirt|shirt|polo|hoodie|sweater|cardigan|jacket|coat)\b`,
				`\b(jeans|pants|trousers|shorts|joggers|leggings)\b`,
				`\b(sneakers|shoes|boots|sandals|slippers|heels)\b`,
				`\b(dress|skirt|gown)\b`,
			),
		},
		{
			category: EntitySize,
			patterns: []entityPattern{
				{re: regexp.MustCompile(`\b(xs|s|m|l|xl|xxl|xxxl)\b`), group: 0},
				{re: regexp.MustCompile(`\b(2[8-9]|3[0-9]|4[0-5])\b`), group: 0},
				{re: regexp.MustCompile(`\bsize ([a-z0-9]{1,4})\b`), group: 1},
			},
		},
		{
			category: EntityColor,
			patterns: entityPatterns(
				`\b(black|white|gray|grey|beige|brown|cream|navy)\b`,
				`\b(red|blue|green|yellow|purple|pink|orange)\b`,
			),
		},
		{
			// Range patterns are declared before the bare-price pattern and
			// firstOnly makes that order authoritative when both match.
			category:  EntityPriceRange,
			firstOnly: true,
			patterns: entityPatterns(
				`\b(under|below|less than|at most|up to) \d+\b`,
				`\b(over|above|more than|at least) \d+\b`,
				`\bfrom \d+ to \d+\b`,
				`\b\d+ ?- ?\d+\b`,
				`\b\d{4,}\b`,
			),
		},
		{
			category: EntityBrand,
			patterns: entityPatterns(
				`\b(nike|adidas|puma|converse|vans|gucci|zara|uniqlo|levis)\b`,
				`\blocal brand\b`,
			),
		},
	}
}

// buildSlangTable returns whole-word chat-language rewrites. Replacement
// values never appear as keys, which keeps normalization idempotent.
func buildSlangTable() []substitution {
	pairs := []struct{ from, to string }{
		{"u", "you"},
		{"ur", "your"},
		{"pls", "please"},
		{"plz", "please"},
		{"thx", "thanks"},
		{"tks", "thanks"},
		{"ty", "thanks"},
		{"rn", "right now"},
		{"b4", "before"},
		{"gr8", "great"},
		{"wanna", "want to"},
		{"gonna", "going to"},
		{"gimme", "give me"},
		{"lemme", "let me"},
		{"idk", "i do not know"},
		{"tshirt", "t-shirt"},
		{"tee", "t-shirt"},
		{"sneaker", "sneakers"},
		{"trouser", "trousers"},
		{"pant", "pants"},
	}
	subs := make([]substitution, 0, len(pairs))
	for _, p := range pairs {
		subs = append(subs, substitution{
			re:          regexp.MustCompile(`\b` + regexp.QuoteMeta(p.from) + `\b`),
			replacement: p.to,
		})
	}
	return subs
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func entityPatterns(patterns ...string) []entityPattern {
	out := make([]entityPattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, entityPattern{re: regexp.MustCompile(p)})
	}
	return out
}
