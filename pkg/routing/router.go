// Package routing classifies incoming requests into response
// categories. Classification is a pure keyword heuristic: cheap,
// deterministic, and honest about its confidence.
package routing

import (
	"strings"
)

// Category is a response category. Declaration order doubles as tie
// priority: when two categories score equally, the earlier one wins.
type Category string

const (
	CategoryGreeting  Category = "greeting"
	CategoryFarewell  Category = "farewell"
	CategoryCode      Category = "code"
	CategoryOpinion   Category = "opinion"
	CategoryQuestion  Category = "question"
	CategoryTask      Category = "task"
	CategorySmalltalk Category = "smalltalk"
)

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryGreeting,
		CategoryFarewell,
		CategoryCode,
		CategoryOpinion,
		CategoryQuestion,
		CategoryTask,
		CategorySmalltalk,
	}
}

type categoryRule struct {
	Category Category
	Weight   float64
	Keywords []string
}

// categoryRules holds the keyword tables, one rule per category, in
// declaration order. Multi-word keywords match as phrases.
var categoryRules = []categoryRule{
	{
		Category: CategoryGreeting,
		Weight:   1.3,
		Keywords: []string{
			"hello", "hi", "hey", "greetings", "howdy",
			"good morning", "good afternoon", "good evening",
		},
	},
	{
		Category: CategoryFarewell,
		Weight:   1.3,
		Keywords: []string{
			"bye", "goodbye", "farewell", "see you", "good night",
			"take care", "signing off",
		},
	},
	{
		Category: CategoryCode,
		Weight:   1.2,
		Keywords: []string{
			"code", "function", "bug", "compile", "refactor",
			"implement", "debug", "api", "stack trace", "golang",
			"python", "regex", "sql",
		},
	},
	{
		Category: CategoryOpinion,
		Weight:   1.1,
		Keywords: []string{
			"what do you think", "your opinion", "do you like",
			"feel about", "thoughts on", "prefer", "should i",
			"better or", "overrated",
		},
	},
	{
		Category: CategoryQuestion,
		Weight:   0.9,
		Keywords: []string{
			"what", "why", "how", "when", "where", "who", "which",
			"explain", "tell me",
		},
	},
	{
		Category: CategoryTask,
		Weight:   1.0,
		Keywords: []string{
			"write", "create", "make", "generate", "build", "draft",
			"summarize", "translate", "plan", "help me", "fix",
		},
	},
	{
		Category: CategorySmalltalk,
		Weight:   0.8,
		Keywords: []string{
			"weather", "how are you", "what's up", "nice day",
			"weekend", "coffee",
		},
	},
}

// Route is a classification result.
type Route struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Classify scores a text against every category's keyword table and
// returns the winner. A category's raw score is hits squared times its
// weight, so repeated matches dominate scattered single hits.
// Confidence is the winner's share of the total score. A text that hits
// nothing routes to smalltalk with zero confidence.
func Classify(text string) Route {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Route{Category: CategorySmalltalk, Confidence: 0}
	}
	tokens := strings.Fields(normalized)

	best := Route{Category: CategorySmalltalk, Confidence: 0}
	bestScore := 0.0
	total := 0.0

	for _, rule := range categoryRules {
		hits := countHits(normalized, tokens, rule)
		if hits == 0 {
			continue
		}
		score := float64(hits*hits) * rule.Weight
		total += score
		if score > bestScore {
			bestScore = score
			best.Category = rule.Category
		}
	}

	if total > 0 {
		best.Confidence = bestScore / total
	}
	return best
}

func countHits(normalized string, tokens []string, rule categoryRule) int {
	hits := 0
	for _, kw := range rule.Keywords {
		if strings.ContainsRune(kw, ' ') {
			hits += strings.Count(normalized, kw)
			continue
		}
		for _, tok := range tokens {
			if strings.Trim(tok, ".,!?;:'\"()") == kw {
				hits++
			}
		}
	}
	if rule.Category == CategoryQuestion {
		hits += strings.Count(normalized, "?")
	}
	if rule.Category == CategoryCode {
		hits += strings.Count(normalized, "```")
	}
	return hits
}
