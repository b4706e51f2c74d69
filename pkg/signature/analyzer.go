package signature

import (
	"strings"
	"unicode"
)

// Lexicons per category. Single words match on token boundaries,
// multi-word entries match as phrases over the normalized text.
var categoryLexicons = map[PatternCategory][]string{
	CategoryOpening: {
		"hello", "hi there", "greetings", "hey", "good morning",
		"good afternoon", "welcome", "dear",
	},
	CategoryClosing: {
		"regards", "best wishes", "cheers", "let me know",
		"hope this helps", "feel free", "happy to help", "good luck",
	},
	CategoryHedging: {
		"perhaps", "maybe", "might", "possibly", "could be",
		"i think", "i believe", "it seems", "seems like", "likely",
		"presumably", "arguably", "it appears", "not sure", "roughly",
		"i would say", "probably",
	},
	CategoryFormalMarker: {
		"furthermore", "moreover", "regarding", "accordingly",
		"kindly", "pursuant", "with respect to", "in accordance",
		"nevertheless", "notwithstanding", "shall",
	},
	CategoryCasualMarker: {
		"gonna", "wanna", "yeah", "yep", "cool", "stuff", "kinda",
		"sorta", "btw", "ok so", "anyway", "no worries",
	},
	CategoryHumorMarker: {
		"haha", "lol", "funny", "joke", "pun", ":)", ":d", "😂", "😄",
	},
	CategoryTonePositive: {
		"great", "excellent", "wonderful", "happy", "glad", "thanks",
		"thank you", "awesome", "fantastic", "love", "delighted",
		"pleased",
	},
	CategoryToneNegative: {
		"unfortunately", "problem", "issue", "error", "fail",
		"cannot", "wrong", "bad", "worse", "difficult", "sadly",
	},
	CategoryReasoning: {
		"because", "therefore", "thus", "hence", "consequently",
		"since", "as a result", "which means", "so that", "given that",
		"it follows",
	},
	CategoryEmphasis: {
		"very", "really", "absolutely", "definitely", "certainly",
		"extremely", "crucial", "critical", "must", "always", "never",
	},
}

// Analyze counts pattern occurrences in a single text. It is a pure
// function: identical input always yields identical counts. Empty or
// whitespace-only input yields zero counts and zero tokens.
func Analyze(text string) PatternCounts {
	pc := PatternCounts{Counts: make(map[PatternCategory]int, len(Categories()))}
	for _, cat := range Categories() {
		pc.Counts[cat] = 0
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return pc
	}

	normalized := normalize(trimmed)
	tokens := strings.Fields(normalized)
	pc.Tokens = len(tokens)

	for _, cat := range Categories() {
		lexicon, ok := categoryLexicons[cat]
		if !ok {
			continue
		}
		for _, entry := range lexicon {
			if strings.ContainsRune(entry, ' ') {
				pc.Counts[cat] += countPhrase(normalized, entry)
			} else {
				pc.Counts[cat] += countToken(tokens, entry)
			}
		}
	}

	pc.Counts[CategoryStructureList] = countListLines(trimmed)
	pc.Counts[CategoryStructureCode] = countCodeMarks(trimmed)
	pc.Counts[CategoryEmphasis] += strings.Count(trimmed, "!") + strings.Count(trimmed, "**")

	return pc
}

// BuildSignature analyzes a corpus of texts and produces a fresh
// signature for the persona. Blank texts are skipped; a corpus with no
// usable text degrades to the zero signature rather than failing.
func BuildSignature(personaID string, texts ...string) *BehaviorSignature {
	sig := Zero(personaID)
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		sig = sig.Merge(Analyze(text))
	}
	// Merge bumps the version per sample; a freshly built signature
	// starts at version 1 regardless of corpus size.
	sig.Version = 1
	return sig
}

func normalize(text string) string {
	return strings.ToLower(text)
}

func countToken(tokens []string, word string) int {
	count := 0
	for _, tok := range tokens {
		if strings.TrimFunc(tok, isTokenTrim) == word {
			count++
		}
	}
	return count
}

func countPhrase(normalized, phrase string) int {
	return strings.Count(normalized, phrase)
}

func isTokenTrim(r rune) bool {
	return unicode.IsPunct(r) && r != ':' && r != ')'
}

func countListLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			count++
			continue
		}
		if len(trimmed) > 2 && trimmed[0] >= '0' && trimmed[0] <= '9' &&
			(trimmed[1] == '.' || trimmed[1] == ')') {
			count++
		}
	}
	return count
}

func countCodeMarks(text string) int {
	fences := strings.Count(text, "```")
	inline := (strings.Count(text, "`") - fences*3) / 2
	if inline < 0 {
		inline = 0
	}
	return fences/2 + inline
}
