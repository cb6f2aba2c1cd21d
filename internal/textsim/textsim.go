// Package textsim provides the lexical similarity measure used to detect
// near-duplicate memories. Common stop-words are down-weighted so that two
// texts overlapping only on filler words score low, while overlap on
// meaningful terms pushes the score toward 1.
package textsim

import "strings"

// stopWeight is the weight of a stop-word token relative to a content
// token's weight of 1.
const stopWeight = 0.1

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "can": true,
	"to": true, "of": true, "in": true, "for": true, "on": true, "with": true,
	"at": true, "by": true, "from": true, "up": true, "about": true, "into": true,
	"through": true, "during": true, "before": true, "after": true, "above": true,
	"below": true, "between": true, "under": true, "again": true, "further": true,
	"then": true, "once": true, "here": true, "there": true, "when": true,
	"where": true, "why": true, "how": true, "all": true, "each": true,
	"few": true, "more": true, "most": true, "other": true, "some": true,
	"such": true, "no": true, "nor": true, "not": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "just": true, "and": true, "but": true, "if": true,
	"or": true, "because": true, "as": true, "until": true, "while": true,
	"this": true, "that": true, "these": true, "those": true, "am": true,
	"its": true, "it": true, "i": true, "me": true, "my": true, "you": true,
	"your": true, "he": true, "she": true, "we": true, "they": true,
	"what": true, "which": true, "who": true, "whom": true,
}

// IsStopWord reports whether w (lowercase) is a common stop-word.
func IsStopWord(w string) bool {
	return stopWords[w]
}

// Tokenize lowercases s and splits it into punctuation-trimmed words.
func Tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,?!:;\"'()[]{}`")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokenWeights(s string) map[string]float64 {
	weights := make(map[string]float64)
	for _, t := range Tokenize(s) {
		w := 1.0
		if stopWords[t] {
			w = stopWeight
		}
		weights[t] = w
	}
	return weights
}

// Similarity computes a weighted Dice coefficient between two strings in
// [0, 1]. Tokens appearing in both contribute twice their weight against
// the total weight of both token sets; stop-words contribute almost
// nothing, so near-1 scores require overlap on content words.
func Similarity(a, b string) float64 {
	wa := tokenWeights(a)
	wb := tokenWeights(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	var shared, totalA, totalB float64
	for t, w := range wa {
		totalA += w
		if _, ok := wb[t]; ok {
			shared += w
		}
	}
	for _, w := range wb {
		totalB += w
	}

	if totalA+totalB == 0 {
		return 0
	}
	return 2 * shared / (totalA + totalB)
}
