package linking

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// stopWords are common English words that carry no topical signal.
var stopWords = toSet(
	"a", "an", "the", "and", "or", "but", "is", "are", "was", "were",
	"be", "been", "being", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "can", "shall",
	"to", "of", "in", "for", "on", "with", "at", "by", "from", "as",
	"into", "about", "like", "through", "after", "over", "between",
	"out", "up", "down", "off", "then", "than", "too", "very", "just",
	"also", "not", "no", "so", "if", "this", "that", "it", "its",
	"how", "what", "when", "where", "which", "who", "why",
	"all", "each", "every", "both", "few", "more", "most", "other",
	"some", "such", "only", "own", "same", "your", "our", "their",
	"you", "we", "they", "he", "she", "me", "him", "her", "us", "them",
	"my", "his", "get", "got", "make", "made", "one", "two", "new",
	"best", "top", "good", "great", "first", "last", "long", "way",
	"use", "used", "using", "need", "help", "know", "much", "many",
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	nonKeyword  = regexp.MustCompile(`[^a-z0-9\s]`)
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether w is excluded from keyword extraction.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// ExtractKeywords lower-cases text, strips markup, keeps only ASCII letters,
// digits and whitespace, and drops stop words. Order and duplicates are kept.
func ExtractKeywords(text string) []string {
	plain := html.UnescapeString(stripPolicy.Sanitize(text))
	plain = nonKeyword.ReplaceAllString(strings.ToLower(plain), "")

	var keywords []string
	for _, w := range strings.Fields(plain) {
		if !IsStopWord(w) {
			keywords = append(keywords, w)
		}
	}
	return keywords
}
