package linking

import (
	"fmt"
	"html"
	"regexp"

	"github.com/ricirt/autoblog/internal/domain"
)

var (
	// paragraphRe matches a <p> element, with or without attributes, but not
	// other tags starting with p such as <pre> or <param>.
	paragraphRe = regexp.MustCompile(`(?is)(<p(?:\s[^>]*)?>)(.*?)(</p\s*>)`)
	anchorRe    = regexp.MustCompile(`(?i)<a[\s>]`)
	markupRe    = regexp.MustCompile(`<[^>]*>|&[#a-zA-Z0-9]+;`)
)

// linkFirstOccurrence wraps the first occurrence of keyword in the text of
// the first link-free paragraph that contains it. The matched text keeps its
// original casing.
func linkFirstOccurrence(body, keyword string, target domain.Candidate) (string, bool) {
	for _, m := range paragraphRe.FindAllStringSubmatchIndex(body, -1) {
		start, end := m[4], m[5]
		inner := body[start:end]
		if anchorRe.MatchString(inner) {
			continue
		}
		pos := indexInText(inner, keyword)
		if pos < 0 {
			continue
		}

		at := start + pos
		link := fmt.Sprintf(`<a href="%s" title="%s">%s</a>`,
			html.EscapeString(target.URL), html.EscapeString(target.Title), body[at:at+len(keyword)])
		return body[:at] + link + body[at+len(keyword):], true
	}
	return body, false
}

// indexInText returns the byte offset of keyword in s, ignoring matches
// inside tags or character references, or -1.
func indexInText(s, keyword string) int {
	offset := 0
	spans := append(markupRe.FindAllStringIndex(s, -1), []int{len(s), len(s)})
	for _, span := range spans {
		if i := indexFoldASCII(s[offset:span[0]], keyword); i >= 0 {
			return offset + i
		}
		offset = span[1]
	}
	return -1
}

// indexFoldASCII finds lower-case ASCII keyword in s ignoring ASCII case.
func indexFoldASCII(s, keyword string) int {
	for i := 0; i+len(keyword) <= len(s); i++ {
		if hasPrefixFoldASCII(s[i:], keyword) {
			return i
		}
	}
	return -1
}

func hasPrefixFoldASCII(s, keyword string) bool {
	for j := 0; j < len(keyword); j++ {
		c := s[j]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != keyword[j] {
			return false
		}
	}
	return true
}
