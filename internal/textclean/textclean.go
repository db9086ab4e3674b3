// Package textclean normalizes a remote document body before it is written
// to disk by PullEngine.
package textclean

import "regexp"

var (
	multiBlankRE  = regexp.MustCompile(`\n{3,}`)
	trailingBSRE  = regexp.MustCompile(`\\+\n`)
)

// Normalize collapses runs of three or more newlines to a single blank
// line, strips stray backslashes immediately before a newline, and trims
// leading/trailing whitespace.
func Normalize(body string) string {
	body = multiBlankRE.ReplaceAllString(body, "\n\n")
	body = trailingBSRE.ReplaceAllString(body, "\n")
	return trim(body)
}

func trim(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
