// Package frontmatter implements the minimal key:value header block that
// precedes the body of every synced local file. It is a YAML subset, not a
// YAML parser: exactly the contract documented in spec.md §4.1 and §6 — a
// fenced "---" block of "key: value" lines, with only the key id_outline
// given semantic meaning by the rest of the engine. Every other key is
// preserved verbatim across a read/write round-trip.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// OutlineIDKey is the only front-matter key the core engine interprets.
const OutlineIDKey = "id_outline"

// blockRE matches the first fenced "---\n...\n---\n" block at the start of
// a file's bytes, including the empty block "---\n---\n".
var blockRE = regexp.MustCompile(`(?s)^---\n(?:---\n|(.*?)\n---\n)`)

// FrontMatter is an ordered key/value mapping. Ordering is preserved so
// that writing back an unmodified mapping reproduces the same line order
// the file was read with.
type FrontMatter struct {
	keys   []string
	values map[string]string
}

// New returns an empty FrontMatter.
func New() FrontMatter {
	return FrontMatter{values: map[string]string{}}
}

// Get returns the value for key and whether it was present.
func (fm FrontMatter) Get(key string) (string, bool) {
	v, ok := fm.values[key]
	return v, ok
}

// Set assigns key to value, appending it to the key order if new.
func (fm *FrontMatter) Set(key, value string) {
	if fm.values == nil {
		fm.values = map[string]string{}
	}
	if _, exists := fm.values[key]; !exists {
		fm.keys = append(fm.keys, key)
	}
	fm.values[key] = value
}

// Keys returns the keys in their original (or insertion) order.
func (fm FrontMatter) Keys() []string {
	return append([]string(nil), fm.keys...)
}

// Len reports the number of keys.
func (fm FrontMatter) Len() int { return len(fm.keys) }

// Parse splits content into its FrontMatter and body. If content has no
// fenced block at its start, Parse returns an empty FrontMatter and a body
// equal to the full content — never an error; a missing block is the
// normal shape of a never-synced local file. One blank line directly after
// the closing fence is the separator Serialize writes and is not part of
// the body, so Parse(Serialize(fm, body)) returns body unchanged.
func Parse(content []byte) (FrontMatter, []byte) {
	loc := blockRE.FindSubmatchIndex(content)
	if loc == nil {
		return New(), content
	}

	var interior []byte
	if loc[2] >= 0 {
		interior = content[loc[2]:loc[3]]
	}
	body := bytes.TrimPrefix(content[loc[1]:], []byte("\n"))

	fm := New()
	for _, line := range strings.Split(string(interior), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		fm.Set(key, unquote(strings.TrimSpace(value)))
	}
	return fm, append([]byte(nil), body...)
}

// splitKeyValue splits a "key: value" line on the first colon.
func splitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	value = line[idx+1:]
	return key, value, true
}

// unquote strips a single layer of matched surrounding quotes ("..." or
// '...') from a trimmed value, leaving its interior untouched.
func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Serialize emits fm as a fenced "---\n...\n---\n" block followed by a
// blank line and then body. A fenced block is always emitted, even when fm
// is empty, so that the result remains a valid front-matter file.
func Serialize(fm FrontMatter, body []byte) []byte {
	var buf strings.Builder
	buf.WriteString("---\n")
	for _, k := range fm.keys {
		v, _ := fm.values[k]
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(encodeScalar(v))
		buf.WriteString("\n")
	}
	buf.WriteString("---\n")
	buf.WriteString("\n")
	buf.Write(body)
	return []byte(buf.String())
}

// encodeScalar emits v unquoted when it is a simple string scalar, or
// JSON-encoded otherwise (per spec.md §6: "simple string scalars are
// emitted unquoted; other values are JSON-encoded").
func encodeScalar(v string) string {
	if isSimpleScalar(v) {
		return v
	}
	enc, err := json.Marshal(v)
	if err != nil {
		return v
	}
	return string(enc)
}

// isSimpleScalar reports whether v can be written as a bare YAML scalar
// without quoting: non-empty, no leading/trailing whitespace, no newline,
// quote or hash anywhere, no ": " and no trailing colon (ambiguous with
// key:value), and no leading YAML indicator character.
func isSimpleScalar(v string) bool {
	if v == "" {
		return false
	}
	if strings.TrimSpace(v) != v {
		return false
	}
	if strings.ContainsAny(v, "\n\"'#") {
		return false
	}
	if strings.Contains(v, ": ") || strings.HasSuffix(v, ":") {
		return false
	}
	switch v[0] {
	case '-', '[', '{', '&', '*', '!', '|', '>', '%', '@', '`':
		return false
	}
	return true
}

// WithOutlineID returns a copy of fm with OutlineIDKey set to id, preserving
// every other key and the relative order of keys. This is the only mutation
// the core engine performs on an existing front-matter mapping (spec.md §8
// property 6: round-trip preserves all other keys and the body verbatim).
func WithOutlineID(fm FrontMatter, id string) FrontMatter {
	out := FrontMatter{
		keys:   append([]string(nil), fm.keys...),
		values: make(map[string]string, len(fm.values)+1),
	}
	for k, v := range fm.values {
		out.values[k] = v
	}
	out.Set(OutlineIDKey, id)
	return out
}
