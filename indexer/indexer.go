// Package indexer produces the word n-gram substrings that key the
// inverted blob index. It can index any blob that is valid UTF-8 text;
// for binary payloads callers build index entries by hand instead.
package indexer

import (
	"regexp"
	"strings"

	"cats/core"
)

// DefaultDepth is the default maximum number of adjacent words joined into
// one indexable substring.
const DefaultDepth = 5

// punctRe matches the separator characters that normalization replaces
// with spaces. Non-ASCII letters pass through untouched.
var punctRe = regexp.MustCompile(`[,.\-?=!@#$()<>_\[\]'"´:]`)

// StringIndexer turns free text into index substrings. It is a pure value
// producer; it never talks to the storage engine.
type StringIndexer struct {
	depth int
}

// New returns an indexer with the given n-gram depth. Depths below one fall
// back to DefaultDepth.
func New(depth int) *StringIndexer {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &StringIndexer{depth: depth}
}

// Depth reports the configured n-gram depth.
func (si *StringIndexer) Depth() int {
	return si.depth
}

// Normalize lowercases s, replaces the separator set with spaces, collapses
// whitespace runs and trims. The result is a clean base for both index
// construction and query-side key building.
func Normalize(s string) string {
	r := punctRe.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(r), " ")
}

// Substrings returns every whitespace-joined n-gram of s for n = 1..depth,
// deduplicated. An empty or all-separator input yields an empty slice; a
// non-empty input always contains each single token.
func Substrings(s string, depth int) []string {
	words := strings.Fields(s)

	seen := make(map[string]struct{})
	var result []string
	for d := 0; d < depth; d++ {
		for i := 0; i+d < len(words); i++ {
			sub := strings.Join(words[i:i+d+1], " ")
			if _, dup := seen[sub]; dup {
				continue
			}
			seen[sub] = struct{}{}
			result = append(result, sub)
		}
	}
	return result
}

// BuildEntries expands a datum into one index entry per substring of its
// indexable text, all pointing at the given blob row key and sharing the
// datum's timestamp.
func (si *StringIndexer) BuildEntries(d *core.TimestampedDatum, blobRowKey string) []*core.BlobIndexEntry {
	normalized := Normalize(d.IndexBase())

	entries := make([]*core.BlobIndexEntry, 0, len(normalized)/4)
	for _, sub := range Substrings(normalized, si.depth) {
		entries = append(entries, &core.BlobIndexEntry{
			SourceID:   d.SourceID,
			DataName:   d.DataName,
			Substring:  sub,
			Timestamp:  d.Timestamp,
			BlobRowKey: blobRowKey,
		})
	}
	return entries
}
