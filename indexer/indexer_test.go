package indexer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cats/core"
)

func TestNormalizeSimple(t *testing.T) {
	assert.Equal(t, "sea", Normalize("sea."))
}

func TestNormalizeComplex(t *testing.T) {
	in := "<1921___.bg three cäts!Left__hôme(early)-In.Two.CARS really?"
	want := "1921 bg three cäts left hôme early in two cars really"

	assert.Equal(t, want, Normalize(in))
}

func TestNormalizeKeepsNonASCIILetters(t *testing.T) {
	assert.Equal(t, "woe to you o örth ánd sea", Normalize("Woe to you o örth ánd sea."))
	assert.Equal(t, "مساعدة في تصليح كود", Normalize("مساعدة في تصليح كود"))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("  .,-!  "))
}

func TestSubstringsDepth1(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"hello", "indexed", "words"},
		Substrings("hello indexed words", 1))
}

func TestSubstringsDepth2(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"hello", "indexed", "words", "hello indexed", "indexed words"},
		Substrings("hello indexed words", 2))
}

func TestSubstringsDepthBeyondWordCount(t *testing.T) {
	// Depth 5 on a 3-word string yields the same set as depth 3.
	assert.ElementsMatch(t,
		Substrings("hello indexed words", 3),
		Substrings("hello indexed words", 5))
}

func TestSubstringsFiveWordsDepth3(t *testing.T) {
	want := []string{
		"hello", "indexed", "words", "of", "yore",
		"hello indexed", "indexed words", "words of", "of yore",
		"hello indexed words", "indexed words of", "words of yore",
	}
	assert.ElementsMatch(t, want, Substrings("hello indexed words of yore", 3))
}

func TestSubstringsDeduplicates(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"tick", "tick tick"},
		Substrings("tick tick tick", 2))
}

func TestSubstringsEmpty(t *testing.T) {
	assert.Empty(t, Substrings("", 3))
}

func TestBuildEntries(t *testing.T) {
	si := New(2)
	ts := time.Date(2012, 12, 24, 18, 12, 33, 0, time.UTC)
	d := core.NewDatum("the_kids", ts, "log_info", "Santa is comming")

	entries := si.BuildEntries(d, "magic_key_123")
	require.Len(t, entries, 5)

	var substrings []string
	for _, e := range entries {
		substrings = append(substrings, e.Substring)
		assert.Equal(t, "the_kids", e.SourceID)
		assert.Equal(t, "log_info", e.DataName)
		assert.Equal(t, "magic_key_123", e.BlobRowKey)
		assert.WithinDuration(t, ts, e.Timestamp, 0)
	}
	assert.ElementsMatch(t,
		[]string{"santa", "is", "comming", "santa is", "is comming"},
		substrings)
}

func TestBuildEntriesPrefersStrForIndex(t *testing.T) {
	si := New(1)
	d := core.NewDatum("src", time.Now(), "img", "\x89PNG not text")
	d.StrForIndex = "a walrus on a beach"

	entries := si.BuildEntries(d, "key")
	var substrings []string
	for _, e := range entries {
		substrings = append(substrings, e.Substring)
	}
	assert.ElementsMatch(t, []string{"a", "walrus", "on", "beach"}, substrings)
}

func TestNewClampsDepth(t *testing.T) {
	assert.Equal(t, DefaultDepth, New(0).Depth())
	assert.Equal(t, 3, New(3).Depth())
}
