package textsim

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello, World! (a test)")
	want := []string{"hello", "world", "a", "test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if len(Tokenize("  ... !! ")) != 0 {
		t.Error("expected pure punctuation to yield no tokens")
	}
}

func TestIsStopWord(t *testing.T) {
	if !IsStopWord("the") {
		t.Error("expected 'the' to be a stop-word")
	}
	if IsStopWord("pointer") {
		t.Error("expected 'pointer' not to be a stop-word")
	}
}

func TestSimilarityIdentical(t *testing.T) {
	s := Similarity("fixed the cache eviction bug", "fixed the cache eviction bug")
	if s != 1.0 {
		t.Errorf("expected 1.0 for identical texts, got %v", s)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	s := Similarity("cache eviction policy", "parser grammar tokens")
	if s != 0 {
		t.Errorf("expected 0 for disjoint texts, got %v", s)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if Similarity("", "anything") != 0 {
		t.Error("expected 0 when one side is empty")
	}
	if Similarity("", "") != 0 {
		t.Error("expected 0 when both sides are empty")
	}
}

func TestSimilarityStopWordsDownWeighted(t *testing.T) {
	// Overlap only on filler words scores near zero.
	fillerOnly := Similarity("the cache is in the pool", "the parser is in the lexer")

	// Overlap on meaningful words scores high.
	contentful := Similarity("cache eviction policy", "cache eviction strategy")

	if fillerOnly >= 0.3 {
		t.Errorf("expected filler-only overlap to score low, got %v", fillerOnly)
	}
	if contentful <= 0.5 {
		t.Errorf("expected content overlap to score high, got %v", contentful)
	}
	if fillerOnly >= contentful {
		t.Errorf("expected content overlap (%v) above filler overlap (%v)", contentful, fillerOnly)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := "fixed nil pointer crash in the profile endpoint"
	b := "resolved a nil pointer dereference in profiles"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("expected similarity to be symmetric")
	}
}
