package memory

import (
	"fmt"
	"strings"
	"testing"
)

func TestRanker_Score(t *testing.T) {
	r := NewRanker()
	tests := []struct {
		query, memory string
		want          float64
	}{
		{"the lake", "We met at the lake", 1},
		{"our first day at the lake", "We met at the lake", 0.5},
		{"Lake", "lake", 1},
		{"hello", "goodbye", 0},
		{"", "anything", 0},
		// Duplicates count once on both sides.
		{"lake lake", "lake", 1},
	}
	for _, tt := range tests {
		if got := r.Score(tt.query, tt.memory); got != tt.want {
			t.Errorf("Score(%q, %q) = %f, want %f", tt.query, tt.memory, got, tt.want)
		}
	}
}

func TestRanker_RankSortsByScore(t *testing.T) {
	memories := []string{
		"we went to the market",
		"the lake at sunset with you",
		"you and the lake at sunset",
	}
	ranked := NewRanker().Rank("the lake at sunset", memories, 0.1)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked, got %d", len(ranked))
	}
	if ranked[0].Index != 1 || ranked[1].Index != 2 {
		t.Errorf("unexpected order: %+v", ranked)
	}
	if ranked[2].Index != 0 {
		t.Errorf("expected market memory last, got %+v", ranked[2])
	}
}

func TestIndex_RetrieveTieBreakKeepsAuthoringOrder(t *testing.T) {
	memories := []string{
		"first: rain on the roof",
		"second: rain on the window",
		"third: rain in the garden",
	}
	got := NewIndex(DefaultMinRelevance).Retrieve("rain", memories, 2)
	want := []string{memories[0], memories[1]}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIndex_RetrieveDropsLowRelevance(t *testing.T) {
	// One of eleven query tokens overlaps: 1/11 < 0.1.
	query := "a b c d e f g h i j lake"
	got := NewIndex(DefaultMinRelevance).Retrieve(query, []string{"the lake"}, 2)
	if len(got) != 0 {
		t.Errorf("expected no results below threshold, got %q", got)
	}

	// Exactly at the threshold is also dropped.
	query = "a b c d e f g h i lake"
	got = NewIndex(DefaultMinRelevance).Retrieve(query, []string{"the lake"}, 2)
	if len(got) != 0 {
		t.Errorf("expected score == threshold to be dropped, got %q", got)
	}
}

func TestIndex_RetrieveDefaultK(t *testing.T) {
	memories := []string{"rain one", "rain two", "rain three"}
	if got := NewIndex(-1).Retrieve("rain", memories, 0); len(got) != DefaultTopK {
		t.Errorf("expected %d results, got %d", DefaultTopK, len(got))
	}
}

func TestIndex_RetrieveBoundAndOverlap(t *testing.T) {
	memories := []string{
		"We met on July 11th at the lake",
		"You laughed at my terrible jokes",
		"The lake was cold but you jumped in anyway",
		"We watched the stars from the roof",
		"You said you would always remember that night",
	}
	queries := []string{
		"do you remember the lake",
		"the stars",
		"nothing matches here",
		"",
		strings.Repeat("lake ", 100),
		"you you you",
	}
	ix := NewIndex(DefaultMinRelevance)
	r := NewRanker()
	for _, q := range queries {
		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("%q/k=%d", q, k), func(t *testing.T) {
				got := ix.Retrieve(q, memories, k)
				if len(got) > k {
					t.Fatalf("returned %d items for k=%d", len(got), k)
				}
				for _, m := range got {
					if r.Score(q, m) == 0 {
						t.Errorf("returned %q with zero overlap", m)
					}
				}
			})
		}
	}
}

func TestRanker_RankBySimilarity(t *testing.T) {
	items := []MemoryItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	sim := map[string]float64{"a": 0.2, "b": 0.9, "c": 0.2}

	ranked := NewRanker().RankBySimilarity(items, sim)
	if ranked[0].ID != "b" || ranked[1].ID != "a" || ranked[2].ID != "c" {
		t.Errorf("unexpected order: %+v", ranked)
	}
	if items[0].ID != "a" {
		t.Error("input slice should not be reordered")
	}
}
