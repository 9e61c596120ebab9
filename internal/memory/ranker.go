package memory

import (
	"sort"
	"strings"
)

// Ranker scores memories against a query by lexical overlap.
type Ranker struct{}

// NewRanker creates a new Ranker.
func NewRanker() *Ranker { return &Ranker{} }

// RankedMemory pairs a memory text with its relevance score and original index.
type RankedMemory struct {
	Text  string
	Index int
	Score float64
}

// Score returns |q ∩ m| / |q| over lower-cased whitespace tokens, each side
// treated as a set. An empty query scores 0.
func (r *Ranker) Score(query, memory string) float64 {
	q := tokenSet(query)
	if len(q) == 0 {
		return 0
	}
	m := tokenSet(memory)
	overlap := 0
	for tok := range q {
		if _, ok := m[tok]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(q))
}

// Rank scores every memory, drops those scoring <= minScore and sorts the rest
// by descending score. Equal scores keep authoring order.
func (r *Ranker) Rank(query string, memories []string, minScore float64) []RankedMemory {
	ranked := make([]RankedMemory, 0, len(memories))
	for i, m := range memories {
		s := r.Score(query, m)
		if s <= minScore || s == 0 {
			continue
		}
		ranked = append(ranked, RankedMemory{Text: m, Index: i, Score: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// RankBySimilarity orders items by the similarity looked up in simByID,
// highest first. Used for vector recall results.
func (r *Ranker) RankBySimilarity(items []MemoryItem, simByID map[string]float64) []MemoryItem {
	out := make([]MemoryItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return simByID[out[i].ID] > simByID[out[j].ID]
	})
	return out
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
