package memory

// Default retrieval parameters.
const (
	DefaultTopK         = 2
	DefaultMinRelevance = 0.1
)

// Index retrieves the memories most relevant to a message.
type Index struct {
	ranker       *Ranker
	minRelevance float64
}

// NewIndex creates an Index. A negative minRelevance selects DefaultMinRelevance.
func NewIndex(minRelevance float64) *Index {
	if minRelevance < 0 {
		minRelevance = DefaultMinRelevance
	}
	return &Index{ranker: NewRanker(), minRelevance: minRelevance}
}

// Retrieve returns at most k memory texts relevant to query, best first.
// k <= 0 selects DefaultTopK.
func (ix *Index) Retrieve(query string, memories []string, k int) []string {
	if k <= 0 {
		k = DefaultTopK
	}
	ranked := ix.ranker.Rank(query, memories, ix.minRelevance)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Text
	}
	return out
}
