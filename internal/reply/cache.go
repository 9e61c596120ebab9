package reply

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/heartline/heartline/internal/memory"
)

// Cache defaults.
const (
	DefaultCacheSize  = 1000
	DefaultEvictBatch = 100
)

// fifoCache is a bounded map that evicts a batch of the oldest-inserted
// entries when an insert would exceed its capacity. Reads do not change
// eviction order.
type fifoCache struct {
	mu      sync.Mutex
	max     int
	batch   int
	entries map[string]Result
	order   []string
}

func newFIFOCache(max, batch int) *fifoCache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	if batch <= 0 {
		batch = DefaultEvictBatch
	}
	if batch > max {
		batch = max
	}
	return &fifoCache{max: max, batch: batch, entries: make(map[string]Result, max)}
}

func (c *fifoCache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *fifoCache) Put(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = r
		return
	}
	if len(c.entries) >= c.max {
		for _, old := range c.order[:c.batch] {
			delete(c.entries, old)
		}
		c.order = append(c.order[:0:0], c.order[c.batch:]...)
	}
	c.entries[key] = r
	c.order = append(c.order, key)
}

func (c *fifoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *fifoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Result, c.max)
	c.order = nil
}

type keyTurn struct {
	Role memory.Role `json:"role"`
	Text string      `json:"text"`
}

type keyContext struct {
	ProfileID   string             `json:"profile_id"`
	ProfileName string             `json:"profile_name"`
	AddressedAs string             `json:"addressed_as"`
	Traits      map[string]float64 `json:"traits"`
	History     []keyTurn          `json:"history"`
}

// cacheKey hashes the trimmed message with a canonical encoding of the
// context. encoding/json sorts map keys, so equal contexts encode equally.
func cacheKey(message string, rc Context) string {
	kc := keyContext{History: make([]keyTurn, len(rc.History))}
	if p := rc.Profile; p != nil {
		kc.ProfileID = p.ID
		kc.ProfileName = p.Name
		kc.AddressedAs = p.AddressedAs
		kc.Traits = p.Traits
	}
	for i, t := range rc.History {
		kc.History[i] = keyTurn{Role: t.Role, Text: t.Text}
	}
	b, _ := json.Marshal(kc)

	h := sha256.New()
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
