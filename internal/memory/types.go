// Package memory defines heartline's profile model and the storage, ranking
// and extraction of the memories derived from a profile's backstory.
package memory

import (
	"time"

	"github.com/heartline/heartline/internal/sentiment"
)

// DefaultAddressedAs is used when a profile names no term of address.
const DefaultAddressedAs = "love"

// Profile is a named companion persona. Content is immutable after creation;
// only LastUsedAt changes.
type Profile struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Backstory   string             `json:"backstory"`
	AddressedAs string             `json:"addressed_as"`
	Tags        []string           `json:"tags,omitempty"`
	Traits      map[string]float64 `json:"traits,omitempty"` // weight 0..1
	Emotions    EmotionalProfile   `json:"emotional_profile,omitempty"`
	Memories    []MemoryItem       `json:"memories,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	LastUsedAt  time.Time          `json:"last_used_at"`
}

// HasTrait reports whether the profile carries trait with a positive weight.
// A nil profile has no traits.
func (p *Profile) HasTrait(trait string) bool {
	if p == nil {
		return false
	}
	return p.Traits[trait] > 0
}

// Address returns the term of address, falling back to DefaultAddressedAs.
func (p *Profile) Address() string {
	if p == nil || p.AddressedAs == "" {
		return DefaultAddressedAs
	}
	return p.AddressedAs
}

// MemoryTexts returns the memory texts in authoring order.
func (p *Profile) MemoryTexts() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Memories))
	for i, m := range p.Memories {
		out[i] = m.Text
	}
	return out
}

// MemoryItem is one retrievable sentence from a profile's backstory.
type MemoryItem struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Tags     []string `json:"tags,omitempty"`
	Position int      `json:"position"`
}

// EmotionalProfile holds normalized emotion weights of a backstory.
type EmotionalProfile map[string]float64

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      Role              `json:"role"`
	Text      string            `json:"text"`
	At        time.Time         `json:"at"`
	Sentiment *sentiment.Result `json:"sentiment,omitempty"`
	Method    string            `json:"method,omitempty"`
}

// SessionSummary describes a stored conversation session.
type SessionSummary struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Turns     int       `json:"turns"`
	StartedAt time.Time `json:"started_at"`
	LastAt    time.Time `json:"last_at"`
}

// Stats summarises what's stored.
type Stats struct {
	Profiles    int
	Memories    int
	Turns       int
	Sessions    int
	LastUsed    time.Time
	DBSizeBytes int64
}
