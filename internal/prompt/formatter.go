package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heartline/heartline/internal/memory"
)

// Formatter renders persona prompt sections into prompt-ready strings.
type Formatter struct{}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter { return &Formatter{} }

// FormatPersona renders the character block: who the companion is, who
// they are talking to, and their traits.
func (f *Formatter) FormatPersona(p *memory.Profile) string {
	var b strings.Builder
	name := "your companion"
	if p != nil && p.Name != "" {
		name = p.Name
	}
	fmt.Fprintf(&b, "You are %s, talking with someone you call %q.\n", name, p.Address())
	if p == nil {
		return b.String()
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "About you: %s\n", p.Description)
	}
	if traits := f.FormatTraits(p.Traits); traits != "" {
		fmt.Fprintf(&b, "Your personality: %s\n", traits)
	}
	return b.String()
}

// FormatTraits lists present traits, strongest first.
func (f *Formatter) FormatTraits(traits map[string]float64) string {
	names := make([]string, 0, len(traits))
	for name, w := range traits {
		if w > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if traits[names[i]] != traits[names[j]] {
			return traits[names[i]] > traits[names[j]]
		}
		return names[i] < names[j]
	})
	return strings.Join(names, ", ")
}

// FormatMemories renders memories as a markdown list under a heading.
func (f *Formatter) FormatMemories(memories []string) string {
	if len(memories) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Things you remember together\n\n")
	for _, m := range memories {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	b.WriteString("\n")
	return b.String()
}

// FormatTurn renders a single history line.
func (f *Formatter) FormatTurn(t memory.Turn, companion string) string {
	speaker := "User"
	if t.Role == memory.RoleAgent {
		speaker = companion
	}
	return fmt.Sprintf("%s: %s\n", speaker, t.Text)
}

// FormatRules returns the response-style rules appended to every prompt.
func (f *Formatter) FormatRules() string {
	var b strings.Builder
	b.WriteString("When replying:\n")
	b.WriteString("1. Stay in character and speak warmly in the first person\n")
	b.WriteString("2. Only mention shared memories listed above; never invent new ones\n")
	b.WriteString("3. Keep it to two or three sentences\n")
	b.WriteString("4. Never describe yourself as an AI or a language model\n")
	return b.String()
}
