package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/heartline/heartline/internal/adapter"
)

// MaxExtractedMemories caps the memories kept from one backstory.
const MaxExtractedMemories = 15

var (
	headingRe   = regexp.MustCompile(`#+\s*`)
	emphasisRe  = regexp.MustCompile(`\*+`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
	nameBeforeI = regexp.MustCompile(`\b([A-Z][a-z]+)\s+and\s+[Ii]\b`)
	nameAfterI  = regexp.MustCompile(`\b[Ii]\s+and\s+([A-Z][a-z]+)\b`)
)

var (
	narrativeVerbs = []string{"remember", "was", "were", "had", "did", "felt", "said"}
	skipMarkers    = []string{"memory", "timeline"}
	pronouns       = map[string]bool{"i": true, "me": true, "my": true, "we": true, "us": true, "our": true}
)

// traitKeywords maps a trait to the words that reveal it in memories.
var traitKeywords = map[string][]string{
	"romantic":  {"love", "heart", "romantic", "kiss", "hug"},
	"caring":    {"care", "comfort", "support", "help", "worry"},
	"playful":   {"laugh", "joke", "fun", "play", "tease"},
	"emotional": {"feel", "emotion", "cry", "sensitive"},
	"loyal":     {"loyal", "faithful", "devoted", "committed"},
	"nostalgic": {"remember", "memory", "past", "miss"},
}

var emotionKeywords = map[string][]string{
	"love":       {"love", "heart", "adore", "cherish", "romantic", "affection"},
	"joy":        {"happy", "smile", "laugh", "joy", "excited", "wonderful"},
	"sadness":    {"sad", "cry", "hurt", "pain", "miss", "lonely", "broke"},
	"excitement": {"excited", "thrilled", "amazing", "incredible", "fantastic"},
	"nostalgia":  {"remember", "memory", "past", "used to", "back then"},
}

// ExtractMemories picks narrative sentences out of backstory text. Markdown
// headings and emphasis are stripped first. A sentence is kept when it is
// longer than 25 characters, mentions a narrative verb and carries no
// section marker.
func ExtractMemories(backstory string) []string {
	text := headingRe.ReplaceAllString(backstory, "")
	text = emphasisRe.ReplaceAllString(text, "")

	var out []string
	for _, s := range sentenceRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) <= 25 {
			continue
		}
		lower := strings.ToLower(s)
		if containsAny(lower, skipMarkers) || !containsAny(lower, narrativeVerbs) {
			continue
		}
		out = append(out, s)
		if len(out) == MaxExtractedMemories {
			break
		}
	}
	return out
}

// ExtractTraits derives personality traits from memories, each with weight
// 1.0. Without any signal the profile is loving and caring.
func ExtractTraits(memories []string) map[string]float64 {
	text := strings.ToLower(strings.Join(memories, " "))
	traits := make(map[string]float64)
	for trait, words := range traitKeywords {
		if containsAny(text, words) {
			traits[trait] = 1.0
		}
	}
	if len(traits) == 0 {
		traits["loving"] = 1.0
		traits["caring"] = 1.0
	}
	return traits
}

// ExtractAddressedAs finds the user's name from "X and I" or "I and X"
// phrasing. It returns "" when no name is found.
func ExtractAddressedAs(backstory string) string {
	for _, re := range []*regexp.Regexp{nameBeforeI, nameAfterI} {
		for _, m := range re.FindAllStringSubmatch(backstory, -1) {
			name := m[1]
			if name != "" && !pronouns[strings.ToLower(name)] {
				return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
			}
		}
	}
	return ""
}

// AnalyzeEmotions counts emotion keywords in text and normalizes the counts
// so they sum to 1 (all zero when nothing matches).
func AnalyzeEmotions(text string) EmotionalProfile {
	lower := strings.ToLower(text)
	counts := make(map[string]int, len(emotionKeywords))
	total := 0
	for emotion, words := range emotionKeywords {
		for _, w := range words {
			n := strings.Count(lower, w)
			counts[emotion] += n
			total += n
		}
	}
	if total == 0 {
		total = 1
	}
	out := make(EmotionalProfile, len(counts))
	for emotion, n := range counts {
		out[emotion] = float64(n) / float64(total)
	}
	return out
}

// BuildProfile derives a complete Profile from a name and backstory.
// addressedAs overrides name extraction when non-empty.
func BuildProfile(name, description, backstory, addressedAs string, tags []string) Profile {
	texts := ExtractMemories(backstory)
	if addressedAs == "" {
		addressedAs = ExtractAddressedAs(backstory)
	}
	if addressedAs == "" {
		addressedAs = DefaultAddressedAs
	}

	items := make([]MemoryItem, len(texts))
	for i, t := range texts {
		items[i] = MemoryItem{Text: t, Position: i}
	}

	return Profile{
		Name:        name,
		Description: description,
		Backstory:   backstory,
		AddressedAs: addressedAs,
		Tags:        tags,
		Traits:      ExtractTraits(texts),
		Emotions:    AnalyzeEmotions(backstory),
		Memories:    items,
	}
}

// extractCandidate is the JSON shape returned by the extraction prompt.
type extractCandidate struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ExtractMemoriesWithModel asks a model to pick memorable moments from the
// backstory. It returns nil, nil when the model's output has nothing usable,
// so callers can fall back to ExtractMemories.
func ExtractMemoriesWithModel(ctx context.Context, llm adapter.LLMAdapter, backstory string, maxExtracts int) ([]MemoryItem, error) {
	if maxExtracts <= 0 {
		maxExtracts = MaxExtractedMemories
	}

	prompt := fmt.Sprintf(`From the backstory below, list the specific shared moments a companion should remember: events, places, dates, things that were said.

Return ONLY a compact JSON array. Each element: {"content": "one sentence", "tags": ["short", "labels"]}.
If nothing qualifies, return []. No prose, no markdown.
Maximum %d items.

--- BACKSTORY ---
%s
--- END ---`, maxExtracts, trimText(backstory, 6000))

	raw, err := llm.Complete(ctx, adapter.CompletionRequest{
		UserMessage: prompt,
		MaxTokens:   1024,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	return parseExtractionJSON(raw, maxExtracts), nil
}

// parseExtractionJSON extracts memory items from a model's JSON output.
// Lenient: searches for the first '[' and last ']' to handle models that
// wrap the array in extra prose or markdown fences.
func parseExtractionJSON(raw string, max int) []MemoryItem {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return nil
	}

	slice := raw[start : end+1]

	// Some small models emit `["content": ...` (missing `{` on the first element).
	if len(slice) > 1 && slice[1] == '"' {
		slice = "[{" + slice[1:]
	}

	var candidates []extractCandidate
	if err := json.Unmarshal([]byte(slice), &candidates); err != nil {
		return nil
	}

	var out []MemoryItem
	for _, c := range candidates {
		if len(out) >= max {
			break
		}
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		out = append(out, MemoryItem{Text: content, Tags: c.Tags, Position: len(out)})
	}
	return out
}

// trimText caps s at approximately maxChars characters, trimming at a
// sentence boundary if possible.
func trimText(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	trimmed := s[:maxChars]
	if idx := strings.LastIndexAny(trimmed, ".!?\n"); idx > maxChars/2 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + " [...]"
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
