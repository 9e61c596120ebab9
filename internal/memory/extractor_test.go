package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/heartline/heartline/internal/adapter"
)

const sampleBackstory = `# Our Story

**Mira and I** met on a rainy evening. We remember the lake where we had our first picnic together.
She said she would always love the sound of the rain on the roof.
### Timeline
The timeline was short. Ok.
We laughed so hard the night we did karaoke badly in that tiny bar!
Short one was fun.`

func TestExtractMemories(t *testing.T) {
	got := ExtractMemories(sampleBackstory)

	want := []string{
		"We remember the lake where we had our first picnic together",
		"She said she would always love the sound of the rain on the roof",
		"We laughed so hard the night we did karaoke badly in that tiny bar",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d memories, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("memory %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractMemories_SkipMarkersSurviveStripping(t *testing.T) {
	for _, m := range skipMarkers {
		text := "## Notes\nWe were talking about the " + m + " for a very long while."
		if got := ExtractMemories(text); len(got) != 0 {
			t.Errorf("marker %q: expected sentence skipped, got %q", m, got)
		}
	}
}

func TestExtractMemories_Cap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("We remember walking along the river that evening. ")
	}
	if got := ExtractMemories(sb.String()); len(got) != MaxExtractedMemories {
		t.Errorf("expected %d memories, got %d", MaxExtractedMemories, len(got))
	}
}

func TestExtractTraits(t *testing.T) {
	traits := ExtractTraits([]string{"We laughed and shared a hug", "I remember the past"})
	for _, want := range []string{"romantic", "playful", "nostalgic"} {
		if traits[want] != 1.0 {
			t.Errorf("expected trait %q, got %v", want, traits)
		}
	}
	if _, ok := traits["loyal"]; ok {
		t.Error("unexpected loyal trait")
	}
}

func TestExtractTraits_Defaults(t *testing.T) {
	traits := ExtractTraits(nil)
	if len(traits) != 2 || traits["loving"] != 1.0 || traits["caring"] != 1.0 {
		t.Errorf("expected default traits, got %v", traits)
	}
}

func TestExtractAddressedAs(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Mira and I went to the fair.", "Mira"},
		{"Back then I and Jonah were inseparable.", "Jonah"},
		{"We and I", ""},
		{"no names here", ""},
	}
	for _, tt := range tests {
		if got := ExtractAddressedAs(tt.text); got != tt.want {
			t.Errorf("ExtractAddressedAs(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestAnalyzeEmotions(t *testing.T) {
	e := AnalyzeEmotions("I love you. I remember when we used to laugh.")
	// love: love=1; joy: laugh=1; nostalgia: remember, used to = 2.
	if e["nostalgia"] != 0.5 {
		t.Errorf("nostalgia: got %f, want 0.5", e["nostalgia"])
	}
	if e["love"] != 0.25 || e["joy"] != 0.25 {
		t.Errorf("unexpected weights: %v", e)
	}

	empty := AnalyzeEmotions("nothing")
	for k, v := range empty {
		if v != 0 {
			t.Errorf("%s: expected 0, got %f", k, v)
		}
	}
}

func TestBuildProfile(t *testing.T) {
	p := BuildProfile("Aria", "a gentle soul", sampleBackstory, "", []string{"rain"})
	if p.AddressedAs != "Mira" {
		t.Errorf("addressed as: got %q, want Mira", p.AddressedAs)
	}
	if len(p.Memories) != 3 {
		t.Fatalf("expected 3 memories, got %d", len(p.Memories))
	}
	for i, m := range p.Memories {
		if m.Position != i {
			t.Errorf("memory %d has position %d", i, m.Position)
		}
	}
	if !p.HasTrait("playful") {
		t.Errorf("expected playful trait, got %v", p.Traits)
	}

	p2 := BuildProfile("Aria", "", "nothing to see", "", nil)
	if p2.AddressedAs != DefaultAddressedAs {
		t.Errorf("expected default address, got %q", p2.AddressedAs)
	}

	p3 := BuildProfile("Aria", "", sampleBackstory, "sunshine", nil)
	if p3.AddressedAs != "sunshine" {
		t.Errorf("explicit address should win, got %q", p3.AddressedAs)
	}
}

func TestParseExtractionJSON_ValidArray(t *testing.T) {
	raw := `[{"content": "We met at the lake", "tags": ["lake"]}, {"content": "She sang in the car"}]`
	items := parseExtractionJSON(raw, 5)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Text != "We met at the lake" || items[0].Tags[0] != "lake" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Position != 1 {
		t.Errorf("position: got %d, want 1", items[1].Position)
	}
}

func TestParseExtractionJSON_WrappedInProse(t *testing.T) {
	raw := "Here you go:\n```json\n[{\"content\": \"test\"}]\n```\nDone."
	if items := parseExtractionJSON(raw, 5); len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestParseExtractionJSON_Degrades(t *testing.T) {
	for _, raw := range []string{"no json here", "[{broken}", "[]"} {
		if items := parseExtractionJSON(raw, 5); len(items) != 0 {
			t.Errorf("%q: expected no items, got %v", raw, items)
		}
	}
}

func TestParseExtractionJSON_RespectsMaxAndSkipsEmpty(t *testing.T) {
	raw := `[{"content": ""}, {"content": "one"}, {"content": "two"}, {"content": "three"}]`
	items := parseExtractionJSON(raw, 2)
	if len(items) != 2 || items[0].Text != "one" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestTrimText(t *testing.T) {
	short := "Short text."
	if trimText(short, 100) != short {
		t.Error("short text should not be trimmed")
	}

	long := "This is a sentence. This is another sentence. This is more text that goes on and on."
	if trimmed := trimText(long, 50); len(trimmed) > 60 {
		t.Errorf("trimmed text too long: %d chars", len(trimmed))
	}
}

type stubLLM struct {
	out string
	err error
}

func (s stubLLM) Complete(context.Context, adapter.CompletionRequest) (string, error) {
	return s.out, s.err
}
func (s stubLLM) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (s stubLLM) Info() adapter.ModelInfo                              { return adapter.ModelInfo{Name: "stub"} }

func TestExtractMemoriesWithModel(t *testing.T) {
	items, err := ExtractMemoriesWithModel(context.Background(), stubLLM{out: `[{"content":"We danced in the kitchen"}]`}, "story", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Text != "We danced in the kitchen" {
		t.Errorf("unexpected items: %+v", items)
	}

	if _, err := ExtractMemoriesWithModel(context.Background(), stubLLM{err: errors.New("down")}, "story", 5); err == nil {
		t.Error("expected model error to propagate")
	}
}
