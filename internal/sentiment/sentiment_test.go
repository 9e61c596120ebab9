package sentiment

import (
	"strings"
	"testing"
)

func TestScore_Labels(t *testing.T) {
	tests := []struct {
		text string
		want Label
	}{
		{"I love you", LabelLove},
		{"I feel so sad and broken today", LabelHurt},
		{"did you eat and sleep well?", LabelCare},
		{"I'm so happy and excited", LabelJoy},
		{"I miss you and wish you were here", LabelLonging},
		{"the sky is blue", LabelNeutral},
		{"", LabelNeutral},
	}
	for _, tt := range tests {
		got := Score(tt.text)
		if got.Label != tt.want {
			t.Errorf("Score(%q).Label = %q, want %q", tt.text, got.Label, tt.want)
		}
	}
}

func TestScore_TieBreakPriority(t *testing.T) {
	// One hurt keyword and one love keyword: hurt wins the tie.
	if got := Score("love hurts").Label; got != LabelHurt {
		t.Errorf("hurt/love tie: got %q, want hurt", got)
	}
	// One love and one joy keyword: love wins.
	if got := Score("love and joy").Label; got != LabelLove {
		t.Errorf("love/joy tie: got %q, want love", got)
	}
	// care beats longing.
	if got := Score("care wish").Label; got != LabelCare {
		t.Errorf("care/longing tie: got %q, want care", got)
	}
}

func TestScore_HighestCountWins(t *testing.T) {
	// Two joy words against one hurt word.
	if got := Score("happy happy sad").Label; got != LabelJoy {
		t.Errorf("got %q, want joy", got)
	}
}

func TestScore_SubstringMatching(t *testing.T) {
	// "careful" contains "care".
	if got := Score("be careful").Label; got != LabelCare {
		t.Errorf("got %q, want care", got)
	}
}

func TestPolarity(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"I love you", 1},
		{"I feel so sad and broken today", -1},
		{"good and bad", 0},
		{"nothing here", 0},
		{"good great sad", 1.0 / 3.0},
	}
	for _, tt := range tests {
		got := Polarity(tt.text)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Polarity(%q) = %f, want %f", tt.text, got, tt.want)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	inputs := []string{
		"I love you",
		"I feel so sad and broken today",
		strings.Repeat("miss you ", 500),
		"私はあなたを愛しています",
		"   ",
	}
	for _, in := range inputs {
		first := Score(in)
		for i := 0; i < 5; i++ {
			if got := Score(in); got != first {
				t.Fatalf("Score(%q) not deterministic: %+v vs %+v", in, got, first)
			}
		}
		if first.Polarity < -1 || first.Polarity > 1 {
			t.Errorf("polarity out of range: %f", first.Polarity)
		}
	}
}

func TestHintFor(t *testing.T) {
	tests := []struct {
		text string
		want Hint
	}{
		{"my heart is yours", HintLove},
		{"I'm so tired", HintCare},
		{"it hurts", HintHurt},
		{"what a wonderful day", HintJoy},
		{"I need you", HintLonging},
		{"promise me", HintDevotion},
		{"tell me about it", HintEmpathy},
		// Group order decides: love is checked before hurt.
		{"love hurts", HintLove},
	}
	for _, tt := range tests {
		if got := HintFor(tt.text); got != tt.want {
			t.Errorf("HintFor(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestHint_Valid(t *testing.T) {
	if !HintDevotion.Valid() {
		t.Error("devotion should be valid")
	}
	if Hint("rage").Valid() {
		t.Error("unknown hint should be invalid")
	}
}
