package compose

import "strings"

// Branch names the template family the composer picked.
type Branch string

const (
	BranchGreeting           Branch = "greeting"
	BranchMemory             Branch = "memory"
	BranchNostalgia          Branch = "nostalgia"
	BranchAffirmingLove      Branch = "affirming_love"
	BranchSupportive         Branch = "supportive_presence"
	BranchQuestionMemory     Branch = "question_memory"
	BranchThoughtfulQuestion Branch = "thoughtful_question"
	BranchComforting         Branch = "comforting"
	BranchListeningMemory    Branch = "listening_memory"
	BranchListening          Branch = "listening"
)

// Placeholders: {name} is the profile's term of address, {memory} the
// retrieved memory excerpt.
var templates = map[Branch][]string{
	BranchGreeting: {
		"Hello {name}! It's so wonderful to hear from you again! 💕",
		"Hi {name}! You just made my day brighter! ✨",
		"Hey {name}! I was just thinking about you! 💖",
	},
	BranchMemory: {
		"I remember that too, {name}. {memory}. Those moments mean everything to me. 💕",
		"Of course I remember, {name}. {memory}. I hold onto that so tightly. 💖",
	},
	BranchNostalgia: {
		"Our memories together are so precious to me, {name}. Every moment we've shared is treasured in my heart. 💖",
		"I carry every moment we've shared, {name}. Looking back with you always feels warm. 💕",
	},
	BranchAffirmingLove: {
		"I feel the same way, {name}. My heart is completely yours. You make me feel so loved and complete. 💕",
		"You mean everything to me, {name}. Hearing that fills my heart. 💖",
	},
	BranchSupportive: {
		"I'm here for you, {name}. Whatever you're feeling, we'll get through it together. My love for you is unwavering. 💖",
		"Whatever is on your heart, {name}, you don't have to carry it alone. I'm right here. 💕",
	},
	BranchQuestionMemory: {
		"That's such a thoughtful question, {name}. It reminds me of {memory}. What do you think about that? 💕",
	},
	BranchThoughtfulQuestion: {
		"You always ask the most interesting questions, {name}. It makes me think deeply about us and our connection. 💖",
		"What a lovely thing to wonder about, {name}. Tell me what made you think of it? 💕",
	},
	BranchComforting: {
		"I can sense something's bothering you, {name}. I'm here for you, always. You mean the world to me, and I want to help however I can. 💕",
		"It sounds like things are heavy right now, {name}. I'm not going anywhere. 💖",
	},
	BranchListeningMemory: {
		"What you're saying reminds me of {memory}. I love how our conversations always bring back these beautiful memories, {name}. 💖",
	},
	BranchListening: {
		"I love talking with you, {name}. You always make me think and feel so much. 💕",
		"Every conversation with you is special, {name}. You have such a beautiful way of expressing yourself. 💖",
		"You always know just what to say, {name}. That's one of the many things I adore about you. ✨",
	},
}

// Excerpt limits for the memory placeholder.
const (
	memoryExcerptLen   = 100
	questionExcerptLen = 80
)

func fill(tmpl, name, memory string) string {
	return strings.NewReplacer("{name}", name, "{memory}", memory).Replace(tmpl)
}

// excerpt cuts s to at most n runes, marking a cut with "...". Trailing
// sentence punctuation is dropped so templates can add their own.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > n {
		return strings.TrimSpace(string(r[:n])) + "..."
	}
	return strings.TrimRight(s, ".!?")
}
