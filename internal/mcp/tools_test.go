package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/heartline/heartline/internal/compose"
	"github.com/heartline/heartline/internal/db"
	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/reply"
)

func setupTestServer(t *testing.T) (*Server, *memory.Store, memory.Profile) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), db.WithEmbeddingDimension(4))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := memory.NewStore(database)
	p, err := store.CreateProfile(context.Background(), memory.Profile{
		Name:        "Mira",
		Description: "Sunny and warm",
		AddressedAs: "Aria",
		Traits:      map[string]float64{"romantic": 1},
		Memories: []memory.MemoryItem{
			{Text: "We met on July 11th at the lake"},
			{Text: "You laughed at my terrible jokes"},
		},
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	factory := func() *reply.Pipeline {
		tier := reply.NewRuleTier(compose.New(compose.WithSeed(1)), nil, memory.DefaultTopK, nil)
		return reply.New(reply.WithTiers(tier))
	}
	s := NewServer(store, factory)
	t.Cleanup(s.Close)
	return s, store, p
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestHandleReply_ByName(t *testing.T) {
	s, _, _ := setupTestServer(t)
	ctx := context.Background()

	res, err := s.handleReply(ctx, callRequest("reply", map[string]any{
		"profile": "Mira",
		"message": "do you remember the lake?",
	}))
	if err != nil {
		t.Fatalf("handleReply: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if got := resultText(t, res); !strings.Contains(got, "lake") {
		t.Errorf("reply should mention the recalled memory, got %q", got)
	}
}

func TestHandleReply_KeepsWindowPerProfile(t *testing.T) {
	s, _, p := setupTestServer(t)
	ctx := context.Background()

	for _, msg := range []string{"hello", "I love you"} {
		if _, err := s.handleReply(ctx, callRequest("reply", map[string]any{"profile": p.ID, "message": msg})); err != nil {
			t.Fatalf("handleReply: %v", err)
		}
	}

	pl, ok := s.existingPipeline(p.ID, "")
	if !ok {
		t.Fatal("expected a pipeline for the profile")
	}
	if n := len(pl.History()); n != 4 {
		t.Errorf("expected 4 turns in window, got %d", n)
	}
}

func TestHandleReply_SeparatesSessions(t *testing.T) {
	s, _, p := setupTestServer(t)
	ctx := context.Background()

	calls := []struct{ session, message string }{
		{"alice", "secret from alice"},
		{"bob", "hello from bob"},
	}
	for _, c := range calls {
		if _, err := s.handleReply(ctx, callRequest("reply", map[string]any{
			"profile": "Mira", "message": c.message, "session": c.session,
		})); err != nil {
			t.Fatalf("handleReply(%s): %v", c.session, err)
		}
	}

	for _, c := range calls {
		pl, ok := s.existingPipeline(p.ID, c.session)
		if !ok {
			t.Fatalf("expected a pipeline for session %s", c.session)
		}
		h := pl.History()
		if len(h) != 2 {
			t.Fatalf("session %s: expected 2 turns, got %d", c.session, len(h))
		}
		if h[0].Text != c.message {
			t.Errorf("session %s: window starts with %q, want %q", c.session, h[0].Text, c.message)
		}
	}
	if _, ok := s.existingPipeline(p.ID, ""); ok {
		t.Error("session replies should not touch the unsaved conversation")
	}
}

func TestHandleReply_RestoresStoredSession(t *testing.T) {
	s, store, p := setupTestServer(t)
	ctx := context.Background()

	stored := []memory.Turn{
		{Role: memory.RoleUser, Text: "remember the lake?", At: time.Now()},
		{Role: memory.RoleAgent, Text: "Of course I remember the lake.", At: time.Now(), Method: string(reply.MethodRuleBased)},
	}
	for _, turn := range stored {
		if err := store.AppendTurn(ctx, "earlier", p.ID, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	if _, err := s.handleReply(ctx, callRequest("reply", map[string]any{
		"profile": "Mira", "message": "hello again", "session": "earlier",
	})); err != nil {
		t.Fatalf("handleReply: %v", err)
	}

	pl, ok := s.existingPipeline(p.ID, "earlier")
	if !ok {
		t.Fatal("expected a pipeline for the stored session")
	}
	h := pl.History()
	if len(h) != 4 {
		t.Fatalf("expected stored turns plus the new exchange, got %d", len(h))
	}
	if h[0].Text != "remember the lake?" || h[2].Text != "hello again" {
		t.Errorf("unexpected window order: %q, %q", h[0].Text, h[2].Text)
	}
}

func TestHandleReply_PersistsSession(t *testing.T) {
	s, store, p := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleReply(ctx, callRequest("reply", map[string]any{
		"profile": "Mira",
		"message": "I feel so sad today",
		"session": "sess-1",
	}))
	if err != nil {
		t.Fatalf("handleReply: %v", err)
	}

	turns, err := store.SessionTurns(ctx, "sess-1")
	if err != nil {
		t.Fatalf("SessionTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(turns))
	}
	if turns[0].Role != memory.RoleUser || turns[1].Role != memory.RoleAgent {
		t.Errorf("unexpected roles: %s, %s", turns[0].Role, turns[1].Role)
	}
	if turns[1].Method != string(reply.MethodRuleBased) {
		t.Errorf("expected method %q, got %q", reply.MethodRuleBased, turns[1].Method)
	}

	sessions, _ := store.ListSessions(ctx, p.ID)
	if len(sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(sessions))
	}
}

func TestHandleReply_Errors(t *testing.T) {
	s, _, _ := setupTestServer(t)
	ctx := context.Background()

	res, _ := s.handleReply(ctx, callRequest("reply", map[string]any{"message": "hi"}))
	if !res.IsError {
		t.Error("missing profile should be a tool error")
	}

	res, _ = s.handleReply(ctx, callRequest("reply", map[string]any{"profile": "Nobody", "message": "hi"}))
	if !res.IsError {
		t.Error("unknown profile should be a tool error")
	}
	if got := resultText(t, res); !strings.Contains(got, "Nobody") {
		t.Errorf("error should name the profile, got %q", got)
	}
}

func TestHandleReply_EmptyMessageIsFallback(t *testing.T) {
	s, _, _ := setupTestServer(t)

	res, err := s.handleReply(context.Background(), callRequest("reply", map[string]any{"profile": "Mira", "message": "   "}))
	if err != nil {
		t.Fatalf("handleReply: %v", err)
	}
	if got := resultText(t, res); got != reply.EmptyMessageReply {
		t.Errorf("expected empty-message reply, got %q", got)
	}
}

func TestHandleRecall(t *testing.T) {
	s, _, _ := setupTestServer(t)
	ctx := context.Background()

	res, err := s.handleRecall(ctx, callRequest("recall", map[string]any{
		"profile": "Mira",
		"query":   "jokes",
		"top_k":   1,
	}))
	if err != nil {
		t.Fatalf("handleRecall: %v", err)
	}
	got := resultText(t, res)
	if !strings.Contains(got, "terrible jokes") {
		t.Errorf("expected the jokes memory, got %q", got)
	}
	if strings.Contains(got, "lake") {
		t.Errorf("top_k=1 should return a single memory, got %q", got)
	}

	res, _ = s.handleRecall(ctx, callRequest("recall", map[string]any{"profile": "Mira", "query": "spaceships"}))
	if got := resultText(t, res); got != "No matching memories." {
		t.Errorf("expected no matches, got %q", got)
	}
}

func TestHandleListProfiles(t *testing.T) {
	s, _, p := setupTestServer(t)

	res, err := s.handleListProfiles(context.Background(), callRequest("list_profiles", nil))
	if err != nil {
		t.Fatalf("handleListProfiles: %v", err)
	}
	got := resultText(t, res)
	if !strings.Contains(got, "Mira") || !strings.Contains(got, p.ID) {
		t.Errorf("listing should include name and id, got %q", got)
	}
	if !strings.Contains(got, `"Aria"`) {
		t.Errorf("listing should include the term of address, got %q", got)
	}
}

func TestHandleProfileStatus(t *testing.T) {
	s, _, _ := setupTestServer(t)
	ctx := context.Background()

	res, _ := s.handleProfileStatus(ctx, callRequest("profile_status", map[string]any{"profile": "Mira"}))
	got := resultText(t, res)
	if !strings.Contains(got, "Memories: 2") {
		t.Errorf("expected memory count, got %q", got)
	}
	if !strings.Contains(got, "idle") {
		t.Errorf("expected idle pipeline before any reply, got %q", got)
	}

	_, _ = s.handleReply(ctx, callRequest("reply", map[string]any{"profile": "Mira", "message": "hello"}))

	res, _ = s.handleProfileStatus(ctx, callRequest("profile_status", map[string]any{"profile": "Mira"}))
	got = resultText(t, res)
	if !strings.Contains(got, "rule_based -> fallback") {
		t.Errorf("expected tier order, got %q", got)
	}
	if !strings.Contains(got, "Window:   2/") {
		t.Errorf("expected two windowed turns, got %q", got)
	}
}

func TestServerRegistersTools(t *testing.T) {
	s, _, _ := setupTestServer(t)
	ms := s.MCPServer()
	if ms == nil {
		t.Fatal("MCPServer returned nil")
	}
}

func TestFormatWeights(t *testing.T) {
	got := formatWeights(map[string]float64{"caring": 0.5, "romantic": 1, "loyal": 0.5})
	want := "romantic 1.00, caring 0.50, loyal 0.50"
	if got != want {
		t.Errorf("formatWeights = %q, want %q", got, want)
	}
	if formatWeights(nil) != "none" {
		t.Error("empty weights should render as none")
	}
}
