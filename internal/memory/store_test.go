package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/heartline/heartline/internal/db"
	"github.com/heartline/heartline/internal/sentiment"
)

func setupTestDB(t *testing.T) (*db.DB, *Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath, db.WithEmbeddingDimension(4))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database, NewStore(database)
}

func testProfile() Profile {
	return Profile{
		Name:        "Aria",
		Description: "a gentle soul",
		Backstory:   "We met at the lake.",
		AddressedAs: "Mira",
		Tags:        []string{"lake", "rain"},
		Traits:      map[string]float64{"romantic": 1, "caring": 0.5},
		Emotions:    EmotionalProfile{"love": 0.75, "joy": 0.25},
		Memories: []MemoryItem{
			{Text: "We met on July 11th at the lake"},
			{Text: "You laughed at my terrible jokes", Tags: []string{"fun"}},
		},
	}
}

func TestStore_CreateAndGetProfile(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()

	created, err := store.CreateProfile(ctx, testProfile())
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated profile id")
	}
	for i, m := range created.Memories {
		if m.ID == "" || m.Position != i {
			t.Errorf("memory %d: id=%q position=%d", i, m.ID, m.Position)
		}
	}

	got, err := store.GetProfile(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Name != "Aria" || got.AddressedAs != "Mira" {
		t.Errorf("unexpected profile: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "rain" {
		t.Errorf("tags: got %v", got.Tags)
	}
	if got.Traits["caring"] != 0.5 {
		t.Errorf("traits: got %v", got.Traits)
	}
	if got.Emotions["love"] != 0.75 {
		t.Errorf("emotions: got %v", got.Emotions)
	}
	if len(got.Memories) != 2 || got.Memories[0].Text != "We met on July 11th at the lake" {
		t.Errorf("memories: got %+v", got.Memories)
	}
	if got.Memories[1].Tags[0] != "fun" {
		t.Errorf("memory tags: got %v", got.Memories[1].Tags)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestStore_CreateProfile_DefaultsAndValidation(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.CreateProfile(ctx, Profile{}); err == nil {
		t.Error("expected error for missing name")
	}

	p, err := store.CreateProfile(ctx, Profile{Name: "Bare"})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	got, _ := store.GetProfile(ctx, p.ID)
	if got.AddressedAs != DefaultAddressedAs {
		t.Errorf("addressed as: got %q", got.AddressedAs)
	}
	if got.Traits != nil && len(got.Traits) != 0 {
		t.Errorf("expected no traits, got %v", got.Traits)
	}
}

func TestStore_CreateProfile_DuplicateName(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.CreateProfile(ctx, testProfile()); err != nil {
		t.Fatalf("first CreateProfile: %v", err)
	}
	_, err := store.CreateProfile(ctx, testProfile())
	if !errors.Is(err, ErrProfileExists) {
		t.Errorf("expected ErrProfileExists, got %v", err)
	}
}

func TestStore_GetProfile_NotFound(t *testing.T) {
	_, store := setupTestDB(t)

	_, err := store.GetProfile(context.Background(), "missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestStore_ResolveProfile(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	created, _ := store.CreateProfile(ctx, testProfile())

	byName, err := store.ResolveProfile(ctx, "Aria")
	if err != nil || byName.ID != created.ID {
		t.Errorf("resolve by name: %v, %+v", err, byName)
	}
	byID, err := store.ResolveProfile(ctx, created.ID)
	if err != nil || byID.Name != "Aria" {
		t.Errorf("resolve by id: %v, %+v", err, byID)
	}
	if _, err := store.ResolveProfile(ctx, "nobody"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestStore_ListAndDeleteProfiles(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()

	a, _ := store.CreateProfile(ctx, testProfile())
	store.CreateProfile(ctx, Profile{Name: "Bex"})

	list, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(list))
	}

	if err := store.DeleteProfile(ctx, a.ID); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if err := store.DeleteProfile(ctx, a.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("second delete: expected ErrProfileNotFound, got %v", err)
	}
	n, _ := store.CountMemories(ctx)
	if n != 0 {
		t.Errorf("expected memories to cascade, %d left", n)
	}
}

func TestStore_TouchProfile(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	p, _ := store.CreateProfile(ctx, testProfile())

	if err := store.TouchProfile(ctx, p.ID); err != nil {
		t.Fatalf("TouchProfile: %v", err)
	}
	got, _ := store.GetProfile(ctx, p.ID)
	if got.LastUsedAt.IsZero() {
		t.Error("expected last_used_at to be set")
	}
}

func TestStore_TurnsAndSessions(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	p, _ := store.CreateProfile(ctx, testProfile())

	s1 := NewSessionID()
	s2 := NewSessionID()
	if s1 == s2 || s1 == "" {
		t.Fatal("expected distinct session ids")
	}

	base := time.Now().Add(-time.Hour)
	turns := []Turn{
		{Role: RoleUser, Text: "I miss you", At: base, Sentiment: &sentiment.Result{Label: sentiment.LabelLonging, Polarity: -1}},
		{Role: RoleAgent, Text: "I'm right here, Mira.", At: base.Add(time.Second), Method: "rule_based"},
	}
	for _, turn := range turns {
		if err := store.AppendTurn(ctx, s1, p.ID, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}
	store.AppendTurn(ctx, s2, p.ID, Turn{Role: RoleUser, Text: "hello again"})

	got, err := store.SessionTurns(ctx, s1)
	if err != nil {
		t.Fatalf("SessionTurns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Role != RoleUser || got[0].Sentiment == nil || got[0].Sentiment.Label != sentiment.LabelLonging {
		t.Errorf("first turn: %+v", got[0])
	}
	if got[1].Method != "rule_based" || got[1].Sentiment != nil {
		t.Errorf("second turn: %+v", got[1])
	}
	if got[0].At.IsZero() {
		t.Error("expected turn timestamp")
	}

	recent, err := store.RecentTurns(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(recent) != 2 || recent[0].Text != "I'm right here, Mira." || recent[1].Text != "hello again" {
		t.Errorf("recent turns: %+v", recent)
	}

	sessions, err := store.ListSessions(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != s2 || sessions[1].Turns != 2 {
		t.Errorf("sessions: %+v", sessions)
	}
	all, _ := store.ListSessions(ctx, "")
	if len(all) != 2 {
		t.Errorf("expected 2 sessions across profiles, got %d", len(all))
	}
}

func TestStore_PruneSessionsKeepLatest(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	p, _ := store.CreateProfile(ctx, testProfile())

	for i := 0; i < 3; i++ {
		sid := NewSessionID()
		store.AppendTurn(ctx, sid, p.ID, Turn{Role: RoleUser, Text: "hi"})
		store.AppendTurn(ctx, sid, p.ID, Turn{Role: RoleAgent, Text: "hello"})
	}

	n, err := store.PruneSessionsKeepLatest(ctx, 1)
	if err != nil {
		t.Fatalf("PruneSessionsKeepLatest: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 deleted turns, got %d", n)
	}
}

func TestStore_PruneTurns(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	p, _ := store.CreateProfile(ctx, testProfile())

	sid := NewSessionID()
	store.AppendTurn(ctx, sid, p.ID, Turn{Role: RoleUser, Text: "old", At: time.Now().AddDate(0, 0, -40)})
	store.AppendTurn(ctx, sid, p.ID, Turn{Role: RoleUser, Text: "new", At: time.Now()})

	n, err := store.PruneTurns(ctx, 30)
	if err != nil {
		t.Fatalf("PruneTurns: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned turn, got %d", n)
	}
}

func TestStore_Stats(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	p, _ := store.CreateProfile(ctx, testProfile())
	store.AppendTurn(ctx, NewSessionID(), p.ID, Turn{Role: RoleUser, Text: "hi"})

	st, err := store.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Profiles != 1 || st.Memories != 2 || st.Turns != 1 || st.Sessions != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestProfile_Helpers(t *testing.T) {
	var nilProfile *Profile
	if nilProfile.HasTrait("romantic") {
		t.Error("nil profile should have no traits")
	}
	if nilProfile.Address() != DefaultAddressedAs {
		t.Errorf("nil profile address: got %q", nilProfile.Address())
	}
	if nilProfile.MemoryTexts() != nil {
		t.Error("nil profile should have no memories")
	}

	p := testProfile()
	if !p.HasTrait("romantic") || p.HasTrait("playful") {
		t.Errorf("HasTrait mismatch for %v", p.Traits)
	}
	p.Traits["romantic"] = 0
	if p.HasTrait("romantic") {
		t.Error("zero weight should not count as present")
	}
}
