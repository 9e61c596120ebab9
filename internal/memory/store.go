package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/heartline/heartline/internal/db"
	"github.com/heartline/heartline/internal/sentiment"
)

// ErrProfileNotFound is returned when no profile matches an id or name.
var ErrProfileNotFound = errors.New("store: profile not found")

// ErrProfileExists is returned when a profile name is already taken.
var ErrProfileExists = errors.New("store: profile already exists")

// Store provides read/write access to the heartline SQLite database.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given DB.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Conn exposes the underlying *sql.DB for low-level queries.
func (s *Store) Conn() *sql.DB {
	return s.db.Conn()
}

// NewSessionID returns a fresh conversation session id.
func NewSessionID() string {
	return uuid.NewString()
}

// ---- Profiles ----

// CreateProfile inserts p and its memories in one transaction and returns
// the stored profile with generated ids.
func (s *Store) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	if p.Name == "" {
		return p, errors.New("store: profile name is required")
	}
	if p.AddressedAs == "" {
		p.AddressedAs = DefaultAddressedAs
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return p, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var createdAt, lastUsedAt string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO profiles (id, name, description, backstory, addressed_as, tags, traits, emotional_profile)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, last_used_at`,
		p.Name, p.Description, p.Backstory, p.AddressedAs,
		marshalJSON(p.Tags, "[]"), marshalJSON(p.Traits, "{}"), marshalJSON(p.Emotions, "{}"),
	).Scan(&p.ID, &createdAt, &lastUsedAt)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return p, fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
	}
	if err != nil {
		return p, fmt.Errorf("store: insert profile: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.LastUsedAt = parseTime(lastUsedAt)

	for i := range p.Memories {
		m := &p.Memories[i]
		m.Position = i
		err := tx.QueryRowContext(ctx, `
			INSERT INTO profile_memories (id, profile_id, position, content, tags)
			VALUES (lower(hex(randomblob(16))), ?, ?, ?, ?)
			RETURNING id`,
			p.ID, m.Position, m.Text, marshalJSON(m.Tags, "[]"),
		).Scan(&m.ID)
		if err != nil {
			return p, fmt.Errorf("store: insert memory %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return p, fmt.Errorf("store: commit profile: %w", err)
	}
	return p, nil
}

const profileColumns = `id, name, description, backstory, addressed_as, tags, traits, emotional_profile, created_at, last_used_at`

// GetProfile returns the profile with the given id, memories included.
func (s *Store) GetProfile(ctx context.Context, id string) (Profile, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	return s.loadProfile(ctx, row)
}

// GetProfileByName returns the profile with the given name.
func (s *Store) GetProfileByName(ctx context.Context, name string) (Profile, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name)
	return s.loadProfile(ctx, row)
}

// ResolveProfile looks ref up as an id first, then as a name.
func (s *Store) ResolveProfile(ctx context.Context, ref string) (Profile, error) {
	p, err := s.GetProfile(ctx, ref)
	if errors.Is(err, ErrProfileNotFound) {
		return s.GetProfileByName(ctx, ref)
	}
	return p, err
}

func (s *Store) loadProfile(ctx context.Context, row *sql.Row) (Profile, error) {
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return p, ErrProfileNotFound
	}
	if err != nil {
		return p, fmt.Errorf("store: get profile: %w", err)
	}
	p.Memories, err = s.listMemoryItems(ctx, p.ID)
	if err != nil {
		return p, err
	}
	return p, nil
}

// ListProfiles returns every profile ordered by most recent use. Memories
// are not loaded.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY last_used_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("store: list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TouchProfile records that the profile was just used.
func (s *Store) TouchProfile(ctx context.Context, id string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`UPDATE profiles SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

// DeleteProfile removes a profile. Memories and turns are cascade-deleted.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete profile: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// ---- Memories ----

func (s *Store) listMemoryItems(ctx context.Context, profileID string) ([]MemoryItem, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, position, content, tags FROM profile_memories WHERE profile_id = ? ORDER BY position`, profileID)
	if err != nil {
		return nil, fmt.Errorf("store: list memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []MemoryItem
	for rows.Next() {
		var m MemoryItem
		var tags string
		if err := rows.Scan(&m.ID, &m.Position, &m.Text, &tags); err != nil {
			return nil, err
		}
		unmarshalJSON(tags, &m.Tags)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMemoryItem returns a single memory by id along with its profile id.
func (s *Store) GetMemoryItem(ctx context.Context, id string) (MemoryItem, string, error) {
	var m MemoryItem
	var profileID, tags string
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, profile_id, position, content, tags FROM profile_memories WHERE id = ?`, id,
	).Scan(&m.ID, &profileID, &m.Position, &m.Text, &tags)
	if err == sql.ErrNoRows {
		return m, "", fmt.Errorf("store: memory %q not found", id)
	}
	if err != nil {
		return m, "", err
	}
	unmarshalJSON(tags, &m.Tags)
	return m, profileID, nil
}

// CountMemories returns the number of memory items across all profiles.
func (s *Store) CountMemories(ctx context.Context) (int, error) {
	var n int
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM profile_memories`).Scan(&n)
	return n, err
}

// ---- Turns ----

// AppendTurn records one turn of a session.
func (s *Store) AppendTurn(ctx context.Context, sessionID, profileID string, t Turn) error {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	var emotion string
	var polarity float64
	if t.Sentiment != nil {
		emotion = string(t.Sentiment.Label)
		polarity = t.Sentiment.Polarity
	}
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO turns (session_id, profile_id, role, content, method, emotion, polarity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, profileID, string(t.Role), t.Text, t.Method, emotion, polarity, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: append turn: %w", err)
	}
	return nil
}

// SessionTurns returns every turn of a session in order.
func (s *Store) SessionTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT role, content, method, emotion, polarity, created_at
		FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: session turns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTurns(rows)
}

// RecentTurns returns the last n turns recorded for a profile, oldest first.
func (s *Store) RecentTurns(ctx context.Context, profileID string, n int) ([]Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT role, content, method, emotion, polarity, created_at FROM (
			SELECT id, role, content, method, emotion, polarity, created_at
			FROM turns WHERE profile_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`, profileID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent turns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTurns(rows)
}

// ListSessions summarises the sessions of a profile, newest first. An empty
// profileID lists sessions of every profile.
func (s *Store) ListSessions(ctx context.Context, profileID string) ([]SessionSummary, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT session_id, profile_id, COUNT(*), MIN(created_at), MAX(created_at), MAX(id) AS last_id
		FROM turns
		WHERE ? = '' OR profile_id = ?
		GROUP BY session_id, profile_id
		ORDER BY last_id DESC`, profileID, profileID)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SessionSummary
	for rows.Next() {
		var ss SessionSummary
		var started, last string
		var lastID int64
		if err := rows.Scan(&ss.ID, &ss.ProfileID, &ss.Turns, &started, &last, &lastID); err != nil {
			return nil, err
		}
		ss.StartedAt = parseTime(started)
		ss.LastAt = parseTime(last)
		out = append(out, ss)
	}
	return out, rows.Err()
}

// PruneTurns deletes turns older than the given number of days.
// Returns the number of deleted rows.
func (s *Store) PruneTurns(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: prune turns: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PruneSessionsKeepLatest deletes the turns of all but the latest keep
// sessions. Returns the number of deleted rows.
func (s *Store) PruneSessionsKeepLatest(ctx context.Context, keep int) (int, error) {
	res, err := s.db.Conn().ExecContext(ctx, `
		DELETE FROM turns WHERE session_id NOT IN (
			SELECT session_id FROM turns GROUP BY session_id ORDER BY MAX(id) DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("store: prune sessions keep latest: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ---- Stats ----

// Stats summarises the database contents.
func (s *Store) Stats(ctx context.Context, dbPath string) (Stats, error) {
	var st Stats
	conn := s.db.Conn()
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&st.Profiles); err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM profile_memories`).Scan(&st.Memories); err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT session_id) FROM turns`).Scan(&st.Turns, &st.Sessions); err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	var lastUsed sql.NullString
	if err := conn.QueryRowContext(ctx, `SELECT MAX(last_used_at) FROM profiles`).Scan(&lastUsed); err == nil && lastUsed.Valid {
		st.LastUsed = parseTime(lastUsed.String)
	}
	if dbPath != "" {
		if fi, err := os.Stat(dbPath); err == nil {
			st.DBSizeBytes = fi.Size()
		}
	}
	return st, nil
}

// ---- Helpers ----

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (Profile, error) {
	var p Profile
	var tags, traits, emotions, createdAt, lastUsedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Backstory, &p.AddressedAs,
		&tags, &traits, &emotions, &createdAt, &lastUsedAt)
	if err != nil {
		return p, err
	}
	unmarshalJSON(tags, &p.Tags)
	unmarshalJSON(traits, &p.Traits)
	unmarshalJSON(emotions, &p.Emotions)
	p.CreatedAt = parseTime(createdAt)
	p.LastUsedAt = parseTime(lastUsedAt)
	return p, nil
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var out []Turn
	for rows.Next() {
		var t Turn
		var role, emotion, createdAt string
		var polarity float64
		if err := rows.Scan(&role, &t.Text, &t.Method, &emotion, &polarity, &createdAt); err != nil {
			return nil, err
		}
		t.Role = Role(role)
		t.At = parseTime(createdAt)
		if emotion != "" {
			t.Sentiment = &sentiment.Result{Label: sentiment.Label(emotion), Polarity: polarity}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// parseTime tries multiple SQLite timestamp layouts.
// go-sqlite3 may return RFC3339 or the plain "2006-01-02 15:04:05" format depending on
// the connection string and platform.
func parseTime(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func marshalJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

func unmarshalJSON(s string, dest any) {
	if s == "" || s == "[]" || s == "{}" {
		return
	}
	_ = json.Unmarshal([]byte(s), dest)
}
