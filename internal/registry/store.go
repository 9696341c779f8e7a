// Package registry persists the entity table and the state-transition
// journal in SQLite, so entity identities survive restarts and vanished
// sessions leave a diagnostic trail.
package registry

import (
	"database/sql"
	"fmt"
	"time"

	"jellybridge/internal/bridge"
	"jellybridge/internal/db"
	"jellybridge/internal/logging"
)

type Store struct {
	db *sql.DB
}

func New(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// KnownEntity is one persisted entity identity.
type KnownEntity struct {
	Key           string    `json:"entity_key"`
	UserName      string    `json:"user_name"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	LastSessionID string    `json:"last_session_id"`
}

// Transition is one journal row.
type Transition struct {
	EntityKey  string    `json:"entity_key"`
	PollTick   int64     `json:"poll_tick"`
	Idle       bool      `json:"idle"`
	IsPlaying  bool      `json:"is_playing"`
	SessionID  string    `json:"session_id"`
	Title      string    `json:"title"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ApplyUpdates persists one poll cycle's batch: upserts each entity row and
// appends a journal entry per update. It only ever sees real transitions,
// because the reconciler debounces unchanged states.
func (s *Store) ApplyUpdates(updates []bridge.Update) {
	now := time.Now().Unix()
	for _, u := range updates {
		_, err := db.ExecWithRetry(s.db, `
            INSERT INTO entities (entity_key, user_name, first_seen_at, last_seen_at, last_session_id)
            VALUES (?, ?, ?, ?, ?)
            ON CONFLICT(entity_key) DO UPDATE SET
                user_name = CASE WHEN excluded.user_name != '' THEN excluded.user_name ELSE entities.user_name END,
                last_seen_at = excluded.last_seen_at,
                last_session_id = CASE WHEN excluded.last_session_id != '' THEN excluded.last_session_id ELSE entities.last_session_id END
        `, u.Key, u.UserName, now, now, u.State.SessionID)
		if err != nil {
			logging.Error("Failed to upsert entity", "entity_key", u.Key, "error", err.Error())
			continue
		}

		_, err = db.ExecWithRetry(s.db, `
            INSERT INTO transitions (entity_key, poll_tick, idle, is_playing, session_id, title, recorded_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
        `, u.Key, u.PollTick, boolInt(u.Idle), boolInt(u.State.IsPlaying), u.State.SessionID, u.State.Title, now)
		if err != nil {
			logging.Error("Failed to journal transition", "entity_key", u.Key, "error", err.Error())
		}
	}
}

// KnownEntities loads all persisted identities, used to preseed the
// reconciler at startup.
func (s *Store) KnownEntities() ([]KnownEntity, error) {
	rows, err := s.db.Query(`
        SELECT entity_key, user_name, first_seen_at, last_seen_at, last_session_id
        FROM entities ORDER BY entity_key
    `)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()

	var out []KnownEntity
	for rows.Next() {
		var e KnownEntity
		var first, last int64
		if err := rows.Scan(&e.Key, &e.UserName, &first, &last, &e.LastSessionID); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		e.FirstSeenAt = time.Unix(first, 0)
		e.LastSeenAt = time.Unix(last, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentTransitions returns up to limit journal rows for one entity, newest
// first.
func (s *Store) RecentTransitions(entityKey string, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
        SELECT entity_key, poll_tick, idle, is_playing, session_id, title, recorded_at
        FROM transitions WHERE entity_key = ?
        ORDER BY id DESC LIMIT ?
    `, entityKey, limit)
	if err != nil {
		return nil, fmt.Errorf("load transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var idle, playing int
		var at int64
		if err := rows.Scan(&t.EntityKey, &t.PollTick, &idle, &playing, &t.SessionID, &t.Title, &at); err != nil {
			return nil, fmt.Errorf("scan transition row: %w", err)
		}
		t.Idle = idle != 0
		t.IsPlaying = playing != 0
		t.RecordedAt = time.Unix(at, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
