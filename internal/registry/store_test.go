package registry

import (
	"database/sql"
	"path/filepath"
	"testing"

	"jellybridge/internal/bridge"
	"jellybridge/internal/db"
)

func openTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")

	sqlDB, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.MigrateUp("sqlite://" + path); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(sqlDB), sqlDB
}

func update(key, sessionID, title string, idle bool) bridge.Update {
	return bridge.Update{
		Key:      key,
		UserName: "user-" + key,
		Idle:     idle,
		PollTick: 1,
		State: bridge.PlaybackState{
			EntityKey: key,
			SessionID: sessionID,
			Title:     title,
			IsPlaying: !idle,
		},
	}
}

func TestApplyUpdatesCreatesAndJournals(t *testing.T) {
	store, _ := openTestStore(t)

	store.ApplyUpdates([]bridge.Update{update("u1", "s1", "Movie", false)})

	entities, err := store.KnownEntities()
	if err != nil {
		t.Fatalf("KnownEntities: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	e := entities[0]
	if e.Key != "u1" || e.UserName != "user-u1" || e.LastSessionID != "s1" {
		t.Errorf("unexpected entity %+v", e)
	}

	trs, err := store.RecentTransitions("u1", 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(trs) != 1 || trs[0].Title != "Movie" || !trs[0].IsPlaying {
		t.Errorf("unexpected transitions %+v", trs)
	}
}

func TestApplyUpdatesUpsertPreservesIdentity(t *testing.T) {
	store, _ := openTestStore(t)

	store.ApplyUpdates([]bridge.Update{update("u1", "s1", "Movie", false)})

	// Idle transition carries an empty user name and the retained session id.
	idle := bridge.Update{Key: "u1", Idle: true, PollTick: 2, State: bridge.PlaybackState{EntityKey: "u1", SessionID: "s1"}}
	store.ApplyUpdates([]bridge.Update{idle})

	entities, err := store.KnownEntities()
	if err != nil {
		t.Fatalf("KnownEntities: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("upsert created a second row: %d entities", len(entities))
	}
	if entities[0].UserName != "user-u1" {
		t.Errorf("empty user name overwrote stored identity: %+v", entities[0])
	}

	trs, err := store.RecentTransitions("u1", 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("got %d transitions, want 2", len(trs))
	}
	// Newest first.
	if !trs[0].Idle || trs[0].PollTick != 2 {
		t.Errorf("first row should be the idle transition: %+v", trs[0])
	}
}

func TestRecentTransitionsHonorsLimit(t *testing.T) {
	store, _ := openTestStore(t)

	for i := 0; i < 5; i++ {
		u := update("u1", "s1", "Movie", false)
		u.PollTick = int64(i + 1)
		store.ApplyUpdates([]bridge.Update{u})
	}

	trs, err := store.RecentTransitions("u1", 3)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(trs) != 3 {
		t.Fatalf("got %d transitions, want 3", len(trs))
	}
	if trs[0].PollTick != 5 {
		t.Errorf("newest tick = %d, want 5", trs[0].PollTick)
	}
}

func TestKnownEntitiesEmptyDatabase(t *testing.T) {
	store, _ := openTestStore(t)

	entities, err := store.KnownEntities()
	if err != nil {
		t.Fatalf("KnownEntities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("fresh database returned %d entities", len(entities))
	}
}
