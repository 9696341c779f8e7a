package bridge

import (
	"sort"
	"sync"

	"jellybridge/internal/logging"
)

// Reconciler owns the entity table and is the only writer to it. Each call to
// Reconcile applies one poll's session set atomically under a single mutex;
// the Dispatcher reads through the same mutex, so a half-applied poll is
// never observable.
type Reconciler struct {
	mu       sync.Mutex
	entities map[string]*EntityRecord
	tick     int64
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		entities: make(map[string]*EntityRecord),
	}
}

// Preseed registers an idle entity for a user known from a previous run, so
// entity identities survive restarts. No-op when the key is already present.
func (r *Reconciler) Preseed(key, userName string) {
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[key]; ok {
		return
	}
	r.entities[key] = &EntityRecord{
		Key:      key,
		UserName: userName,
		Idle:     true,
	}
}

// Tick returns the current poll tick. It advances once per Reconcile call.
func (r *Reconciler) Tick() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

// Lookup returns a copy of one entity record.
func (r *Reconciler) Lookup(key string) (EntityRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.entities[key]
	if !ok {
		return EntityRecord{}, false
	}
	return *rec, true
}

// LookupWithTick returns a copy of one entity record together with the poll
// tick it was read at, under a single lock, so the record and the tick always
// belong to the same poll.
func (r *Reconciler) LookupWithTick(key string) (EntityRecord, int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.entities[key]
	if !ok {
		return EntityRecord{}, r.tick, false
	}
	return *rec, r.tick, true
}

// Snapshot returns copies of all entity records, sorted by key.
func (r *Reconciler) Snapshot() []EntityRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntityRecord, 0, len(r.entities))
	for _, rec := range r.entities {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Reconcile diffs one poll's normalized sessions against the entity table and
// returns the update operations for entities whose visible state changed.
// Calling it twice with the same input yields no updates the second time.
func (r *Reconciler) Reconcile(states []PlaybackState) []Update {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tick++
	grouped := r.group(states)

	var updates []Update

	for key, st := range grouped {
		rec, ok := r.entities[key]
		if !ok {
			rec = &EntityRecord{Key: key, Idle: true}
			r.entities[key] = rec
			logging.Info("New entity", "entity_key", key, "user_name", st.UserName)
		}

		changed := rec.Idle || !rec.Current.Equal(st)
		rec.Idle = false
		rec.Current = st
		if st.UserName != "" {
			rec.UserName = st.UserName
		}
		rec.LastSeenPollTick = r.tick

		if changed {
			updates = append(updates, r.updateFor(rec))
		}
	}

	for key, rec := range r.entities {
		if _, active := grouped[key]; active || rec.Idle {
			continue
		}
		rec.Idle = true
		rec.PreviousSessionID = rec.Current.SessionID
		// LastSeenPollTick is deliberately left alone: its distance from
		// the current tick tells how many polls ago the session vanished.
		updates = append(updates, r.updateFor(rec))
		logging.Debug("Entity went idle", "entity_key", key, "previous_session_id", rec.PreviousSessionID)
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].Key < updates[j].Key })
	return updates
}

func (r *Reconciler) updateFor(rec *EntityRecord) Update {
	return Update{
		Key:      rec.Key,
		UserName: rec.UserName,
		Idle:     rec.Idle,
		State:    rec.Current,
		PollTick: r.tick,
	}
}

// group collapses the poll's sessions to one per entity key. When a user has
// several concurrent sessions the one whose playback position advanced the
// most since the last poll wins; ties and sessions with no prior data keep
// the earliest entry in raw order. This is a stated policy, not an accident:
// one entity per user means a displaced session is hidden, not duplicated.
func (r *Reconciler) group(states []PlaybackState) map[string]PlaybackState {
	type pick struct {
		st    PlaybackState
		delta float64
	}
	chosen := make(map[string]pick, len(states))

	for _, st := range states {
		if st.EntityKey == "" {
			logging.Warn("Skipping session without user id", "session_id", st.SessionID)
			continue
		}
		d := r.progressDelta(st)
		cur, ok := chosen[st.EntityKey]
		if !ok || d > cur.delta {
			chosen[st.EntityKey] = pick{st: st, delta: d}
		}
	}

	out := make(map[string]PlaybackState, len(chosen))
	for key, p := range chosen {
		out[key] = p.st
	}
	return out
}

// progressDelta is the position change since the last poll, computable only
// when the candidate is the same session the entity tracked last time.
func (r *Reconciler) progressDelta(st PlaybackState) float64 {
	rec, ok := r.entities[st.EntityKey]
	if !ok || rec.Idle || rec.Current.SessionID != st.SessionID {
		return 0
	}
	return st.PositionSeconds - rec.Current.PositionSeconds
}
