package bridge

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"jellybridge/internal/jellyfin"
)

// fakeSource serves a canned session list, or an error when set.
type fakeSource struct {
	sessions []jellyfin.Session
	err      error
}

func (f *fakeSource) GetSessions() ([]jellyfin.Session, error) {
	return f.sessions, f.err
}

type captureSink struct {
	batches [][]Update
}

func (s *captureSink) ApplyUpdates(updates []Update) {
	s.batches = append(s.batches, updates)
}

func playingSession(userID, sessionID, title string, posTicks int64) jellyfin.Session {
	return jellyfin.Session{
		ID:       sessionID,
		UserID:   userID,
		UserName: "user-" + userID,
		NowPlayingItem: &jellyfin.NowPlayingItem{
			ID:           "item-" + sessionID,
			Name:         title,
			Type:         "Movie",
			RunTimeTicks: 36_000_000_000,
		},
		PlayState: &jellyfin.PlayState{PositionTicks: posTicks},
	}
}

func newTestCoordinator(src SessionSource, rec *Reconciler) *Coordinator {
	return NewCoordinator(src, Normalizer{}, rec, time.Second, 3, time.Minute)
}

func TestPollOnceFansOutUpdates(t *testing.T) {
	src := &fakeSource{sessions: []jellyfin.Session{playingSession("u1", "s1", "Movie", 0)}}
	rec := NewReconciler()
	sink := &captureSink{}
	c := newTestCoordinator(src, rec)
	c.AddSink(sink)

	c.PollOnce()

	if c.Status() != StatusOnline {
		t.Errorf("status = %v, want online", c.Status())
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("sink batches = %v", sink.batches)
	}
	if sink.batches[0][0].Key != "u1" {
		t.Errorf("update key = %q", sink.batches[0][0].Key)
	}
}

func TestPollOnceSkipsSinksWhenNothingChanged(t *testing.T) {
	src := &fakeSource{sessions: []jellyfin.Session{playingSession("u1", "s1", "Movie", 0)}}
	rec := NewReconciler()
	sink := &captureSink{}
	c := newTestCoordinator(src, rec)
	c.AddSink(sink)

	c.PollOnce()
	c.PollOnce() // identical payload, no update batch

	if len(sink.batches) != 1 {
		t.Errorf("sink received %d batches, want 1", len(sink.batches))
	}
}

func TestPollFailureLeavesEntitiesUntouched(t *testing.T) {
	src := &fakeSource{sessions: []jellyfin.Session{playingSession("u1", "s1", "Movie", 50_000_000)}}
	rec := NewReconciler()
	sink := &captureSink{}
	c := newTestCoordinator(src, rec)
	c.AddSink(sink)

	c.PollOnce()
	before := rec.Snapshot()

	src.err = errors.New("connection refused")
	c.PollOnce()

	if c.Status() != StatusOffline {
		t.Errorf("status = %v, want offline", c.Status())
	}
	after := rec.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("entity state changed across a failed poll:\nbefore %+v\nafter  %+v", before, after)
	}
	if tick := rec.Tick(); tick != 1 {
		t.Errorf("tick = %d, failed polls should not advance it", tick)
	}
	if len(sink.batches) != 1 {
		t.Errorf("failed poll fanned out a batch")
	}
}

func TestAuthFailureStatus(t *testing.T) {
	src := &fakeSource{err: jellyfin.ErrAuth}
	c := newTestCoordinator(src, NewReconciler())

	c.PollOnce()

	if c.Status() != StatusAuthFailed {
		t.Errorf("status = %v, want auth_failed", c.Status())
	}
}

func TestRecoveryResetsFailures(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	c := newTestCoordinator(src, NewReconciler())

	for i := 0; i < 6; i++ {
		c.PollOnce()
	}
	if d := c.delay(); d <= time.Second {
		t.Errorf("delay after 6 failures = %v, want backed off", d)
	}

	src.err = nil
	c.PollOnce()

	if c.Status() != StatusOnline {
		t.Errorf("status = %v, want online", c.Status())
	}
	if d := c.delay(); d != time.Second {
		t.Errorf("delay after recovery = %v, want base interval", d)
	}
}

func TestDelayBackoffCurve(t *testing.T) {
	c := newTestCoordinator(&fakeSource{}, NewReconciler())

	cases := []struct {
		failures int
		want     time.Duration
	}{
		{0, time.Second},
		{3, time.Second},
		{4, 2 * time.Second},
		{5, 4 * time.Second},
		{8, 32 * time.Second},
		{9, time.Minute}, // 64s capped
		{50, time.Minute},
	}
	for _, tc := range cases {
		c.mu.Lock()
		c.failures = tc.failures
		c.mu.Unlock()
		if got := c.delay(); got != tc.want {
			t.Errorf("delay(failures=%d) = %v, want %v", tc.failures, got, tc.want)
		}
	}
}

func TestIdleSessionsAreFiltered(t *testing.T) {
	idle := jellyfin.Session{ID: "s9", UserID: "u9", UserName: "user-u9"}
	src := &fakeSource{sessions: []jellyfin.Session{idle}}
	rec := NewReconciler()
	c := newTestCoordinator(src, rec)

	c.PollOnce()

	if _, ok := rec.Lookup("u9"); ok {
		t.Error("session with nothing playing bound an entity")
	}
}

func TestNudgeCoalesces(t *testing.T) {
	c := newTestCoordinator(&fakeSource{}, NewReconciler())

	c.Nudge()
	c.Nudge()
	c.Nudge()

	if len(c.nudge) != 1 {
		t.Errorf("pending nudges = %d, want 1", len(c.nudge))
	}
}
