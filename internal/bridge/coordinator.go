package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/logging"
)

// ServerStatus is the coordinator's view of the Jellyfin server, surfaced by
// the server-status sensor. Transient fetch failures flip this to offline
// but never touch entity state.
type ServerStatus string

const (
	StatusUnknown    ServerStatus = "unknown"
	StatusOnline     ServerStatus = "online"
	StatusOffline    ServerStatus = "offline"
	StatusAuthFailed ServerStatus = "auth_failed"
)

// SessionSource is the slice of the Jellyfin client the coordinator polls.
type SessionSource interface {
	GetSessions() ([]jellyfin.Session, error)
}

// UpdateSink receives each poll's emitted updates as one batch. The registry
// store and the websocket hub both implement it.
type UpdateSink interface {
	ApplyUpdates(updates []Update)
}

// Coordinator drives the poll cycle: fetch sessions, normalize, reconcile,
// fan updates out to sinks. Command dispatch is not its concern; that path
// stays immediate and on-demand.
type Coordinator struct {
	source SessionSource
	norm   Normalizer
	rec    *Reconciler
	sinks  []UpdateSink

	interval         time.Duration
	backoffThreshold int
	backoffMax       time.Duration

	mu       sync.Mutex
	status   ServerStatus
	failures int

	nudge  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCoordinator(source SessionSource, norm Normalizer, rec *Reconciler, interval time.Duration, backoffThreshold int, backoffMax time.Duration) *Coordinator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if backoffThreshold <= 0 {
		backoffThreshold = 3
	}
	if backoffMax < interval {
		backoffMax = 2 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		source:           source,
		norm:             norm,
		rec:              rec,
		interval:         interval,
		backoffThreshold: backoffThreshold,
		backoffMax:       backoffMax,
		status:           StatusUnknown,
		nudge:            make(chan struct{}, 1),
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
	}
}

// AddSink registers an update consumer. Call before Start.
func (c *Coordinator) AddSink(s UpdateSink) {
	c.sinks = append(c.sinks, s)
}

// Start begins the polling goroutine.
func (c *Coordinator) Start() {
	go c.run()
}

// Stop cancels the loop and waits for the in-flight cycle to finish, so no
// partially fanned-out batch is left behind.
func (c *Coordinator) Stop() {
	c.cancel()
	<-c.done
}

// Nudge requests an immediate out-of-band poll, e.g. when the server socket
// reports session activity. Coalesces when one is already pending.
func (c *Coordinator) Nudge() {
	select {
	case c.nudge <- struct{}{}:
	default:
	}
}

// Status returns the current server status.
func (c *Coordinator) Status() ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) run() {
	defer close(c.done)

	c.PollOnce()
	timer := time.NewTimer(c.delay())
	defer timer.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-timer.C:
		case <-c.nudge:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		c.PollOnce()
		timer.Reset(c.delay())
	}
}

// delay widens exponentially once consecutive failures pass the threshold,
// capped at backoffMax, so an unreachable server is not hammered.
func (c *Coordinator) delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failures <= c.backoffThreshold {
		return c.interval
	}
	shift := c.failures - c.backoffThreshold
	if shift > 10 {
		shift = 10
	}
	d := c.interval << uint(shift)
	if d > c.backoffMax || d < c.interval {
		d = c.backoffMax
	}
	return d
}

// PollOnce runs a single fetch-normalize-reconcile cycle. Exported so main
// can prime state before serving and tests can step the loop by hand.
func (c *Coordinator) PollOnce() {
	sessions, err := c.source.GetSessions()
	if err != nil {
		c.recordFailure(err)
		return
	}

	// Sessions with nothing playing never bind an entity; a connected but
	// idle client is the same as no session for that user.
	states := make([]PlaybackState, 0, len(sessions))
	for _, s := range sessions {
		if s.NowPlayingItem == nil {
			continue
		}
		states = append(states, c.norm.Normalize(s))
	}

	updates := c.rec.Reconcile(states)

	c.mu.Lock()
	if c.status != StatusOnline {
		logging.Info("Jellyfin server reachable", "active_sessions", len(states))
	}
	c.status = StatusOnline
	c.failures = 0
	c.mu.Unlock()

	if len(updates) == 0 {
		return
	}
	logging.Debug("Poll cycle emitted updates", "count", len(updates), "tick", c.rec.Tick())
	for _, sink := range c.sinks {
		sink.ApplyUpdates(updates)
	}
}

// recordFailure marks the server offline (or auth-failed) without mutating
// any entity record; prior playback state stays exactly as it was.
func (c *Coordinator) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	if errors.Is(err, jellyfin.ErrAuth) {
		if c.status != StatusAuthFailed {
			logging.Error("Jellyfin rejected the API key", "error", err.Error())
		}
		c.status = StatusAuthFailed
		return
	}
	c.status = StatusOffline
	logging.Warn("Session poll failed", "consecutive_failures", c.failures, "error", err.Error())
}
