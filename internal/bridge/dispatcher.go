package bridge

import (
	"fmt"

	"jellybridge/internal/logging"
)

// Command is an entity-level playback command.
type Command string

const (
	CmdPlay      Command = "play"
	CmdPause     Command = "pause"
	CmdPlayPause Command = "playpause"
	CmdStop      Command = "stop"
	CmdNext      Command = "next"
	CmdPrevious  Command = "previous"
	CmdSeek      Command = "seek"
	CmdSetVolume Command = "volume"
	CmdMute      Command = "mute"
)

// ParseCommand maps a route segment to a Command.
func ParseCommand(s string) (Command, bool) {
	switch Command(s) {
	case CmdPlay, CmdPause, CmdPlayPause, CmdStop, CmdNext, CmdPrevious, CmdSeek, CmdSetVolume, CmdMute:
		return Command(s), true
	}
	return "", false
}

// Args carries command parameters. Only the field matching the command is
// read.
type Args struct {
	SeekSeconds   float64
	VolumePercent int
	Mute          bool
}

// ErrorCode classifies command-path failures. These are modeled states
// returned to the caller, never panics.
type ErrorCode string

const (
	ErrUnknownEntity   ErrorCode = "unknown_entity"
	ErrNoActiveSession ErrorCode = "no_active_session"
	ErrUnsupported     ErrorCode = "unsupported"
	ErrUnknownCommand  ErrorCode = "unknown_command"
	ErrStaleSession    ErrorCode = "stale_session"
)

type CommandError struct {
	Code      ErrorCode
	EntityKey string
	Command   Command
	Reason    string
}

func (e *CommandError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s %q: %s", e.Code, e.Command, e.EntityKey, e.Reason)
	}
	return fmt.Sprintf("%s: %s %q", e.Code, e.Command, e.EntityKey)
}

// SessionController is the slice of the Jellyfin client the dispatcher
// needs. *jellyfin.Client satisfies it.
type SessionController interface {
	PlayPause(sessionID string) error
	Stop(sessionID string) error
	NextTrack(sessionID string) error
	PreviousTrack(sessionID string) error
	Seek(sessionID string, positionTicks int64) error
	SetVolume(sessionID string, percent int) error
	Mute(sessionID string, mute bool) error
}

// Dispatcher resolves entity commands to session-scoped API calls.
type Dispatcher struct {
	rec *Reconciler
	ctl SessionController

	// staleTolerance is how many poll ticks an entity's last sighting may
	// lag before a dispatch is flagged stale. Stale dispatches are still
	// attempted; sessions can legitimately go quiet without ending.
	staleTolerance int64
}

func NewDispatcher(rec *Reconciler, ctl SessionController) *Dispatcher {
	return &Dispatcher{
		rec:            rec,
		ctl:            ctl,
		staleTolerance: 1,
	}
}

// requiredCap returns the capability a command is gated on. Stop is never
// gated; every client that reports a session can be told to stop.
func requiredCap(cmd Command) Capability {
	switch cmd {
	case CmdPlay, CmdPause, CmdPlayPause:
		return CapPause
	case CmdSeek:
		return CapSeek
	case CmdSetVolume:
		return CapSetVolume
	case CmdMute:
		return CapMute
	case CmdNext:
		return CapNext
	case CmdPrevious:
		return CapPrevious
	default:
		return 0
	}
}

// Dispatch issues cmd against the entity's current session. On success it
// makes exactly one outbound call; every pre-call rejection makes zero. The
// returned warning is non-nil when the entity's record was stale but the
// call was attempted anyway.
func (d *Dispatcher) Dispatch(key string, cmd Command, args Args) (warning *CommandError, err error) {
	rec, tick, ok := d.rec.LookupWithTick(key)
	if !ok {
		return nil, &CommandError{Code: ErrUnknownEntity, EntityKey: key, Command: cmd}
	}
	if rec.Idle {
		return nil, &CommandError{Code: ErrNoActiveSession, EntityKey: key, Command: cmd}
	}

	if need := requiredCap(cmd); need != 0 && !rec.Current.Capabilities.Has(need) {
		return nil, &CommandError{
			Code:      ErrUnsupported,
			EntityKey: key,
			Command:   cmd,
			Reason:    "client does not advertise this control",
		}
	}

	if lag := tick - rec.LastSeenPollTick; lag > d.staleTolerance {
		warning = &CommandError{
			Code:      ErrStaleSession,
			EntityKey: key,
			Command:   cmd,
			Reason:    fmt.Sprintf("session last seen %d polls ago", lag),
		}
		logging.Warn("Dispatching against stale session",
			"entity_key", key, "command", string(cmd), "lag_polls", lag)
	}

	sessionID := rec.Current.SessionID
	switch cmd {
	case CmdPlay, CmdPause, CmdPlayPause:
		err = d.ctl.PlayPause(sessionID)
	case CmdStop:
		err = d.ctl.Stop(sessionID)
	case CmdNext:
		err = d.ctl.NextTrack(sessionID)
	case CmdPrevious:
		err = d.ctl.PreviousTrack(sessionID)
	case CmdSeek:
		err = d.ctl.Seek(sessionID, int64(args.SeekSeconds*ticksPerSecond))
	case CmdSetVolume:
		err = d.ctl.SetVolume(sessionID, args.VolumePercent)
	case CmdMute:
		err = d.ctl.Mute(sessionID, args.Mute)
	default:
		return nil, &CommandError{Code: ErrUnknownCommand, EntityKey: key, Command: cmd}
	}

	if err != nil {
		return warning, fmt.Errorf("dispatch %s to session %s: %w", cmd, sessionID, err)
	}
	return warning, nil
}
