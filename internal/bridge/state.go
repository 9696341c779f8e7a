package bridge

// ticksPerSecond is the Jellyfin tick resolution (100ns units).
const ticksPerSecond = 10_000_000

// MediaType is the normalized kind of the item a session is playing.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeOther   MediaType = "other"
	MediaTypeNone    MediaType = ""
)

// Capability is a bitmask of the control operations a session's client
// advertises.
type Capability uint8

const (
	CapSeek Capability = 1 << iota
	CapPause
	CapSetVolume
	CapMute
	CapNext
	CapPrevious
)

// Has reports whether all bits of f are set.
func (c Capability) Has(f Capability) bool {
	return c&f == f
}

// Names returns the set bits as attribute strings for the HTTP surface.
func (c Capability) Names() []string {
	names := []string{}
	for _, e := range []struct {
		cap  Capability
		name string
	}{
		{CapSeek, "seek"},
		{CapPause, "pause"},
		{CapSetVolume, "set_volume"},
		{CapMute, "mute"},
		{CapNext, "next"},
		{CapPrevious, "previous"},
	} {
		if c.Has(e.cap) {
			names = append(names, e.name)
		}
	}
	return names
}

// PlaybackState is the flattened, platform-agnostic view of one session.
// This is what entity consumers see; nothing Jellyfin-shaped leaks past it.
type PlaybackState struct {
	EntityKey       string     `json:"entity_key"`
	SessionID       string     `json:"session_id"`
	UserName        string     `json:"user_name"`
	Client          string     `json:"client"`
	DeviceName      string     `json:"device_name"`
	IsPlaying       bool       `json:"is_playing"`
	PositionSeconds float64    `json:"position_seconds"`
	DurationSeconds float64    `json:"duration_seconds"`
	VolumePercent   int        `json:"volume_percent"`
	IsMuted         bool       `json:"is_muted"`
	MediaType       MediaType  `json:"media_type,omitempty"`
	Title           string     `json:"title"`
	SeriesName      string     `json:"series_name,omitempty"`
	SeasonNumber    *int       `json:"season_number,omitempty"`
	EpisodeNumber   *int       `json:"episode_number,omitempty"`
	ProductionYear  *int       `json:"production_year,omitempty"`
	CommunityRating *float64   `json:"community_rating,omitempty"`
	OfficialRating  string     `json:"official_rating,omitempty"`
	ArtworkURL      string     `json:"artwork_url,omitempty"`
	Capabilities    Capability `json:"capabilities"`
}

// Equal compares two states by value. Used for update debouncing, so every
// externally visible field participates.
func (s PlaybackState) Equal(o PlaybackState) bool {
	return s.EntityKey == o.EntityKey &&
		s.SessionID == o.SessionID &&
		s.UserName == o.UserName &&
		s.Client == o.Client &&
		s.DeviceName == o.DeviceName &&
		s.IsPlaying == o.IsPlaying &&
		s.PositionSeconds == o.PositionSeconds &&
		s.DurationSeconds == o.DurationSeconds &&
		s.VolumePercent == o.VolumePercent &&
		s.IsMuted == o.IsMuted &&
		s.MediaType == o.MediaType &&
		s.Title == o.Title &&
		s.SeriesName == o.SeriesName &&
		eqIntPtr(s.SeasonNumber, o.SeasonNumber) &&
		eqIntPtr(s.EpisodeNumber, o.EpisodeNumber) &&
		eqIntPtr(s.ProductionYear, o.ProductionYear) &&
		eqFloatPtr(s.CommunityRating, o.CommunityRating) &&
		s.OfficialRating == o.OfficialRating &&
		s.ArtworkURL == o.ArtworkURL &&
		s.Capabilities == o.Capabilities
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// EntityRecord is the long-lived per-user record owned by the Reconciler.
// Records are created on first sighting of a user id and never removed; a
// user with no session is Idle, not gone.
type EntityRecord struct {
	Key      string
	UserName string
	Idle     bool

	// Current retains the last active state while Idle. Its session id is
	// deliberately stale so late commands can still name a last-known
	// session; the Dispatcher re-checks freshness before trusting it.
	Current PlaybackState

	// PreviousSessionID is the session id the entity held when it last
	// went Idle.
	PreviousSessionID string

	// LastSeenPollTick is bumped only on active sightings. Its distance
	// from the reconciler's current tick is how many polls ago the
	// session vanished.
	LastSeenPollTick int64
}

// Update is one emitted entity change. Updates are only produced for real
// transitions; identical consecutive states are suppressed.
type Update struct {
	Key      string        `json:"entity_key"`
	UserName string        `json:"user_name"`
	Idle     bool          `json:"idle"`
	State    PlaybackState `json:"state"`
	PollTick int64         `json:"poll_tick"`
}
