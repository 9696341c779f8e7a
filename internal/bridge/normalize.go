package bridge

import (
	"jellybridge/internal/jellyfin"
)

// commandCaps is the fixed lookup of recognized Jellyfin command names.
// Strings outside this table are ignored, never treated as errors; client
// apps invent capability names freely.
var commandCaps = map[string]Capability{
	"PlayPause":     CapPause,
	"Pause":         CapPause,
	"Seek":          CapSeek,
	"SetVolume":     CapSetVolume,
	"VolumeSet":     CapSetVolume,
	"Mute":          CapMute,
	"Unmute":        CapMute,
	"ToggleMute":    CapMute,
	"NextTrack":     CapNext,
	"PreviousTrack": CapPrevious,
}

// Normalizer flattens raw Jellyfin sessions into PlaybackState values.
// It is total over the session shape: missing optional fields map to their
// type's neutral value so one partial record can never abort a poll cycle.
type Normalizer struct {
	// ImageURL resolves an item id to a primary-artwork URL. Optional.
	ImageURL func(itemID string) string
}

// Normalize converts one raw session record. It never fails.
func (n Normalizer) Normalize(s jellyfin.Session) PlaybackState {
	st := PlaybackState{
		EntityKey:  s.UserID,
		SessionID:  s.ID,
		UserName:   s.UserName,
		Client:     s.Client,
		DeviceName: s.DeviceName,
	}

	paused := false
	if ps := s.PlayState; ps != nil {
		paused = ps.IsPaused
		// Ticks to seconds by integer division with truncation, matching
		// the server's own tick resolution.
		st.PositionSeconds = float64(ps.PositionTicks / ticksPerSecond)
		st.IsMuted = ps.IsMuted
		if ps.VolumeLevel != nil {
			st.VolumePercent = *ps.VolumeLevel
		}
	}

	if item := s.NowPlayingItem; item != nil {
		// A session with no now-playing item is never "playing",
		// whatever its pause flag says.
		st.IsPlaying = !paused
		st.Title = item.Name
		st.MediaType = mediaTypeOf(item.Type)
		st.DurationSeconds = float64(item.RunTimeTicks / ticksPerSecond)
		st.SeriesName = item.SeriesName
		st.SeasonNumber = item.ParentIndexNumber
		st.EpisodeNumber = item.IndexNumber
		st.ProductionYear = item.ProductionYear
		st.CommunityRating = item.CommunityRating
		st.OfficialRating = item.OfficialRating
		if n.ImageURL != nil {
			st.ArtworkURL = n.ImageURL(item.ID)
		}
	}

	for _, name := range s.SupportedCommands {
		st.Capabilities |= commandCaps[name]
	}

	return st
}

func mediaTypeOf(itemType string) MediaType {
	switch itemType {
	case "Movie":
		return MediaTypeMovie
	case "Episode":
		return MediaTypeEpisode
	case "Audio":
		return MediaTypeAudio
	case "":
		return MediaTypeNone
	default:
		return MediaTypeOther
	}
}
