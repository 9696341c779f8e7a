// Package sensors maps API responses onto the flat sensor values the bridge
// exposes. Everything here is a stateless translation; the coordinator owns
// reachability, the client owns transport.
package sensors

import (
	"jellybridge/internal/bridge"
	"jellybridge/internal/jellyfin"
)

// LibraryCounts mirrors the original integration's library sensors.
type LibraryCounts struct {
	Movies   int `json:"movies"`
	Shows    int `json:"shows"`
	Episodes int `json:"episodes"`
	Music    int `json:"music"`
}

// LibraryFromCounts maps /Items/Counts onto the sensor shape. Songs, not
// albums, are what the music sensor counts.
func LibraryFromCounts(c *jellyfin.ItemCounts) LibraryCounts {
	if c == nil {
		return LibraryCounts{}
	}
	return LibraryCounts{
		Movies:   c.MovieCount,
		Shows:    c.SeriesCount,
		Episodes: c.EpisodeCount,
		Music:    c.SongCount,
	}
}

// ServerState is the server-status sensor value plus its attributes.
type ServerState struct {
	Status          bridge.ServerStatus `json:"status"`
	ServerName      string              `json:"server_name,omitempty"`
	ServerID        string              `json:"server_id,omitempty"`
	Version         string              `json:"version,omitempty"`
	OperatingSystem string              `json:"operating_system,omitempty"`
}

// ServerFromInfo combines the coordinator's reachability verdict with the
// server's self-description. info may be nil when the server is unreachable.
func ServerFromInfo(status bridge.ServerStatus, info *jellyfin.SystemInfo) ServerState {
	st := ServerState{Status: status}
	if info != nil {
		st.ServerName = info.ServerName
		st.ServerID = info.ID
		st.Version = info.Version
		st.OperatingSystem = info.OperatingSystem
	}
	return st
}

// MediaItem is one recently-added or upcoming library item, flattened the
// way the playback state flattens sessions.
type MediaItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	SeriesName      string   `json:"series_name,omitempty"`
	SeasonNumber    *int     `json:"season_number,omitempty"`
	EpisodeNumber   *int     `json:"episode_number,omitempty"`
	AirDate         string   `json:"air_date,omitempty"`
	DateCreated     string   `json:"date_created,omitempty"`
	Overview        string   `json:"overview,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	Studio          string   `json:"studio,omitempty"`
	CommunityRating *float64 `json:"community_rating,omitempty"`
	OfficialRating  string   `json:"official_rating,omitempty"`
	ProductionYear  *int     `json:"production_year,omitempty"`
	RuntimeSeconds  int64    `json:"runtime_seconds"`
	PosterURL       string   `json:"poster_url,omitempty"`
	FanartURL       string   `json:"fanart_url,omitempty"`
}

// MediaItemsFromItems flattens raw library items. poster resolves an item id
// to its primary artwork, fanart to a backdrop; either may be nil. Episode
// fanart comes from the parent series, matching how clients render it.
func MediaItemsFromItems(items []jellyfin.Item, poster, fanart func(itemID string) string) []MediaItem {
	out := make([]MediaItem, 0, len(items))
	for _, it := range items {
		m := MediaItem{
			ID:              it.ID,
			Title:           it.Name,
			SeriesName:      it.SeriesName,
			SeasonNumber:    it.ParentIndexNumber,
			EpisodeNumber:   it.IndexNumber,
			AirDate:         it.PremiereDate,
			DateCreated:     it.DateCreated,
			Overview:        it.Overview,
			Genres:          it.Genres,
			CommunityRating: it.CommunityRating,
			OfficialRating:  it.OfficialRating,
			ProductionYear:  it.ProductionYear,
			RuntimeSeconds:  it.RunTimeTicks / 10_000_000,
		}
		if len(it.Studios) > 0 {
			m.Studio = it.Studios[0].Name
		}
		if poster != nil {
			m.PosterURL = poster(it.ID)
		}
		if fanart != nil {
			fanartID := it.ID
			if it.SeriesID != "" {
				fanartID = it.SeriesID
			}
			m.FanartURL = fanart(fanartID)
		}
		out = append(out, m)
	}
	return out
}

// LatestMedia groups the recently-added lists attached to the library sensor.
type LatestMedia struct {
	Movies   []MediaItem `json:"movies"`
	Episodes []MediaItem `json:"episodes"`
	Music    []MediaItem `json:"music"`
}

// ActiveSessionCount counts sessions with something playing, matching the
// entity-binding rule: a connected but idle client does not count.
func ActiveSessionCount(sessions []jellyfin.Session) int {
	n := 0
	for _, s := range sessions {
		if s.NowPlayingItem != nil {
			n++
		}
	}
	return n
}
