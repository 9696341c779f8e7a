package sensors

import (
	"testing"

	"jellybridge/internal/bridge"
	"jellybridge/internal/jellyfin"
)

func TestLibraryFromCounts(t *testing.T) {
	got := LibraryFromCounts(&jellyfin.ItemCounts{
		MovieCount:   120,
		SeriesCount:  34,
		EpisodeCount: 890,
		SongCount:    4500,
		AlbumCount:   300,
	})

	want := LibraryCounts{Movies: 120, Shows: 34, Episodes: 890, Music: 4500}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLibraryFromCountsNil(t *testing.T) {
	if got := LibraryFromCounts(nil); got != (LibraryCounts{}) {
		t.Errorf("nil counts should map to zeros, got %+v", got)
	}
}

func TestServerFromInfo(t *testing.T) {
	info := &jellyfin.SystemInfo{
		ServerName:      "living-room",
		ID:              "abc123",
		Version:         "10.9.2",
		OperatingSystem: "Linux",
	}

	got := ServerFromInfo(bridge.StatusOnline, info)
	if got.Status != bridge.StatusOnline || got.ServerName != "living-room" || got.Version != "10.9.2" {
		t.Errorf("unexpected state %+v", got)
	}

	offline := ServerFromInfo(bridge.StatusOffline, nil)
	if offline.Status != bridge.StatusOffline || offline.ServerName != "" {
		t.Errorf("nil info should leave attributes empty, got %+v", offline)
	}
}

func TestMediaItemsFromItems(t *testing.T) {
	season, episode := 2, 5
	rating := 8.1
	items := []jellyfin.Item{{
		ID:                "ep1",
		Name:              "The One That Airs Soon",
		SeriesName:        "Some Show",
		SeriesID:          "show1",
		ParentIndexNumber: &season,
		IndexNumber:       &episode,
		PremiereDate:      "2026-09-01T00:00:00Z",
		Overview:          "things happen",
		Genres:            []string{"Drama"},
		Studios:           []jellyfin.Studio{{Name: "Studio A"}, {Name: "Studio B"}},
		CommunityRating:   &rating,
		RunTimeTicks:      27_000_000_000,
	}}

	got := MediaItemsFromItems(items,
		func(id string) string { return "poster:" + id },
		func(id string) string { return "fanart:" + id },
	)

	if len(got) != 1 {
		t.Fatalf("got %d items", len(got))
	}
	m := got[0]
	if m.Title != "The One That Airs Soon" || m.SeriesName != "Some Show" {
		t.Errorf("unexpected item %+v", m)
	}
	if *m.SeasonNumber != 2 || *m.EpisodeNumber != 5 {
		t.Errorf("season/episode = %v/%v", m.SeasonNumber, m.EpisodeNumber)
	}
	if m.RuntimeSeconds != 2700 {
		t.Errorf("runtime = %d, want 2700", m.RuntimeSeconds)
	}
	if m.Studio != "Studio A" {
		t.Errorf("studio = %q, want first studio", m.Studio)
	}
	if m.PosterURL != "poster:ep1" {
		t.Errorf("poster = %q", m.PosterURL)
	}
	if m.FanartURL != "fanart:show1" {
		t.Errorf("fanart = %q, episode fanart should come from the series", m.FanartURL)
	}
}

func TestMediaItemsFromItemsWithoutResolvers(t *testing.T) {
	got := MediaItemsFromItems([]jellyfin.Item{{ID: "m1", Name: "A Movie"}}, nil, nil)

	if len(got) != 1 || got[0].PosterURL != "" || got[0].FanartURL != "" {
		t.Errorf("nil resolvers should leave artwork empty: %+v", got)
	}
}

func TestActiveSessionCount(t *testing.T) {
	sessions := []jellyfin.Session{
		{ID: "s1", NowPlayingItem: &jellyfin.NowPlayingItem{Name: "Movie"}},
		{ID: "s2"},
		{ID: "s3", NowPlayingItem: &jellyfin.NowPlayingItem{Name: "Show"}},
	}

	if n := ActiveSessionCount(sessions); n != 2 {
		t.Errorf("got %d, want 2", n)
	}
	if n := ActiveSessionCount(nil); n != 0 {
		t.Errorf("got %d for nil, want 0", n)
	}
}
