package jellyfin

// JSON shapes consumed from the Jellyfin REST API. Fields the bridge does not
// read are omitted; the decoder ignores anything extra.

// Session is one entry from GET /Sessions. The session id is ephemeral and
// reused by the server for the lifetime of one client connection.
type Session struct {
	ID                string   `json:"Id"`
	UserID            string   `json:"UserId"`
	UserName          string   `json:"UserName"`
	Client            string   `json:"Client"`
	DeviceName        string   `json:"DeviceName"`
	DeviceID          string   `json:"DeviceId"`
	SupportedCommands []string `json:"SupportedCommands"`

	NowPlayingItem *NowPlayingItem `json:"NowPlayingItem"`
	PlayState      *PlayState      `json:"PlayState"`
}

// NowPlayingItem is the item a session is currently playing, when any.
type NowPlayingItem struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"` // Movie, Episode, Audio, ...
	SeriesName        string            `json:"SeriesName"`
	ParentIndexNumber *int              `json:"ParentIndexNumber"` // season
	IndexNumber       *int              `json:"IndexNumber"`       // episode
	RunTimeTicks      int64             `json:"RunTimeTicks"`
	ProductionYear    *int              `json:"ProductionYear"`
	CommunityRating   *float64          `json:"CommunityRating"`
	OfficialRating    string            `json:"OfficialRating"`
	ImageTags         map[string]string `json:"ImageTags"`
}

// PlayState carries the transport state of a session.
type PlayState struct {
	IsPaused      bool  `json:"IsPaused"`
	PositionTicks int64 `json:"PositionTicks"`
	VolumeLevel   *int  `json:"VolumeLevel"` // 0-100, absent for clients without volume reporting
	IsMuted       bool  `json:"IsMuted"`
}

// SystemInfo is GET /System/Info.
type SystemInfo struct {
	ID              string `json:"Id"`
	ServerName      string `json:"ServerName"`
	Version         string `json:"Version"`
	ProductName     string `json:"ProductName"`
	OperatingSystem string `json:"OperatingSystem"`
}

// ItemCounts is GET /Items/Counts.
type ItemCounts struct {
	MovieCount   int `json:"MovieCount"`
	SeriesCount  int `json:"SeriesCount"`
	EpisodeCount int `json:"EpisodeCount"`
	SongCount    int `json:"SongCount"`
	AlbumCount   int `json:"AlbumCount"`
	ArtistCount  int `json:"ArtistCount"`
}

// Item is one library item from GET /Items or /Shows/Upcoming, requested
// with the detail fields the sensors read.
type Item struct {
	ID                string   `json:"Id"`
	Name              string   `json:"Name"`
	Type              string   `json:"Type"`
	Overview          string   `json:"Overview"`
	Genres            []string `json:"Genres"`
	Studios           []Studio `json:"Studios"`
	CommunityRating   *float64 `json:"CommunityRating"`
	OfficialRating    string   `json:"OfficialRating"`
	ProductionYear    *int     `json:"ProductionYear"`
	PremiereDate      string   `json:"PremiereDate"`
	DateCreated       string   `json:"DateCreated"`
	RunTimeTicks      int64    `json:"RunTimeTicks"`
	SeriesName        string   `json:"SeriesName"`
	SeriesID          string   `json:"SeriesId"`
	ParentIndexNumber *int     `json:"ParentIndexNumber"`
	IndexNumber       *int     `json:"IndexNumber"`
}

type Studio struct {
	Name string `json:"Name"`
}

// ItemsPage is the envelope item queries come back in.
type ItemsPage struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// User is one entry from GET /Users.
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}
