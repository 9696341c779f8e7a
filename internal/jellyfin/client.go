package jellyfin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrAuth marks responses where the server rejected the API key. Callers use
// errors.Is to tell a bad key apart from a transient transport failure.
var ErrAuth = errors.New("jellyfin: api key rejected")

// Client talks to one Jellyfin server. It holds no playback state; every
// method is a plain request/response call.
type Client struct {
	BaseURL     string
	APIKey      string
	ImgMaxWidth int
	http        *http.Client
}

// New creates a client for the given server. timeout bounds every request,
// including session-control POSTs.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		ImgMaxWidth: 300,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// readJSON enforces 200 OK and JSON-decodes into dst.
// On failure, it returns an error that includes status and a short body snippet.
func readJSON(resp *http.Response, dst any) error {
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("http %d from %s: %w", resp.StatusCode, resp.Request.URL.Path, ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(b)
		if len(snippet) > 240 {
			snippet = snippet[:240] + "…"
		}
		return fmt.Errorf("http %d from %s: %s", resp.StatusCode, resp.Request.URL.String(), snippet)
	}

	if err := json.Unmarshal(b, dst); err != nil {
		snippet := string(b)
		if len(snippet) > 240 {
			snippet = snippet[:240] + "…"
		}
		return fmt.Errorf("decode json from %s: %w; body: %q", resp.Request.URL.String(), err, snippet)
	}
	return nil
}

func (c *Client) get(endpoint string, dst any) error {
	u := fmt.Sprintf("%s%s", c.BaseURL, endpoint)
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Emby-Token", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return readJSON(resp, dst)
}

// post sends a command-style request. Jellyfin answers most of these with
// 204 No Content, so any 2xx counts as success.
func (c *Client) post(endpoint string, body any) error {
	u := fmt.Sprintf("%s%s", c.BaseURL, endpoint)

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(http.MethodPost, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("X-Emby-Token", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("http %d from %s: %w", resp.StatusCode, endpoint, ErrAuth)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d from %s", resp.StatusCode, endpoint)
	}
	return nil
}

// GetSessions returns the server's current session list, including sessions
// with nothing playing. Filtering is the caller's concern.
func (c *Client) GetSessions() ([]Session, error) {
	var out []Session
	if err := c.get("/Sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSystemInfo() (*SystemInfo, error) {
	var out SystemInfo
	if err := c.get("/System/Info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetItemCounts() (*ItemCounts, error) {
	var out ItemCounts
	if err := c.get("/Items/Counts", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// itemFields is the detail set the media sensors read from item queries.
const itemFields = "Overview,Genres,Studios,CommunityRating,OfficialRating,ProductionYear,PremiereDate,DateCreated,RunTimeTicks,SeriesName,ParentIndexNumber,IndexNumber,SeriesId"

// GetUpcomingEpisodes returns episodes the server expects to air soon.
func (c *Client) GetUpcomingEpisodes(limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("Limit", strconv.Itoa(limit))
	q.Set("Fields", itemFields)

	var page ItemsPage
	if err := c.get("/Shows/Upcoming?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetLatestMedia returns the most recently added items of one type
// (Movie, Episode or Audio), newest first.
func (c *Client) GetLatestMedia(itemType string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 30
	}
	q := url.Values{}
	q.Set("IncludeItemTypes", itemType)
	q.Set("Recursive", "true")
	q.Set("SortBy", "DateCreated")
	q.Set("SortOrder", "Descending")
	q.Set("Limit", strconv.Itoa(limit))
	q.Set("Fields", itemFields)

	var page ItemsPage
	if err := c.get("/Items?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) GetUsers() ([]User, error) {
	var out []User
	if err := c.get("/Users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- session control ---

func (c *Client) playstate(sessionID, command string, body any) error {
	return c.post(fmt.Sprintf("/Sessions/%s/Playing/%s", url.PathEscape(sessionID), command), body)
}

func (c *Client) command(sessionID, name string, args map[string]string) error {
	body := map[string]any{"Name": name}
	if args != nil {
		body["Arguments"] = args
	}
	return c.post(fmt.Sprintf("/Sessions/%s/Command", url.PathEscape(sessionID)), body)
}

// PlayPause toggles playback. Jellyfin has no separate resume endpoint for
// remote control, so play and pause both map here.
func (c *Client) PlayPause(sessionID string) error {
	return c.playstate(sessionID, "PlayPause", nil)
}

func (c *Client) Stop(sessionID string) error {
	return c.playstate(sessionID, "Stop", nil)
}

func (c *Client) NextTrack(sessionID string) error {
	return c.playstate(sessionID, "NextTrack", nil)
}

func (c *Client) PreviousTrack(sessionID string) error {
	return c.playstate(sessionID, "PreviousTrack", nil)
}

// Seek moves playback to an absolute position in ticks (100ns units).
func (c *Client) Seek(sessionID string, positionTicks int64) error {
	return c.playstate(sessionID, "Seek", map[string]int64{"SeekPositionTicks": positionTicks})
}

// SetVolume sets the client volume, 0-100. The Command endpoint wants the
// value as a string.
func (c *Client) SetVolume(sessionID string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return c.command(sessionID, "SetVolume", map[string]string{"Volume": strconv.Itoa(percent)})
}

func (c *Client) Mute(sessionID string, mute bool) error {
	name := "Mute"
	if !mute {
		name = "Unmute"
	}
	return c.command(sessionID, name, nil)
}

// SendMessage shows a popup on the session's client.
func (c *Client) SendMessage(sessionID, header, text string, timeoutMs int) error {
	if header == "" {
		header = "jellybridge"
	}
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return c.post(fmt.Sprintf("/Sessions/%s/Message", url.PathEscape(sessionID)), map[string]any{
		"Header":    header,
		"Text":      text,
		"TimeoutMs": timeoutMs,
	})
}

// RescanLibrary asks the server to refresh all libraries.
func (c *Client) RescanLibrary() error {
	return c.post("/Library/Refresh", nil)
}

// ImageURL returns the primary-image URL for an item, or "" when the item id
// is empty. The api_key rides in the query so dashboards can embed the URL.
func (c *Client) ImageURL(itemID string) string {
	return c.imageURL(itemID, "Primary")
}

// BackdropURL returns the backdrop (fanart) URL for an item.
func (c *Client) BackdropURL(itemID string) string {
	return c.imageURL(itemID, "Backdrop")
}

func (c *Client) imageURL(itemID, kind string) string {
	if itemID == "" {
		return ""
	}
	q := url.Values{}
	q.Set("maxWidth", strconv.Itoa(c.ImgMaxWidth))
	q.Set("api_key", c.APIKey)
	return fmt.Sprintf("%s/Items/%s/Images/%s?%s", c.BaseURL, url.PathEscape(itemID), kind, q.Encode())
}
