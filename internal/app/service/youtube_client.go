package service

import (
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

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

// PlaylistPage is one page of a playlistItems.list response.
type PlaylistPage struct {
	Items         []PlaylistItem `json:"items"`
	NextPageToken string         `json:"nextPageToken"`
}

// PlaylistItem carries the snippet of one playlist entry. Only the video
// reference is consumed; entries without one are skipped by the ingestor.
type PlaylistItem struct {
	Snippet struct {
		ResourceID struct {
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// VideoStatsResponse is a videos.list response for a batch of IDs.
type VideoStatsResponse struct {
	Items []VideoStatsItem `json:"items"`
}

// VideoStatsItem is one video's snippet and statistics. The API encodes
// viewCount as a string.
type VideoStatsItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
}

// Views parses the view count, defaulting to 0 when missing or malformed.
func (i VideoStatsItem) Views() int64 {
	v, err := strconv.ParseInt(i.Statistics.ViewCount, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// YouTubeAPI is the external catalog collaborator: one paged playlist call
// and one batched statistics call. Transport and auth are this interface's
// concern, not its callers'.
type YouTubeAPI interface {
	GetPlaylistPage(playlistID, pageToken string) (*PlaylistPage, error)
	GetVideoStatistics(videoIDs []string) (*VideoStatsResponse, error)
}

type youTubeClient struct {
	apiKey     string
	maxResults int
	baseURL    string
	client     *http.Client
}

// NewYouTubeClient creates a YouTube Data API v3 client
func NewYouTubeClient(apiKey string, maxResultsPerRequest int) (YouTubeAPI, error) {
	if apiKey == "" {
		return nil, errors.New("YouTube API key must not be empty")
	}
	if maxResultsPerRequest <= 0 {
		return nil, errors.New("maxResultsPerRequest must be positive")
	}
	return &youTubeClient{
		apiKey:     apiKey,
		maxResults: maxResultsPerRequest,
		baseURL:    youtubeBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetPlaylistPage fetches one page of playlist entries
func (c *youTubeClient) GetPlaylistPage(playlistID, pageToken string) (*PlaylistPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("key", c.apiKey)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var page PlaylistPage
	if err := c.get("/playlistItems", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetVideoStatistics fetches snippet and statistics for a batch of video IDs
func (c *youTubeClient) GetVideoStatistics(videoIDs []string) (*VideoStatsResponse, error) {
	if len(videoIDs) == 0 {
		return &VideoStatsResponse{}, nil
	}

	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", strings.Join(videoIDs, ","))
	params.Set("key", c.apiKey)

	var stats VideoStatsResponse
	if err := c.get("/videos", params, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *youTubeClient) get(path string, params url.Values, out interface{}) error {
	resp, err := c.client.Get(c.baseURL + path + "?" + params.Encode())
	if err != nil {
		return fmt.Errorf("failed to call YouTube API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("YouTube API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse YouTube API response: %w", err)
	}
	return nil
}
