package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubYouTubeAPI struct {
	pages      []*PlaylistPage
	pageTokens []string
	statsCalls [][]string
	statsFn    func(videoIDs []string) (*VideoStatsResponse, error)
	pageErr    error
	pageCount  int
}

func (s *stubYouTubeAPI) GetPlaylistPage(_, pageToken string) (*PlaylistPage, error) {
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	s.pageTokens = append(s.pageTokens, pageToken)
	if s.pageCount >= len(s.pages) {
		return &PlaylistPage{}, nil
	}
	page := s.pages[s.pageCount]
	s.pageCount++
	return page, nil
}

func (s *stubYouTubeAPI) GetVideoStatistics(videoIDs []string) (*VideoStatsResponse, error) {
	s.statsCalls = append(s.statsCalls, videoIDs)
	if s.statsFn != nil {
		return s.statsFn(videoIDs)
	}
	resp := &VideoStatsResponse{}
	for _, id := range videoIDs {
		resp.Items = append(resp.Items, statsItem(id, "title "+id, "2020-01-01T00:00:00Z", "100"))
	}
	return resp, nil
}

func playlistItem(videoID string) PlaylistItem {
	var item PlaylistItem
	item.Snippet.ResourceID.VideoID = videoID
	return item
}

func statsItem(id, title, publishedAt, viewCount string) VideoStatsItem {
	var item VideoStatsItem
	item.ID = id
	item.Snippet.Title = title
	item.Snippet.PublishedAt = publishedAt
	item.Statistics.ViewCount = viewCount
	return item
}

func newTestIngestor(api YouTubeAPI) *CatalogIngestor {
	ing := NewCatalogIngestor(api, "PLtest")
	ing.delay = 0
	return ing
}

func TestCatalogIngestor_PagesThroughPlaylist(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("a"), playlistItem("b")}, NextPageToken: "page2"},
			{Items: []PlaylistItem{playlistItem("c")}},
		},
	}
	ing := newTestIngestor(api)

	videos, err := ing.FetchAll()
	require.NoError(t, err)
	require.Len(t, videos, 3)
	assert.Equal(t, []string{"", "page2"}, api.pageTokens, "second request must carry the continuation token")
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, api.statsCalls, "one batched stats call per page")
}

func TestCatalogIngestor_AppendsInResponseOrder(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("a"), playlistItem("b")}},
		},
		statsFn: func(videoIDs []string) (*VideoStatsResponse, error) {
			// The API does not promise request order.
			return &VideoStatsResponse{Items: []VideoStatsItem{
				statsItem("b", "Video B", "", "20"),
				statsItem("a", "Video A", "", "10"),
			}}, nil
		},
	}
	ing := newTestIngestor(api)

	videos, err := ing.FetchAll()
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "b", videos[0].VideoID)
	assert.Equal(t, "a", videos[1].VideoID)
}

func TestCatalogIngestor_SkipsEntriesWithoutVideoReference(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem(""), playlistItem("a")}},
		},
	}
	ing := newTestIngestor(api)

	videos, err := ing.FetchAll()
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, [][]string{{"a"}}, api.statsCalls)
}

func TestCatalogIngestor_EmptyPageWithTokenContinues(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("")}, NextPageToken: "page2"},
			{Items: []PlaylistItem{playlistItem("a")}},
		},
	}
	ing := newTestIngestor(api)

	videos, err := ing.FetchAll()
	require.NoError(t, err)
	require.Len(t, videos, 1, "a page with zero usable IDs but a token is not end-of-data")
	assert.Equal(t, []string{"", "page2"}, api.pageTokens)
	assert.Len(t, api.statsCalls, 1)
}

func TestCatalogIngestor_EmptyPageTerminates(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{{}},
	}
	ing := newTestIngestor(api)

	videos, err := ing.FetchAll()
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Empty(t, api.statsCalls)
}

func TestCatalogIngestor_TransportErrorPropagates(t *testing.T) {
	api := &stubYouTubeAPI{pageErr: errors.New("boom")}
	ing := newTestIngestor(api)

	_, err := ing.FetchAll()
	assert.Error(t, err, "transport failures are the tracker's problem, not retried here")
}

func TestCatalogIngestor_MalformedFieldsDefault(t *testing.T) {
	api := &stubYouTubeAPI{
		pages: []*PlaylistPage{
			{Items: []PlaylistItem{playlistItem("a")}},
		},
		statsFn: func(videoIDs []string) (*VideoStatsResponse, error) {
			return &VideoStatsResponse{Items: []VideoStatsItem{
				statsItem("a", "", "", "not-a-number"),
			}}, nil
		},
	}
	ing := newTestIngestor(api)

	videos, err := ing.FetchAll()
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "", videos[0].Title)
	assert.Equal(t, int64(0), videos[0].ViewCount)
}
