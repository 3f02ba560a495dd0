package service

import (
	"time"

	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
)

// pageDelay is the fixed pause between playlist pages, respecting the
// external API's rate limits.
const pageDelay = 500 * time.Millisecond

// CatalogIngestor pages through the configured playlist and assembles the
// complete video list. It never retries: any transport failure propagates to
// the tracker, which treats the whole cycle as failed.
type CatalogIngestor struct {
	api        YouTubeAPI
	playlistID string
	delay      time.Duration
}

// NewCatalogIngestor creates an ingestor for one playlist
func NewCatalogIngestor(api YouTubeAPI, playlistID string) *CatalogIngestor {
	return &CatalogIngestor{
		api:        api,
		playlistID: playlistID,
		delay:      pageDelay,
	}
}

// FetchAll materializes every video on the playlist with its current
// statistics. Entries without a video reference are skipped; a page that
// yields zero usable IDs but carries a continuation token advances rather
// than ending the fetch. Statistics are appended in response order; the
// batch response is not assumed to be sorted like the request.
func (ing *CatalogIngestor) FetchAll() ([]model.VideoSnapshot, error) {
	var all []model.VideoSnapshot
	pageToken := ""
	pageNum := 1

	logger.Info("Fetching videos from playlist", map[string]interface{}{
		"playlist_id": ing.playlistID,
	})

	for {
		page, err := ing.api.GetPlaylistPage(ing.playlistID, pageToken)
		if err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			logger.Info("No more results available", map[string]interface{}{
				"page": pageNum,
			})
			break
		}

		videoIDs := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			if id := item.Snippet.ResourceID.VideoID; id != "" {
				videoIDs = append(videoIDs, id)
			}
		}

		logger.Info("Fetched playlist page", map[string]interface{}{
			"page":   pageNum,
			"videos": len(videoIDs),
		})

		if len(videoIDs) == 0 {
			// Not end-of-data: advance via the continuation token if there is one.
			pageToken = page.NextPageToken
			if pageToken == "" {
				break
			}
			pageNum++
			time.Sleep(ing.delay)
			continue
		}

		stats, err := ing.api.GetVideoStatistics(videoIDs)
		if err != nil {
			return nil, err
		}

		for _, item := range stats.Items {
			all = append(all, model.VideoSnapshot{
				VideoID:     item.ID,
				Title:       item.Snippet.Title,
				ViewCount:   item.Views(),
				PublishedAt: item.Snippet.PublishedAt,
			})
		}

		logger.Info("Fetched statistics batch", map[string]interface{}{
			"page":  pageNum,
			"total": len(all),
		})

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
		pageNum++
		time.Sleep(ing.delay)
	}

	logger.Info("Playlist fetch completed", map[string]interface{}{
		"total_videos": len(all),
		"pages":        pageNum,
	})

	return all, nil
}
