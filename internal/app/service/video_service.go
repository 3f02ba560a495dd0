package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jmpark/tinydesk-backend/internal/app/model"
	"github.com/jmpark/tinydesk-backend/internal/app/repository"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// TrackerMetadata is the bookkeeping state written after each update cycle.
type TrackerMetadata struct {
	LastUpdate  int64 `json:"lastUpdate"`
	TotalVideos int64 `json:"totalVideos"`
}

// TableStats reports raw row counts for the status endpoint.
type TableStats struct {
	TotalVideos         int64 `json:"total_videos"`
	TotalHistoryEntries int64 `json:"total_history_entries"`
}

// RankingHistory is the rank evolution of every video across update cycles.
type RankingHistory struct {
	Timestamps     []int64                         `json:"timestamps"`
	Evolution      map[string]*model.RankEvolution `json:"evolution"`
	TopMovers      []*model.RankEvolution          `json:"topMovers"`
	BiggestFallers []*model.RankEvolution          `json:"biggestFallers"`
}

// AnalyticsStatistics aggregates across all tracked videos.
type AnalyticsStatistics struct {
	TotalVideos         int     `json:"totalVideos"`
	TotalViews          int64   `json:"totalViews"`
	AverageViews        float64 `json:"averageViews"`
	AverageViewsPerHour float64 `json:"averageViewsPerHour"`
	LastUpdate          int64   `json:"lastUpdate"`
}

// AnalyticsReport is the response of the analytics endpoint.
type AnalyticsReport struct {
	Trending      []model.VideoAnalytics `json:"trending"`
	TopPerformers []model.VideoAnalytics `json:"topPerformers"`
	Statistics    AnalyticsStatistics    `json:"statistics"`
}

// VideoService is the read side over the tracked data. An empty database is
// a valid state: every method returns zeros and empty collections, never an
// error, when no update has run yet.
type VideoService interface {
	GetTopVideos(limit int) ([]model.RankedVideo, error)
	GetVideoHistory(videoID string) ([]model.HistoryPoint, error)
	GetMetadata() (*TrackerMetadata, error)
	GetStats() (*TableStats, error)
	GetRankingHistory() (*RankingHistory, error)
	GetAnalytics() (*AnalyticsReport, error)
	ExportRankings() (*excelize.File, error)
}

type videoService struct {
	videoRepo   repository.VideoRepository
	historyRepo repository.HistoryRepository
	metaRepo    repository.MetadataRepository
	now         func() time.Time
}

// NewVideoService creates the read-side service
func NewVideoService(
	videoRepo repository.VideoRepository,
	historyRepo repository.HistoryRepository,
	metaRepo repository.MetadataRepository,
) VideoService {
	return &videoService{
		videoRepo:   videoRepo,
		historyRepo: historyRepo,
		metaRepo:    metaRepo,
		now:         time.Now,
	}
}

func videoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// GetTopVideos returns up to limit videos ranked by current view count
func (s *videoService) GetTopVideos(limit int) ([]model.RankedVideo, error) {
	videos, err := s.videoRepo.FindTop(limit)
	if err != nil {
		return nil, err
	}

	ranked := make([]model.RankedVideo, 0, len(videos))
	for i, v := range videos {
		ranked = append(ranked, model.RankedVideo{
			Rank:        i + 1,
			VideoID:     v.VideoID,
			Title:       v.Title,
			Views:       v.CurrentViews,
			PublishedAt: v.PublishedAt,
			URL:         videoURL(v.VideoID),
		})
	}
	return ranked, nil
}

// GetVideoHistory returns a video's retained observations, oldest first
func (s *videoService) GetVideoHistory(videoID string) ([]model.HistoryPoint, error) {
	return s.historyRepo.FindByVideo(videoID)
}

// GetMetadata returns the tracker bookkeeping, zero-valued before the first
// completed update
func (s *videoService) GetMetadata() (*TrackerMetadata, error) {
	all, err := s.metaRepo.GetAll()
	if err != nil {
		return nil, err
	}
	lastUpdate, _ := strconv.ParseInt(all[model.MetaLastUpdate], 10, 64)
	totalVideos, _ := strconv.ParseInt(all[model.MetaTotalVideos], 10, 64)
	return &TrackerMetadata{LastUpdate: lastUpdate, TotalVideos: totalVideos}, nil
}

// GetStats returns raw table counts
func (s *videoService) GetStats() (*TableStats, error) {
	videoCount, err := s.videoRepo.Count()
	if err != nil {
		return nil, err
	}
	historyCount, err := s.historyRepo.Count()
	if err != nil {
		return nil, err
	}
	return &TableStats{
		TotalVideos:         videoCount,
		TotalHistoryEntries: historyCount,
	}, nil
}

// GetRankingHistory replays every update cycle and derives each video's rank
// trajectory, plus the biggest movers between the last two cycles. Positive
// rankChange means the video climbed.
func (s *videoService) GetRankingHistory() (*RankingHistory, error) {
	timestamps, err := s.historyRepo.DistinctTimestamps()
	if err != nil {
		return nil, err
	}

	evolution := make(map[string]*model.RankEvolution)
	for _, ts := range timestamps {
		observations, err := s.historyRepo.FindAtTimestamp(ts)
		if err != nil {
			return nil, err
		}
		for rank, obs := range observations {
			entry, ok := evolution[obs.VideoID]
			if !ok {
				entry = &model.RankEvolution{
					VideoID:     obs.VideoID,
					Title:       obs.Title,
					PublishedAt: obs.PublishedAt,
				}
				evolution[obs.VideoID] = entry
			}
			entry.History = append(entry.History, model.RankPoint{
				Timestamp: ts,
				Rank:      rank + 1,
				Views:     obs.ViewCount,
			})
		}
	}

	videos := make([]*model.RankEvolution, 0, len(evolution))
	for _, entry := range evolution {
		switch n := len(entry.History); {
		case n >= 2:
			entry.CurrentRank = entry.History[n-1].Rank
			entry.PreviousRank = entry.History[n-2].Rank
			entry.RankChange = entry.PreviousRank - entry.CurrentRank
		case n == 1:
			entry.CurrentRank = entry.History[0].Rank
			entry.PreviousRank = entry.History[0].Rank
		}
		videos = append(videos, entry)
	}

	movers := make([]*model.RankEvolution, len(videos))
	copy(movers, videos)
	sort.SliceStable(movers, func(i, j int) bool {
		return movers[i].RankChange > movers[j].RankChange
	})
	fallers := make([]*model.RankEvolution, len(videos))
	copy(fallers, videos)
	sort.SliceStable(fallers, func(i, j int) bool {
		return fallers[i].RankChange < fallers[j].RankChange
	})

	return &RankingHistory{
		Timestamps:     timestamps,
		Evolution:      evolution,
		TopMovers:      topN(movers, 10),
		BiggestFallers: topN(fallers, 10),
	}, nil
}

func topN(entries []*model.RankEvolution, n int) []*model.RankEvolution {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

// GetAnalytics computes short-term growth (views per hour between the last
// two observations) and lifetime growth (views per hour since publication)
// for every video, plus aggregate statistics.
func (s *videoService) GetAnalytics() (*AnalyticsReport, error) {
	videos, err := s.videoRepo.FindAllByViews()
	if err != nil {
		return nil, err
	}

	analytics := make([]model.VideoAnalytics, 0, len(videos))
	var totalViews int64
	var totalGrowth float64

	for rank, v := range videos {
		totalViews += v.CurrentViews

		entry := model.VideoAnalytics{
			VideoID:      v.VideoID,
			Title:        v.Title,
			CurrentViews: v.CurrentViews,
			CurrentRank:  rank + 1,
			PublishedAt:  v.PublishedAt,
		}

		recent, err := s.historyRepo.FindRecent(v.VideoID, 2)
		if err != nil {
			return nil, err
		}
		if len(recent) >= 2 {
			latest, previous := recent[0], recent[1]
			hours := float64(latest.Timestamp-previous.Timestamp) / 3600
			if hours > 0 {
				entry.ViewsChange = latest.ViewCount - previous.ViewCount
				entry.ViewsPerHour = round2(float64(entry.ViewsChange) / hours)
				entry.HoursSinceLastUpdate = round2(hours)
			}
		}

		if v.PublishedAt != "" {
			if published, err := time.Parse(time.RFC3339, v.PublishedAt); err == nil {
				ageHours := s.now().Sub(published).Hours()
				if ageHours > 0 {
					entry.LifetimeViewsPerHour = round2(float64(v.CurrentViews) / ageHours)
				}
			} else {
				logger.Warn("Unparseable publishedAt, skipping lifetime rate", map[string]interface{}{
					"video_id":     v.VideoID,
					"published_at": v.PublishedAt,
				})
			}
		}

		totalGrowth += entry.ViewsPerHour
		analytics = append(analytics, entry)
	}

	trending := make([]model.VideoAnalytics, len(analytics))
	copy(trending, analytics)
	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].ViewsPerHour > trending[j].ViewsPerHour
	})
	performers := make([]model.VideoAnalytics, len(analytics))
	copy(performers, analytics)
	sort.SliceStable(performers, func(i, j int) bool {
		return performers[i].LifetimeViewsPerHour > performers[j].LifetimeViewsPerHour
	})

	stats := AnalyticsStatistics{
		TotalVideos: len(analytics),
		TotalViews:  totalViews,
	}
	if len(analytics) > 0 {
		stats.AverageViews = round2(float64(totalViews) / float64(len(analytics)))
		stats.AverageViewsPerHour = round2(totalGrowth / float64(len(analytics)))
	}
	meta, err := s.GetMetadata()
	if err != nil {
		return nil, err
	}
	stats.LastUpdate = meta.LastUpdate

	return &AnalyticsReport{
		Trending:      capAnalytics(trending, 10),
		TopPerformers: capAnalytics(performers, 10),
		Statistics:    stats,
	}, nil
}

func capAnalytics(entries []model.VideoAnalytics, n int) []model.VideoAnalytics {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ExportRankings builds an xlsx workbook with the current ranking snapshot
func (s *videoService) ExportRankings() (*excelize.File, error) {
	videos, err := s.videoRepo.FindAllByViews()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Rankings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []interface{}{"Rank", "Video ID", "Title", "Views", "Published At", "URL"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, v := range videos {
		row := []interface{}{i + 1, v.VideoID, v.Title, v.CurrentViews, v.PublishedAt, videoURL(v.VideoID)}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}
