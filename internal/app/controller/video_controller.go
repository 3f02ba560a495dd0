package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmpark/tinydesk-backend/config"
	apperrors "github.com/jmpark/tinydesk-backend/internal/errors"
	"github.com/jmpark/tinydesk-backend/internal/app/service"
	"github.com/jmpark/tinydesk-backend/internal/middleware"
	"github.com/jmpark/tinydesk-backend/internal/scheduler"
	"github.com/jmpark/tinydesk-backend/pkg/cache"
)

const (
	defaultTopLimit        = 100
	cacheKeyRankingHistory = "tinydesk:ranking-history"
	cacheKeyAnalytics      = "tinydesk:analytics"
)

// VideoController serves the read-side endpoints. "No data yet" is a valid
// state: before the first completed update every endpoint answers with
// zeros and empty collections.
type VideoController struct {
	videoService service.VideoService
	updateCfg    *config.UpdateConfig
	cache        *cache.Cache
}

// NewVideoController creates the read-side controller
func NewVideoController(videoService service.VideoService, updateCfg *config.UpdateConfig, responseCache *cache.Cache) *VideoController {
	return &VideoController{
		videoService: videoService,
		updateCfg:    updateCfg,
		cache:        responseCache,
	}
}

// GetTop returns the current ranking
// GET /api/top
func (ctrl *VideoController) GetTop(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	meta, err := ctrl.videoService.GetMetadata()
	if err != nil {
		log.Error("Failed to fetch metadata", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch metadata")
		return
	}

	videos, err := ctrl.videoService.GetTopVideos(defaultTopLimit)
	if err != nil {
		log.Error("Failed to fetch top videos", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch top videos")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos":     videos,
		"lastUpdate": meta.LastUpdate,
		"nextUpdate": scheduler.ComputeNextUpdate(ctrl.updateCfg, meta.LastUpdate, time.Now()),
		"total":      len(videos),
	})
}

// GetData returns every top video with its full view-count history
// GET /api/data
func (ctrl *VideoController) GetData(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	videos, err := ctrl.videoService.GetTopVideos(defaultTopLimit)
	if err != nil {
		log.Error("Failed to fetch top videos", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch top videos")
		return
	}

	data := gin.H{}
	for _, video := range videos {
		history, err := ctrl.videoService.GetVideoHistory(video.VideoID)
		if err != nil {
			log.Error("Failed to fetch video history", err, map[string]interface{}{
				"video_id": video.VideoID,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch video history")
			return
		}
		data[video.VideoID] = gin.H{
			"title":        video.Title,
			"currentViews": video.Views,
			"history":      history,
		}
	}

	meta, err := ctrl.videoService.GetMetadata()
	if err != nil {
		log.Error("Failed to fetch metadata", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch metadata")
		return
	}
	data["_metadata"] = meta

	c.JSON(http.StatusOK, data)
}

// GetStatus reports tracker health and bookkeeping
// GET /api/status
func (ctrl *VideoController) GetStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	meta, err := ctrl.videoService.GetMetadata()
	if err != nil {
		log.Error("Failed to fetch metadata", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch metadata")
		return
	}
	stats, err := ctrl.videoService.GetStats()
	if err != nil {
		log.Error("Failed to fetch table stats", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch table stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "online",
		"lastUpdate":  meta.LastUpdate,
		"nextUpdate":  scheduler.ComputeNextUpdate(ctrl.updateCfg, meta.LastUpdate, time.Now()),
		"totalVideos": meta.TotalVideos,
		"dbStats":     stats,
	})
}

// GetHistory returns one video's observations
// GET /api/history/:videoId
func (ctrl *VideoController) GetHistory(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	videoID := c.Param("videoId")

	history, err := ctrl.videoService.GetVideoHistory(videoID)
	if err != nil {
		log.Error("Failed to fetch video history", err, map[string]interface{}{
			"video_id": videoID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to fetch video history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videoId": videoID,
		"history": history,
	})
}

// GetRankingHistory returns rank evolution across update cycles
// GET /api/ranking-history
func (ctrl *VideoController) GetRankingHistory(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var cached service.RankingHistory
	if ctrl.cache.GetJSON(c.Request.Context(), cacheKeyRankingHistory, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	history, err := ctrl.videoService.GetRankingHistory()
	if err != nil {
		log.Error("Failed to compute ranking history", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to compute ranking history")
		return
	}

	ctrl.cache.SetJSON(c.Request.Context(), cacheKeyRankingHistory, history)
	c.JSON(http.StatusOK, history)
}

// GetAnalytics returns growth metrics per video plus aggregates
// GET /api/analytics
func (ctrl *VideoController) GetAnalytics(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var cached service.AnalyticsReport
	if ctrl.cache.GetJSON(c.Request.Context(), cacheKeyAnalytics, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	report, err := ctrl.videoService.GetAnalytics()
	if err != nil {
		log.Error("Failed to compute analytics", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to compute analytics")
		return
	}

	ctrl.cache.SetJSON(c.Request.Context(), cacheKeyAnalytics, report)
	c.JSON(http.StatusOK, report)
}

// Export streams the current ranking as an xlsx workbook
// GET /api/export
func (ctrl *VideoController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	workbook, err := ctrl.videoService.ExportRankings()
	if err != nil {
		log.Error("Failed to build ranking export", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalServerError, "Failed to build ranking export")
		return
	}
	defer workbook.Close()

	filename := "tinydesk-rankings-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := workbook.Write(c.Writer); err != nil {
		log.Error("Failed to stream ranking export", err)
	}
}
