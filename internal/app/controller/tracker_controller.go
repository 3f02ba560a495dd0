package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/jmpark/tinydesk-backend/internal/errors"
	"github.com/jmpark/tinydesk-backend/internal/app/service"
	"github.com/jmpark/tinydesk-backend/internal/middleware"
)

// TrackerController exposes the manual update triggers.
type TrackerController struct {
	trackerService service.TrackerService
}

// NewTrackerController creates the update-trigger controller
func NewTrackerController(trackerService service.TrackerService) *TrackerController {
	return &TrackerController{trackerService: trackerService}
}

// TriggerUpdate starts a full update cycle in the background. Concurrent
// triggers are safe: the distributed lock turns the extras into silent
// skips.
// POST /api/update
func (ctrl *TrackerController) TriggerUpdate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	log.Info("Manual update requested")

	go ctrl.trackerService.Update()

	c.JSON(http.StatusAccepted, gin.H{
		"status": "Update started in background",
	})
}

// AddVideo fetches and saves a single video on demand
// POST /api/videos/:videoId
func (ctrl *TrackerController) AddVideo(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	videoID := c.Param("videoId")

	video, err := ctrl.trackerService.UpdateVideo(videoID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVideoNotFound):
			log.Warn("Video not found on YouTube", map[string]interface{}{
				"video_id": videoID,
			})
			apperrors.RespondWithError(c, http.StatusNotFound, apperrors.VideoNotFound, "Video "+videoID+" not found")
		case errors.Is(err, service.ErrExternalAPIFailed):
			log.Error("YouTube API failure while adding video", err, map[string]interface{}{
				"video_id": videoID,
			})
			apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.InternalExternalAPI, "Failed to fetch video from YouTube")
		default:
			log.Error("Failed to add video", err, map[string]interface{}{
				"video_id": videoID,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDatabaseError, "Failed to save video")
		}
		return
	}

	log.Info("Video added successfully", map[string]interface{}{
		"video_id": video.VideoID,
	})
	c.JSON(http.StatusOK, gin.H{
		"status":  "Video added successfully",
		"videoId": video.VideoID,
		"title":   video.Title,
		"views":   video.CurrentViews,
	})
}
