package scheduler

import (
	"fmt"
	"time"

	"github.com/jmpark/tinydesk-backend/config"
	"github.com/jmpark/tinydesk-backend/internal/app/service"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// UpdateScheduler drives automatic update cycles. Mode selection mirrors the
// calculator's precedence: a valid cron expression runs the dedicated
// trigger loop; otherwise valid HH:MM tokens become daily jobs; otherwise a
// fixed-interval job is registered. Mutual exclusion between overlapping
// fires is the lock manager's job, not the scheduler's.
type UpdateScheduler struct {
	cfg     *config.UpdateConfig
	tracker service.TrackerService
	cron    *cron.Cron
	stop    chan struct{}
}

// NewUpdateScheduler creates the scheduler
func NewUpdateScheduler(cfg *config.UpdateConfig, tracker service.TrackerService) *UpdateScheduler {
	return &UpdateScheduler{
		cfg:     cfg,
		tracker: tracker,
		cron:    cron.New(),
		stop:    make(chan struct{}),
	}
}

// Start picks the scheduling mode and begins triggering updates
func (s *UpdateScheduler) Start() error {
	if s.cfg.Cron != "" {
		if normalized, ok := NormalizeCronExpression(s.cfg.Cron); ok {
			if schedule, err := cron.ParseStandard(normalized); err == nil {
				go s.runCronLoop(schedule)
				logger.Info("Cron-based updates enabled", map[string]interface{}{
					"cron": normalized,
				})
				return nil
			}
			logger.Warn("Cron expression failed to parse, falling back", map[string]interface{}{
				"cron": normalized,
			})
		} else {
			logger.Warn("Cron expression failed to normalize, falling back", map[string]interface{}{
				"cron": s.cfg.Cron,
			})
		}
	}

	registered := 0
	for _, candidate := range nextScheduleTimes(s.cfg.Schedule, time.Now()) {
		spec := fmt.Sprintf("%d %d * * *", candidate.Minute(), candidate.Hour())
		if _, err := s.cron.AddFunc(spec, s.tracker.Update); err != nil {
			logger.Warn("Failed to register daily update job", map[string]interface{}{
				"spec":  spec,
				"error": err.Error(),
			})
			continue
		}
		registered++
	}
	if registered > 0 {
		s.cron.Start()
		logger.Info("Daily scheduled updates enabled", map[string]interface{}{
			"schedule": s.cfg.Schedule,
			"jobs":     registered,
		})
		return nil
	}

	interval := time.Duration(s.cfg.IntervalHours * float64(time.Hour))
	if _, err := s.cron.AddFunc("@every "+interval.String(), s.tracker.Update); err != nil {
		logger.Error("Failed to register interval update job", err)
		return err
	}
	s.cron.Start()
	logger.Info("Interval-based updates enabled", map[string]interface{}{
		"interval_hours": s.cfg.IntervalHours,
	})
	return nil
}

// runCronLoop sleeps until each fire instant and recomputes the next one
// from the then-current time, so a slow update shifts the schedule instead
// of compounding drift. One failed iteration never kills the loop.
func (s *UpdateScheduler) runCronLoop(schedule cron.Schedule) {
	for {
		next := schedule.Next(time.Now())
		logger.Info("Next scheduled update", map[string]interface{}{
			"at": next.Format(time.RFC3339),
		})

		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runUpdate()
	}
}

func (s *UpdateScheduler) runUpdate() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic in scheduled update", fmt.Errorf("%v", r))
		}
	}()
	s.tracker.Update()
}

// Stop halts the cron loop and any registered jobs
func (s *UpdateScheduler) Stop() {
	close(s.stop)
	s.cron.Stop()
	logger.Info("Update scheduler stopped")
}
