package scheduler

import (
	"strings"
	"time"

	"github.com/jmpark/tinydesk-backend/config"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// NormalizeCronExpression widens 3-6 field cron expressions to the standard
// 5 fields. 3 fields get minute/hour/day-of-month semantics with the rest
// wildcarded; a 6th field is treated as a discarded year field. Fewer than 3
// fields, or more than 6, is invalid.
func NormalizeCronExpression(expr string) (string, bool) {
	fields := strings.Fields(expr)
	switch {
	case len(fields) < 3:
		return "", false
	case len(fields) == 3:
		fields = append(fields, "*", "*")
	case len(fields) == 4:
		fields = append(fields, "*")
	case len(fields) <= 6:
		fields = fields[:5]
	default:
		return "", false
	}
	return strings.Join(fields, " "), true
}

// ComputeNextUpdate returns the epoch second of the next update. Pure:
// callers pass now explicitly. Strategy precedence, first applicable wins:
//
//  1. a normalizable, parseable cron expression: next fire strictly after now
//  2. a comma-separated HH:MM list: nearest future occurrence across the
//     valid tokens, rolling to tomorrow once today's slot has passed
//  3. lastUpdate (or now when there was no previous update) plus the
//     configured interval
func ComputeNextUpdate(cfg *config.UpdateConfig, lastUpdate int64, now time.Time) int64 {
	if cfg.Cron != "" {
		if normalized, ok := NormalizeCronExpression(cfg.Cron); ok {
			if schedule, err := cron.ParseStandard(normalized); err == nil {
				return schedule.Next(now).Unix()
			}
		}
	}

	if candidates := nextScheduleTimes(cfg.Schedule, now); len(candidates) > 0 {
		next := candidates[0]
		for _, c := range candidates[1:] {
			if c.Before(next) {
				next = c
			}
		}
		return next.Unix()
	}

	base := now
	if lastUpdate > 0 {
		base = time.Unix(lastUpdate, 0)
	}
	return base.Add(time.Duration(cfg.IntervalHours * float64(time.Hour))).Unix()
}

// nextScheduleTimes resolves each valid HH:MM token to its next occurrence.
// Invalid tokens are skipped with a diagnostic, never fatal.
func nextScheduleTimes(schedule string, now time.Time) []time.Time {
	var candidates []time.Time
	for _, token := range strings.Split(schedule, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		parsed, err := time.Parse("15:04", token)
		if err != nil {
			logger.Warn("Skipping invalid time in update schedule, expected HH:MM", map[string]interface{}{
				"token": token,
			})
			continue
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}
