package domain

import (
	"fmt"
	"strings"
	"time"
)

// Schedule says when discovery sweeps fire. It is one of IntervalSchedule,
// CronSchedule or ManualSchedule and is resolved once at config load.
type Schedule interface {
	scheduleKind() string
}

// IntervalSchedule fires every Every, starting immediately.
type IntervalSchedule struct {
	Every time.Duration
}

// CronSchedule fires on a five-field cron expression in Location.
type CronSchedule struct {
	Expr     string
	Location *time.Location
}

// ManualSchedule runs a single sweep and stops.
type ManualSchedule struct{}

func (IntervalSchedule) scheduleKind() string { return "interval" }
func (CronSchedule) scheduleKind() string     { return "cron" }
func (ManualSchedule) scheduleKind() string   { return "manual" }

// ScheduleKind names the variant for logs.
func ScheduleKind(s Schedule) string {
	if s == nil {
		return "none"
	}
	return s.scheduleKind()
}

// ParseSchedule resolves a config tag into a Schedule. Unknown tags are an error.
func ParseSchedule(kind string, minutes int, expr, timezone string) (Schedule, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "interval":
		if minutes <= 0 {
			return nil, fmt.Errorf("interval schedule needs intervalMinutes > 0, got %d", minutes)
		}
		return IntervalSchedule{Every: time.Duration(minutes) * time.Minute}, nil
	case "cron":
		if strings.TrimSpace(expr) == "" {
			return nil, fmt.Errorf("cron schedule needs cronExpression")
		}
		loc := time.UTC
		if timezone != "" {
			var err error
			if loc, err = time.LoadLocation(timezone); err != nil {
				return nil, fmt.Errorf("cron schedule timezone %q: %w", timezone, err)
			}
		}
		return CronSchedule{Expr: strings.TrimSpace(expr), Location: loc}, nil
	case "manual":
		return ManualSchedule{}, nil
	default:
		return nil, fmt.Errorf("unknown schedule type %q (want interval, cron or manual)", kind)
	}
}
