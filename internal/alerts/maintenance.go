package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Window is a recurring time-of-day range. Start > End denotes a window that
// spans midnight (e.g. 23:45-00:15).
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay parses "HH:MM" into minutes since midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM)", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time values out of range in %q", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseWindow parses "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid window %q (expected HH:MM-HH:MM)", s)
	}
	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return Window{}, err
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the window, handling the
// midnight-spanning case.
func (w Window) Contains(t TimeOfDay) bool {
	if w.Start <= w.End {
		return w.Start <= t && t <= w.End
	}
	return t >= w.Start || t <= w.End
}

// ParseDays parses a comma-separated weekday allow-list (0=Monday, 6=Sunday).
// An empty or entirely invalid value means all days.
func ParseDays(s string) []int {
	allDays := []int{0, 1, 2, 3, 4, 5, 6}
	if strings.TrimSpace(s) == "" {
		return allDays
	}

	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := strconv.Atoi(part)
		if err != nil || day < 0 || day > 6 {
			continue
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return allDays
	}
	return days
}

// weekday maps time.Weekday (Sunday=0) onto the 0=Monday convention the
// day-list configuration uses.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// MaintenancePolicy suppresses non-critical alerts during recurring
// maintenance windows. Per-target windows take precedence over the global one.
type MaintenancePolicy struct {
	cfg    config.MaintenanceConfig
	logger zerolog.Logger
}

func NewMaintenancePolicy(cfg config.MaintenanceConfig, logger zerolog.Logger) *MaintenancePolicy {
	return &MaintenancePolicy{
		cfg:    cfg,
		logger: logger.With().Str("component", "maintenance_policy").Logger(),
	}
}

// ShouldSuppress applies the maintenance rules: smart/raid never suppressed,
// transitions to OK never suppressed, otherwise suppress when now is inside
// the resolved window on an allowed day.
func (p *MaintenancePolicy) ShouldSuppress(category, name string, status models.Status, now time.Time) (bool, string) {
	if category == models.CategorySmart || category == models.CategoryRaid {
		return false, "critical infrastructure alerts not suppressed"
	}
	if status == models.StatusOK {
		return false, "recovery alerts not suppressed"
	}

	window, days, source, ok := p.resolve(name)
	if !ok {
		return false, "not in maintenance window"
	}

	day := weekday(now)
	if !containsDay(days, day) {
		return false, fmt.Sprintf("maintenance window configured but not for %s", dayNames[day])
	}

	current := TimeOfDay(now.Hour()*60 + now.Minute())
	if window.Contains(current) {
		return true, fmt.Sprintf("in maintenance window: %s window %s-%s on %s",
			source, window.Start, window.End, dayNames[day])
	}
	return false, "not in maintenance window"
}

// resolve returns the window and day list that apply to the target, preferring
// a per-target override over the global window. A malformed window string
// degrades to "no window" with a warning rather than failing the evaluation.
func (p *MaintenancePolicy) resolve(name string) (Window, []int, string, bool) {
	key := strings.ToLower(name)

	if raw, ok := p.cfg.Windows[key]; ok && strings.TrimSpace(raw) != "" {
		window, err := ParseWindow(raw)
		if err == nil {
			return window, ParseDays(p.cfg.Days[key]), "target-specific", true
		}
		p.logger.Warn().Err(err).Str("target", name).Msg("ignoring malformed maintenance window")
	}

	if strings.TrimSpace(p.cfg.GlobalWindow) != "" {
		window, err := ParseWindow(p.cfg.GlobalWindow)
		if err == nil {
			return window, ParseDays(p.cfg.GlobalDays), "global", true
		}
		p.logger.Warn().Err(err).Msg("ignoring malformed global maintenance window")
	}

	return Window{}, nil, "", false
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
