package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/homesentry/homesentry/internal/notification"
	"github.com/rs/zerolog"
)

const (
	digestMaxActivityLines = 10
	digestMaxIssueLines    = 5
)

// SleepPolicy suppresses every alert during the configured sleep window.
// Unlike maintenance windows this catches recoveries too; the only exception
// is smart/raid when allow_critical is set. Each suppressed state change must
// be queued by the caller so it can appear in the morning digest.
type SleepPolicy struct {
	cfg    config.SleepConfig
	logger zerolog.Logger
}

func NewSleepPolicy(cfg config.SleepConfig, logger zerolog.Logger) *SleepPolicy {
	return &SleepPolicy{
		cfg:    cfg,
		logger: logger.With().Str("component", "sleep_policy").Logger(),
	}
}

// window returns the configured sleep window, or ok=false when the schedule is
// disabled or misconfigured (misconfiguration degrades to "no suppression").
func (p *SleepPolicy) window() (Window, bool) {
	if !p.cfg.Enabled {
		return Window{}, false
	}
	window, err := ParseWindow(p.cfg.Start + "-" + p.cfg.End)
	if err != nil {
		p.logger.Warn().Err(err).Msg("sleep schedule enabled but times not configured properly")
		return Window{}, false
	}
	return window, true
}

// InSleepHours reports whether now falls inside the sleep window.
func (p *SleepPolicy) InSleepHours(now time.Time) bool {
	window, ok := p.window()
	if !ok {
		return false
	}
	return window.Contains(TimeOfDay(now.Hour()*60 + now.Minute()))
}

// ShouldSuppress applies the sleep rules for one observation.
func (p *SleepPolicy) ShouldSuppress(category string, now time.Time) (bool, string) {
	window, ok := p.window()
	if !ok {
		return false, "sleep schedule not enabled"
	}

	if !window.Contains(TimeOfDay(now.Hour()*60 + now.Minute())) {
		return false, "outside sleep hours"
	}

	if p.cfg.AllowCritical && (category == models.CategorySmart || category == models.CategoryRaid) {
		return false, "critical infrastructure alerts allowed during sleep"
	}

	return true, fmt.Sprintf("sleep schedule active (%s-%s)", window.Start, window.End)
}

// SummaryEnabled reports whether the morning digest should be generated.
func (p *SleepPolicy) SummaryEnabled() bool {
	if !p.cfg.SummaryEnabled || strings.TrimSpace(p.cfg.SummaryTime) == "" {
		return false
	}
	_, ok := p.window()
	return ok
}

// SummaryTime returns the configured digest time-of-day.
func (p *SleepPolicy) SummaryTime() (TimeOfDay, error) {
	return ParseTimeOfDay(p.cfg.SummaryTime)
}

// BuildDigest renders the morning summary from the drained sleep queue: a
// quiet-night variant for an empty queue, otherwise an activity summary with
// time-grouped lines and a call-out of entries still not OK.
func (p *SleepPolicy) BuildDigest(events []models.SleepEvent) notification.Message {
	window, _ := p.window()
	period := fmt.Sprintf("Period: %s - %s", window.Start, window.End)

	if len(events) == 0 {
		return notification.Message{
			Title:       "🌅 Good Morning!",
			Description: period,
			Color:       notification.ColorOK,
			Fields: []notification.Field{
				{Name: "✨ Quiet Night", Value: "No events logged during sleep hours"},
				{Name: "🟢 Current Status", Value: "All systems operational"},
			},
			Timestamp: time.Now().UTC(),
		}
	}

	var serviceCount int
	var ongoing []models.SleepEvent
	for _, event := range events {
		if event.Category == models.CategoryService {
			serviceCount++
		}
		if event.NewStatus != models.StatusOK {
			ongoing = append(ongoing, event)
		}
	}

	color := notification.ColorOK
	if len(ongoing) > 0 {
		color = notification.ColorOrange
	}

	fields := []notification.Field{{
		Name: "📊 Activity Overview",
		Value: fmt.Sprintf("• %d events logged\n• %d service events\n• %d ongoing issues",
			len(events), serviceCount, len(ongoing)),
	}}

	if lines := activityLines(events); len(lines) > 0 {
		text := strings.Join(tail(lines, digestMaxActivityLines), "\n")
		if len(lines) > digestMaxActivityLines {
			text = fmt.Sprintf("*(Showing last %d of %d events)*\n\n%s",
				digestMaxActivityLines, len(lines), text)
		}
		fields = append(fields, notification.Field{Name: "✅ Activity Log", Value: text})
	}

	if len(ongoing) > 0 {
		var issueLines []string
		for i, event := range ongoing {
			if i >= digestMaxIssueLines {
				break
			}
			issueLines = append(issueLines, fmt.Sprintf("• %s: %s", event.Name, event.NewStatus))
		}
		fields = append(fields, notification.Field{Name: "⚠️ Ongoing Issues", Value: strings.Join(issueLines, "\n")})
	} else {
		fields = append(fields, notification.Field{Name: "🟢 Current Status", Value: "All systems operational"})
	}

	return notification.Message{
		Title:       "🌅 Overnight Activity Summary",
		Description: period,
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().UTC(),
	}
}

// activityLines formats one line per event, grouped and ordered by the
// minute the event was recorded.
func activityLines(events []models.SleepEvent) []string {
	groups := make(map[string][]models.SleepEvent)
	for _, event := range events {
		hour := event.CreatedAt.Format("15:04")
		groups[hour] = append(groups[hour], event)
	}

	hours := make([]string, 0, len(groups))
	for hour := range groups {
		hours = append(hours, hour)
	}
	sort.Strings(hours)

	var lines []string
	for _, hour := range hours {
		for _, event := range groups[hour] {
			glyph := "🔴"
			if event.NewStatus == models.StatusOK {
				glyph = "🟢"
			}
			prev := "?"
			if event.PrevStatus != nil {
				prev = string(*event.PrevStatus)
			}
			lines = append(lines, fmt.Sprintf("%s %s - %s: %s → %s",
				glyph, hour, event.Name, prev, event.NewStatus))
		}
	}
	return lines
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
