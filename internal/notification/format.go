package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/homesentry/homesentry/internal/models"
)

const footerText = "HomeSentry v0.1.0"

// FormatAlert picks the category-appropriate layout for an observation. Only
// service and disk have bespoke layouts; everything else renders as a generic
// metric alert.
func FormatAlert(category, name string, prevStatus *models.Status, newStatus models.Status, details map[string]any) Message {
	switch category {
	case models.CategoryService:
		return FormatServiceAlert(name, prevStatus, newStatus, details)
	case models.CategoryDisk:
		return FormatDiskAlert(name, prevStatus, newStatus, details)
	default:
		return FormatMetricAlert(name, prevStatus, newStatus, details)
	}
}

// FormatServiceAlert renders an HTTP health-check transition: status, response
// time, HTTP code, URL and error text when present.
func FormatServiceAlert(serviceName string, prevStatus *models.Status, newStatus models.Status, details map[string]any) Message {
	glyph := StatusGlyph(newStatus)
	title := titleCase(serviceName)

	var msgTitle, description string
	switch newStatus {
	case models.StatusFail:
		msgTitle = fmt.Sprintf("%s Service Down: %s", glyph, title)
		description = fmt.Sprintf("%s is unreachable", title)
	case models.StatusWarn:
		msgTitle = fmt.Sprintf("%s Service Warning: %s", glyph, title)
		description = fmt.Sprintf("%s is responding slowly or with errors", title)
	default:
		msgTitle = fmt.Sprintf("%s Service Recovered: %s", glyph, title)
		description = fmt.Sprintf("%s is responding normally", title)
	}

	fields := []Field{statusField(prevStatus, newStatus)}

	if responseMS, ok := detailFloat(details, "response_ms"); ok {
		fields = append(fields, Field{Name: "Response Time", Value: fmt.Sprintf("%.0fms", responseMS), Inline: true})
	}
	if httpCode, ok := detailFloat(details, "http_code"); ok && httpCode != 0 {
		fields = append(fields, Field{Name: "HTTP Code", Value: fmt.Sprintf("%.0f", httpCode), Inline: true})
	}
	if url := detailString(details, "url"); url != "" {
		fields = append(fields, Field{Name: "URL", Value: url})
	}
	if errText := detailString(details, "error"); errText != "" {
		fields = append(fields, Field{Name: "Error", Value: errText})
	}

	return Message{
		Title:       msgTitle,
		Description: description,
		Color:       StatusColor(newStatus),
		Fields:      fields,
		Timestamp:   time.Now().UTC(),
		Footer:      footerText,
	}
}

// FormatDiskAlert renders a disk-space transition: free space with computed
// free percentage, total capacity, and the threshold(s) that fired.
func FormatDiskAlert(mountpoint string, prevStatus *models.Status, newStatus models.Status, details map[string]any) Message {
	glyph := StatusGlyph(newStatus)

	var msgTitle, description string
	switch newStatus {
	case models.StatusFail:
		msgTitle = fmt.Sprintf("%s Critical Disk Space: %s", glyph, mountpoint)
		description = "Disk space is critically low"
	case models.StatusWarn:
		msgTitle = fmt.Sprintf("%s Low Disk Space: %s", glyph, mountpoint)
		description = "Disk usage is approaching critical levels"
	default:
		msgTitle = fmt.Sprintf("%s Disk Space Recovered: %s", glyph, mountpoint)
		description = "Disk space has returned to normal levels"
	}

	fields := []Field{statusField(prevStatus, newStatus)}

	if freeGB, ok := detailFloat(details, "free_gb"); ok {
		percentUsed, _ := detailFloat(details, "percent_used")
		fields = append(fields, Field{
			Name:   "Free Space",
			Value:  fmt.Sprintf("%.1f GB (%.0f%%)", freeGB, 100-percentUsed),
			Inline: true,
		})
	}
	if totalGB, ok := detailFloat(details, "total_gb"); ok && totalGB != 0 {
		fields = append(fields, Field{Name: "Total Capacity", Value: fmt.Sprintf("%.1f GB", totalGB), Inline: true})
	}

	var thresholdParts []string
	if thresholdGB, ok := detailFloat(details, "threshold_gb"); ok && thresholdGB != 0 {
		thresholdParts = append(thresholdParts, fmt.Sprintf("%g GB", thresholdGB))
	}
	if thresholdPct, ok := detailFloat(details, "threshold_pct"); ok && thresholdPct != 0 {
		thresholdParts = append(thresholdParts, fmt.Sprintf("%g%%", thresholdPct))
	}
	if len(thresholdParts) > 0 {
		fields = append(fields, Field{Name: "Threshold", Value: strings.Join(thresholdParts, " or ")})
	}

	return Message{
		Title:       msgTitle,
		Description: description,
		Color:       StatusColor(newStatus),
		Fields:      fields,
		Timestamp:   time.Now().UTC(),
		Footer:      footerText,
	}
}

// FormatMetricAlert renders a generic metric transition: current value and
// threshold with unit, plus a free-text message as the description.
func FormatMetricAlert(metricName string, prevStatus *models.Status, newStatus models.Status, details map[string]any) Message {
	glyph := StatusGlyph(newStatus)
	title := titleCase(strings.ReplaceAll(metricName, "_", " "))

	var msgTitle string
	switch newStatus {
	case models.StatusFail:
		msgTitle = fmt.Sprintf("%s Critical: %s", glyph, title)
	case models.StatusWarn:
		msgTitle = fmt.Sprintf("%s Warning: %s", glyph, title)
	default:
		msgTitle = fmt.Sprintf("%s Recovered: %s", glyph, title)
	}

	description := detailString(details, "message")
	if description == "" {
		description = fmt.Sprintf("%s status changed", title)
	}

	fields := []Field{statusField(prevStatus, newStatus)}

	unit := detailString(details, "unit")
	if value, ok := detailFloat(details, "value"); ok {
		fields = append(fields, Field{Name: "Current Value", Value: fmt.Sprintf("%g%s", value, unit), Inline: true})
	}
	if threshold, ok := detailFloat(details, "threshold"); ok {
		fields = append(fields, Field{Name: "Threshold", Value: fmt.Sprintf("%g%s", threshold, unit), Inline: true})
	}

	return Message{
		Title:       msgTitle,
		Description: description,
		Color:       StatusColor(newStatus),
		Fields:      fields,
		Timestamp:   time.Now().UTC(),
		Footer:      footerText,
	}
}

func statusField(prevStatus *models.Status, newStatus models.Status) Field {
	value := fmt.Sprintf("First detection: %s", newStatus)
	if prevStatus != nil {
		value = fmt.Sprintf("%s → %s", *prevStatus, newStatus)
	}
	return Field{Name: "Status", Value: value, Inline: true}
}

func detailFloat(details map[string]any, key string) (float64, bool) {
	switch v := details[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func detailString(details map[string]any, key string) string {
	if v, ok := details[key].(string); ok {
		return v
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
