package notification

import (
	"testing"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPtr(s models.Status) *models.Status { return &s }

func fieldValue(t *testing.T, msg Message, name string) string {
	t.Helper()
	for _, f := range msg.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("field %q not present in message %q", name, msg.Title)
	return ""
}

func TestStatusColorAndGlyph(t *testing.T) {
	assert.Equal(t, ColorOK, StatusColor(models.StatusOK))
	assert.Equal(t, ColorWarn, StatusColor(models.StatusWarn))
	assert.Equal(t, ColorFail, StatusColor(models.StatusFail))
	assert.Equal(t, ColorWarn, StatusColor(models.Status("BOGUS")))

	assert.Equal(t, "🟢", StatusGlyph(models.StatusOK))
	assert.Equal(t, "🔴", StatusGlyph(models.StatusFail))
	assert.Equal(t, "⚪", StatusGlyph(models.Status("BOGUS")))
}

func TestFormatServiceAlertDown(t *testing.T) {
	msg := FormatServiceAlert("plex", statusPtr(models.StatusOK), models.StatusFail, map[string]any{
		"url":         "http://nas:32400/web",
		"response_ms": 5021.0,
		"error":       "context deadline exceeded",
	})

	assert.Equal(t, "🔴 Service Down: Plex", msg.Title)
	assert.Equal(t, ColorFail, msg.Color)
	assert.Equal(t, "OK → FAIL", fieldValue(t, msg, "Status"))
	assert.Equal(t, "5021ms", fieldValue(t, msg, "Response Time"))
	assert.Equal(t, "http://nas:32400/web", fieldValue(t, msg, "URL"))
	assert.Equal(t, "context deadline exceeded", fieldValue(t, msg, "Error"))
	assert.Equal(t, "HomeSentry v0.1.0", msg.Footer)
}

func TestFormatServiceAlertFirstDetection(t *testing.T) {
	msg := FormatServiceAlert("plex", nil, models.StatusOK, nil)

	assert.Equal(t, "🟢 Service Recovered: Plex", msg.Title)
	assert.Equal(t, "First detection: OK", fieldValue(t, msg, "Status"))
}

func TestFormatServiceAlertSkipsAbsentDetails(t *testing.T) {
	msg := FormatServiceAlert("plex", statusPtr(models.StatusOK), models.StatusWarn, map[string]any{
		"http_code": 503,
	})

	assert.Equal(t, "503", fieldValue(t, msg, "HTTP Code"))
	for _, f := range msg.Fields {
		assert.NotEqual(t, "URL", f.Name)
		assert.NotEqual(t, "Error", f.Name)
	}
}

func TestFormatDiskAlert(t *testing.T) {
	msg := FormatDiskAlert("/mnt/array", statusPtr(models.StatusOK), models.StatusWarn, map[string]any{
		"free_gb":       42.5,
		"total_gb":      1000.0,
		"percent_used":  95.0,
		"threshold_gb":  50.0,
		"threshold_pct": 90.0,
	})

	assert.Equal(t, "🟡 Low Disk Space: /mnt/array", msg.Title)
	assert.Equal(t, "42.5 GB (5%)", fieldValue(t, msg, "Free Space"))
	assert.Equal(t, "1000.0 GB", fieldValue(t, msg, "Total Capacity"))
	assert.Equal(t, "50 GB or 90%", fieldValue(t, msg, "Threshold"))
}

func TestFormatMetricAlert(t *testing.T) {
	msg := FormatMetricAlert("cpu_usage", statusPtr(models.StatusOK), models.StatusWarn, map[string]any{
		"value":     91.5,
		"threshold": 90.0,
		"unit":      "%",
		"message":   "CPU usage is high",
	})

	assert.Equal(t, "🟡 Warning: Cpu Usage", msg.Title)
	assert.Equal(t, "CPU usage is high", msg.Description)
	assert.Equal(t, "91.5%", fieldValue(t, msg, "Current Value"))
	assert.Equal(t, "90%", fieldValue(t, msg, "Threshold"))
}

func TestFormatAlertDispatch(t *testing.T) {
	msg := FormatAlert(models.CategoryService, "plex", nil, models.StatusFail, nil)
	assert.Contains(t, msg.Title, "Service Down")

	msg = FormatAlert(models.CategoryDisk, "/mnt/array", nil, models.StatusFail, nil)
	assert.Contains(t, msg.Title, "Critical Disk Space")

	msg = FormatAlert(models.CategorySmart, "sda", nil, models.StatusFail, nil)
	assert.Contains(t, msg.Title, "Critical: Sda")
}

func TestDetailFloatNumericTypes(t *testing.T) {
	details := map[string]any{
		"a": 1.5,
		"b": float32(2.5),
		"c": 3,
		"d": int64(4),
		"e": "not a number",
	}

	for key, want := range map[string]float64{"a": 1.5, "b": 2.5, "c": 3, "d": 4} {
		got, ok := detailFloat(details, key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok := detailFloat(details, "e")
	assert.False(t, ok)
	_, ok = detailFloat(details, "missing")
	assert.False(t, ok)
}
