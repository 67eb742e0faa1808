package collectors

import (
	"context"
	"os/exec"
	"strings"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

// SmartCollector shells out to smartctl for the overall health verdict of
// each configured drive. It runs on a slower cadence than the other
// collectors since drive health changes slowly and the probe touches the
// disks themselves.
type SmartCollector struct {
	devices []string
	logger  zerolog.Logger
}

func NewSmartCollector(devices []string, logger zerolog.Logger) *SmartCollector {
	return &SmartCollector{
		devices: devices,
		logger:  logger.With().Str("collector", "smart").Logger(),
	}
}

func (c *SmartCollector) Name() string {
	return "smart"
}

func (c *SmartCollector) Collect(ctx context.Context) ([]models.Observation, error) {
	observations := make([]models.Observation, 0, len(c.devices))
	for _, device := range c.devices {
		observations = append(observations, c.probe(ctx, device))
	}
	return observations, nil
}

func (c *SmartCollector) probe(ctx context.Context, device string) models.Observation {
	out, err := exec.CommandContext(ctx, "smartctl", "-H", device).CombinedOutput()
	text := string(out)

	// smartctl exits non-zero for failing drives too, so parse the verdict
	// before treating the error as a probe failure.
	switch {
	case strings.Contains(text, "PASSED"):
		return models.Observation{
			Category: models.CategorySmart,
			Name:     device,
			Status:   models.StatusOK,
			Details:  map[string]any{"message": "SMART overall-health: PASSED"},
		}
	case strings.Contains(text, "FAILED"):
		return models.Observation{
			Category: models.CategorySmart,
			Name:     device,
			Status:   models.StatusFail,
			Details:  map[string]any{"message": "SMART overall-health: FAILED"},
		}
	}

	details := map[string]any{"message": "SMART health could not be determined"}
	if err != nil {
		details["error"] = err.Error()
	}
	return models.Observation{
		Category: models.CategorySmart,
		Name:     device,
		Status:   models.StatusWarn,
		Details:  details,
	}
}
