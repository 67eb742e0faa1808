package collectors

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

const mdstatPath = "/proc/mdstat"

// RaidCollector parses /proc/mdstat for md array state. A clean array
// ([UU...]) is OK, a rebuilding one WARN, a degraded one ([U_]) FAIL.
type RaidCollector struct {
	logger zerolog.Logger

	// path is overridable in tests.
	path string
}

func NewRaidCollector(logger zerolog.Logger) *RaidCollector {
	return &RaidCollector{
		logger: logger.With().Str("collector", "raid").Logger(),
		path:   mdstatPath,
	}
}

func (c *RaidCollector) Name() string {
	return "raid"
}

func (c *RaidCollector) Collect(_ context.Context) ([]models.Observation, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No md driver loaded, nothing to monitor.
			return nil, nil
		}
		return nil, err
	}
	return parseMdstat(string(data)), nil
}

func parseMdstat(content string) []models.Observation {
	var observations []models.Observation
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.HasPrefix(fields[0], "md") || fields[1] != ":" {
			continue
		}
		name := "/dev/" + fields[0]

		status := models.StatusOK
		message := fmt.Sprintf("%s is active", name)

		// The next lines carry the device bitmap and any resync progress.
		rest := strings.Join(lines[i+1:min(i+3, len(lines))], "\n")
		switch {
		case strings.Contains(rest, "_]") || strings.Contains(rest, "[_"):
			status = models.StatusFail
			message = fmt.Sprintf("%s is degraded", name)
		case strings.Contains(rest, "resync") || strings.Contains(rest, "recover"):
			status = models.StatusWarn
			message = fmt.Sprintf("%s is rebuilding", name)
		case strings.Contains(line, "inactive"):
			status = models.StatusFail
			message = fmt.Sprintf("%s is inactive", name)
		}

		observations = append(observations, models.Observation{
			Category: models.CategoryRaid,
			Name:     name,
			Status:   status,
			Details:  map[string]any{"message": message},
		})
	}
	return observations
}
