package collectors

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const bytesPerGB = 1024 * 1024 * 1024

// SystemCollector reads host CPU, memory, and per-mount disk metrics. CPU
// usage is derived from /proc/stat deltas between passes, so the very first
// pass reports CPU as OK with no value.
type SystemCollector struct {
	cfg    config.CollectorsConfig
	logger zerolog.Logger

	mu       sync.Mutex
	prevIdle uint64
	prevBusy uint64
}

func NewSystemCollector(cfg config.CollectorsConfig, logger zerolog.Logger) *SystemCollector {
	return &SystemCollector{
		cfg:    cfg,
		logger: logger.With().Str("collector", "system").Logger(),
	}
}

func (c *SystemCollector) Name() string {
	return "system"
}

func (c *SystemCollector) Collect(_ context.Context) ([]models.Observation, error) {
	var observations []models.Observation

	if obs, ok := c.collectCPU(); ok {
		observations = append(observations, obs)
	}
	if obs, err := c.collectMemory(); err != nil {
		c.logger.Warn().Err(err).Msg("memory collection failed")
	} else {
		observations = append(observations, obs)
	}
	for _, mount := range c.cfg.Mounts {
		obs, err := c.collectDisk(mount)
		if err != nil {
			c.logger.Warn().Err(err).Str("mount", mount.Path).Msg("disk collection failed")
			continue
		}
		observations = append(observations, obs)
	}

	return observations, nil
}

func (c *SystemCollector) collectCPU() (models.Observation, bool) {
	idle, busy, err := readCPUSample()
	if err != nil {
		c.logger.Warn().Err(err).Msg("cpu collection failed")
		return models.Observation{}, false
	}

	c.mu.Lock()
	prevIdle, prevBusy := c.prevIdle, c.prevBusy
	c.prevIdle, c.prevBusy = idle, busy
	c.mu.Unlock()

	// Need two samples for a usage delta.
	if prevIdle == 0 && prevBusy == 0 {
		return models.Observation{}, false
	}

	idleDelta := float64(idle - prevIdle)
	busyDelta := float64(busy - prevBusy)
	total := idleDelta + busyDelta
	if total <= 0 {
		return models.Observation{}, false
	}
	usage := 100 * busyDelta / total

	status := models.StatusOK
	threshold := c.cfg.CPUWarnPct
	switch {
	case usage >= c.cfg.CPUFailPct:
		status = models.StatusFail
		threshold = c.cfg.CPUFailPct
	case usage >= c.cfg.CPUWarnPct:
		status = models.StatusWarn
	}

	return models.Observation{
		Category: models.CategorySystem,
		Name:     "cpu",
		Status:   status,
		Details: map[string]any{
			"value":     round1(usage),
			"threshold": threshold,
			"unit":      "%",
			"message":   fmt.Sprintf("CPU usage at %.1f%%", usage),
		},
	}, true
}

func (c *SystemCollector) collectMemory() (models.Observation, error) {
	total, available, err := readMeminfo()
	if err != nil {
		return models.Observation{}, err
	}
	if total == 0 {
		return models.Observation{}, errors.New("meminfo reported zero total memory")
	}

	usage := 100 * float64(total-available) / float64(total)

	status := models.StatusOK
	threshold := c.cfg.MemoryWarnPct
	switch {
	case usage >= c.cfg.MemoryFailPct:
		status = models.StatusFail
		threshold = c.cfg.MemoryFailPct
	case usage >= c.cfg.MemoryWarnPct:
		status = models.StatusWarn
	}

	return models.Observation{
		Category: models.CategorySystem,
		Name:     "memory",
		Status:   status,
		Details: map[string]any{
			"value":     round1(usage),
			"threshold": threshold,
			"unit":      "%",
			"message":   fmt.Sprintf("Memory usage at %.1f%%", usage),
		},
	}, nil
}

func (c *SystemCollector) collectDisk(mount config.MountCheck) (models.Observation, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(mount.Path, &stat); err != nil {
		return models.Observation{}, errors.Wrapf(err, "statfs %s", mount.Path)
	}

	totalGB := float64(stat.Blocks) * float64(stat.Bsize) / bytesPerGB
	freeGB := float64(stat.Bavail) * float64(stat.Bsize) / bytesPerGB
	percentUsed := 0.0
	if totalGB > 0 {
		percentUsed = 100 * (totalGB - freeGB) / totalGB
	}

	status := models.StatusOK
	freePct := 100 - percentUsed
	if (mount.ThresholdGB > 0 && freeGB < mount.ThresholdGB) ||
		(mount.ThresholdPc > 0 && freePct < mount.ThresholdPc) {
		status = models.StatusWarn
	}
	// Half the configured headroom left counts as critical.
	if (mount.ThresholdGB > 0 && freeGB < mount.ThresholdGB/2) ||
		(mount.ThresholdPc > 0 && freePct < mount.ThresholdPc/2) {
		status = models.StatusFail
	}

	return models.Observation{
		Category: models.CategoryDisk,
		Name:     mount.Path,
		Status:   status,
		Details: map[string]any{
			"free_gb":       round1(freeGB),
			"total_gb":      round1(totalGB),
			"percent_used":  round1(percentUsed),
			"threshold_gb":  mount.ThresholdGB,
			"threshold_pct": mount.ThresholdPc,
		},
	}, nil
}

// readCPUSample returns cumulative idle and busy jiffies from /proc/stat.
func readCPUSample() (idle, busy uint64, err error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 8 || fields[0] != "cpu" {
			continue
		}
		for i, field := range fields[1:] {
			value, parseErr := strconv.ParseUint(field, 10, 64)
			if parseErr != nil {
				return 0, 0, errors.Wrap(parseErr, "parse /proc/stat")
			}
			// Fields 4 and 5 (idle, iowait) count as idle time.
			if i == 3 || i == 4 {
				idle += value
			} else {
				busy += value
			}
		}
		return idle, busy, nil
	}
	return 0, 0, errors.New("no cpu line in /proc/stat")
}

func readMeminfo() (total, available uint64, err error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, parseErr := strconv.ParseUint(fields[1], 10, 64)
		if parseErr != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemAvailable:":
			available = value
		}
	}
	if total == 0 {
		return 0, 0, errors.New("MemTotal not found in /proc/meminfo")
	}
	return total, available, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
