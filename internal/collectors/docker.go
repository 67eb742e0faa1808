package collectors

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DockerCollector inspects all containers on the local Docker daemon.
// Running and healthy containers report OK, restarting or unhealthy ones
// WARN, exited ones FAIL.
type DockerCollector struct {
	cli    *client.Client
	logger zerolog.Logger
}

func NewDockerCollector(logger zerolog.Logger) (*DockerCollector, error) {
	// Create Docker client using environment variables
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "create docker client")
	}
	return &DockerCollector{
		cli:    cli,
		logger: logger.With().Str("collector", "docker").Logger(),
	}, nil
}

func (c *DockerCollector) Name() string {
	return "docker"
}

func (c *DockerCollector) Collect(ctx context.Context) ([]models.Observation, error) {
	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, errors.Wrap(err, "list containers")
	}

	observations := make([]models.Observation, 0, len(containers))
	for _, ctr := range containers {
		observations = append(observations, models.Observation{
			Category: models.CategoryDocker,
			Name:     containerName(ctr),
			Status:   containerStatus(ctr),
			Details: map[string]any{
				"message": ctr.Status,
				"image":   ctr.Image,
				"state":   ctr.State,
			},
		})
	}
	return observations, nil
}

func containerName(ctr container.Summary) string {
	if len(ctr.Names) > 0 {
		return strings.TrimPrefix(ctr.Names[0], "/")
	}
	if len(ctr.ID) >= 12 {
		return ctr.ID[:12]
	}
	return ctr.ID
}

func containerStatus(ctr container.Summary) models.Status {
	switch ctr.State {
	case "running":
		// The human-readable status carries the health-check verdict.
		if strings.Contains(ctr.Status, "(unhealthy)") {
			return models.StatusWarn
		}
		return models.StatusOK
	case "restarting", "paused":
		return models.StatusWarn
	default:
		// created, exited, dead
		return models.StatusFail
	}
}
