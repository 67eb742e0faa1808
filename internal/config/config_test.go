package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampIntervals(t *testing.T) {
	s := SchedulerConfig{
		PollInterval:      time.Second,
		SmartPollInterval: 5 * time.Second,
		RaidPollInterval:  time.Millisecond,
	}
	clampIntervals(&s)

	assert.Equal(t, 10*time.Second, s.PollInterval)
	assert.Equal(t, time.Minute, s.SmartPollInterval)
	assert.Equal(t, time.Minute, s.RaidPollInterval)
}

func TestClampIntervalsLeavesSaneValues(t *testing.T) {
	s := SchedulerConfig{
		PollInterval:      time.Minute,
		SmartPollInterval: 10 * time.Minute,
		RaidPollInterval:  2 * time.Minute,
	}
	clampIntervals(&s)

	assert.Equal(t, time.Minute, s.PollInterval)
	assert.Equal(t, 10*time.Minute, s.SmartPollInterval)
	assert.Equal(t, 2*time.Minute, s.RaidPollInterval)
}
