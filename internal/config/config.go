package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AlertingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	WebhookURL      string `mapstructure:"webhook_url"`
	CooldownMinutes int    `mapstructure:"cooldown_minutes"`
	GraceChecks     int    `mapstructure:"grace_checks"`
}

type MaintenanceConfig struct {
	GlobalWindow string `mapstructure:"global_window"`
	GlobalDays   string `mapstructure:"global_days"`
	// Per-target overrides keyed by lowercased target name.
	Windows map[string]string `mapstructure:"windows"`
	Days    map[string]string `mapstructure:"days"`
}

type SleepConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Start          string `mapstructure:"start"`
	End            string `mapstructure:"end"`
	SummaryEnabled bool   `mapstructure:"summary_enabled"`
	SummaryTime    string `mapstructure:"summary_time"`
	AllowCritical  bool   `mapstructure:"allow_critical"`
}

type SchedulerConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	SmartPollInterval time.Duration `mapstructure:"smart_poll_interval"`
	RaidPollInterval  time.Duration `mapstructure:"raid_poll_interval"`
	RetentionDays     int           `mapstructure:"retention_days"`
}

type APIConfig struct {
	Port        string   `mapstructure:"port"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type ServiceCheck struct {
	Name    string        `mapstructure:"name"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Responses slower than this are reported WARN. Zero disables the check.
	WarnAfterMS float64 `mapstructure:"warn_after_ms"`
}

type MountCheck struct {
	Path        string  `mapstructure:"path"`
	ThresholdGB float64 `mapstructure:"threshold_gb"`
	ThresholdPc float64 `mapstructure:"threshold_pct"`
}

type CollectorsConfig struct {
	Services      []ServiceCheck `mapstructure:"services"`
	Mounts        []MountCheck   `mapstructure:"mounts"`
	CPUWarnPct    float64        `mapstructure:"cpu_warn_pct"`
	CPUFailPct    float64        `mapstructure:"cpu_fail_pct"`
	MemoryWarnPct float64        `mapstructure:"memory_warn_pct"`
	MemoryFailPct float64        `mapstructure:"memory_fail_pct"`
	DockerEnabled bool           `mapstructure:"docker_enabled"`
	SmartDevices  []string       `mapstructure:"smart_devices"`
	RaidEnabled   bool           `mapstructure:"raid_enabled"`
}

type Config struct {
	DatabaseURL string            `mapstructure:"database_url"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Sleep       SleepConfig       `mapstructure:"sleep"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	API         APIConfig         `mapstructure:"api"`
	Collectors  CollectorsConfig  `mapstructure:"collectors"`
}

// Load reads the configuration from a YAML file plus SENTRY_-prefixed
// environment overrides and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error reading config file: %v", err)
		}
		// No file is fine: env vars and defaults carry the config.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	if config.DatabaseURL == "" {
		log.Fatal("database_url must be set in the config file or SENTRY_DATABASE_URL")
	}

	clampIntervals(&config.Scheduler)

	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.cooldown_minutes", 30)
	v.SetDefault("alerting.grace_checks", 3)

	v.SetDefault("sleep.summary_enabled", true)

	v.SetDefault("scheduler.poll_interval", "60s")
	v.SetDefault("scheduler.smart_poll_interval", "600s")
	v.SetDefault("scheduler.raid_poll_interval", "120s")
	v.SetDefault("scheduler.retention_days", 30)

	v.SetDefault("api.port", "8080")
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("collectors.cpu_warn_pct", 80)
	v.SetDefault("collectors.cpu_fail_pct", 95)
	v.SetDefault("collectors.memory_warn_pct", 85)
	v.SetDefault("collectors.memory_fail_pct", 95)
	v.SetDefault("collectors.docker_enabled", true)
	v.SetDefault("collectors.raid_enabled", true)
}

// clampIntervals enforces lower bounds on poll cadences so a typo in the
// config cannot hammer the host or the probed services.
func clampIntervals(s *SchedulerConfig) {
	if s.PollInterval < 10*time.Second {
		log.Printf("poll_interval too low (%s), using 10s minimum", s.PollInterval)
		s.PollInterval = 10 * time.Second
	}
	if s.SmartPollInterval < time.Minute {
		log.Printf("smart_poll_interval too low (%s), using 60s minimum", s.SmartPollInterval)
		s.SmartPollInterval = time.Minute
	}
	if s.RaidPollInterval < time.Minute {
		log.Printf("raid_poll_interval too low (%s), using 60s minimum", s.RaidPollInterval)
		s.RaidPollInterval = time.Minute
	}
}
