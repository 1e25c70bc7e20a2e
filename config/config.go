package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sahayak/grievance"
	"sahayak/triage"
)

// Config holds every runtime knob for the service. Values come from an
// optional YAML file, SAHAYAK_* environment variables, and defaults, in
// ascending priority.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`

	OpenAI struct {
		APIKey        string        `mapstructure:"api_key"`
		BaseURL       string        `mapstructure:"base_url"`
		Model         string        `mapstructure:"model"`
		Timeout       time.Duration `mapstructure:"timeout"`
		RatePerMinute int           `mapstructure:"rate_per_minute"`
	} `mapstructure:"openai"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`

	SLA struct {
		CriticalHours    int     `mapstructure:"critical_hours"`
		HighHours        int     `mapstructure:"high_hours"`
		MediumHours      int     `mapstructure:"medium_hours"`
		LowHours         int     `mapstructure:"low_hours"`
		SanitationFactor float64 `mapstructure:"sanitation_factor"`
	} `mapstructure:"sla"`
}

// Load reads configuration from configPath (optional), the environment,
// and built-in defaults. An empty configPath searches the working
// directory for sahayak.yaml and silently continues without one.
func Load(configPath string) (Config, error) {
	v := viper.New()

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 10*time.Second)
	v.SetDefault("openai.rate_per_minute", 60)
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("dispatch_interval", 250*time.Millisecond)
	v.SetDefault("sla.critical_hours", 6)
	v.SetDefault("sla.high_hours", 24)
	v.SetDefault("sla.medium_hours", 48)
	v.SetDefault("sla.low_hours", 72)
	v.SetDefault("sla.sanitation_factor", 0.5)

	v.SetEnvPrefix("SAHAYAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper already knows about; bind each one so
	// env-only values reach it without a file or default.
	for _, key := range []string{
		"database_url",
		"openai.api_key", "openai.base_url", "openai.model",
		"openai.timeout", "openai.rate_per_minute",
		"auth.jwt_secret", "auth.token_ttl",
		"sweep_interval", "dispatch_interval",
		"sla.critical_hours", "sla.high_hours", "sla.medium_hours",
		"sla.low_hours", "sla.sanitation_factor",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("sahayak")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config: read sahayak.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Windows converts the configured SLA table into triage deadlines.
func (c Config) Windows() triage.Windows {
	w := triage.DefaultWindows()
	if c.SLA.CriticalHours > 0 {
		w.ByPriority[grievance.PriorityCritical] = time.Duration(c.SLA.CriticalHours) * time.Hour
	}
	if c.SLA.HighHours > 0 {
		w.ByPriority[grievance.PriorityHigh] = time.Duration(c.SLA.HighHours) * time.Hour
	}
	if c.SLA.MediumHours > 0 {
		w.ByPriority[grievance.PriorityMedium] = time.Duration(c.SLA.MediumHours) * time.Hour
	}
	if c.SLA.LowHours > 0 {
		w.ByPriority[grievance.PriorityLow] = time.Duration(c.SLA.LowHours) * time.Hour
	}
	if c.SLA.SanitationFactor > 0 {
		w.SanitationFactor = c.SLA.SanitationFactor
	}
	return w
}
