// Package config loads the application configuration from a YAML or JSON
// file with SP_ environment overrides.
package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/studyplan/core/batch"
	"github.com/kilianp07/studyplan/core/calendar"
	"github.com/kilianp07/studyplan/core/distribution"
	"github.com/kilianp07/studyplan/core/metrics"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/infra/monitoring"
	"github.com/kilianp07/studyplan/infra/mqtt"
	"github.com/kilianp07/studyplan/infra/progress"
	"github.com/kilianp07/studyplan/infra/runlog"
	"github.com/kilianp07/studyplan/infra/webhook"
)

// EnvPrefix marks environment overrides. Double underscores separate
// nesting levels: SP_BATCH__CONCURRENCY_LIMIT=8 sets batch.concurrency_limit.
const EnvPrefix = "SP_"

// StoreConfig locates the SQLite plan store.
type StoreConfig struct {
	Path string `json:"path"`
}

// SourceConfig locates the student profiles, a YAML file or directory.
type SourceConfig struct {
	Path string `json:"path"`
}

// APIConfig configures the HTTP API served by the serve command.
// An empty JWTSecret disables authentication.
type APIConfig struct {
	Addr           string `json:"addr"`
	JWTSecret      string `json:"jwt_secret"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 60
	}
}

// CarryoverConfig schedules the daily carryover pass of the serve command.
// DailyAt is a local "HH:MM" time; empty disables the schedule.
type CarryoverConfig struct {
	DailyAt string `json:"daily_at"`
}

// At returns the parsed DailyAt time.
func (c CarryoverConfig) At() (model.Clock, bool) {
	if c.DailyAt == "" {
		return 0, false
	}
	at, err := model.ParseClock(c.DailyAt)
	return at, err == nil
}

func (c CarryoverConfig) Validate() error {
	if c.DailyAt == "" {
		return nil
	}
	_, err := model.ParseClock(c.DailyAt)
	return err
}

type Config struct {
	Scheduler    calendar.Options    `json:"scheduler"`
	Distribution distribution.Config `json:"distribution"`
	Batch        batch.Config        `json:"batch"`
	Store        StoreConfig         `json:"store"`
	Source       SourceConfig        `json:"source"`
	Metrics      metrics.Config      `json:"metrics"`
	MQTT         mqtt.Config         `json:"mqtt"`
	Webhook      webhook.Config      `json:"webhook"`
	RunLog       runlog.Config       `json:"runlog"`
	API          APIConfig           `json:"api"`
	Carryover    CarryoverConfig     `json:"carryover"`
	Logging      LoggingConfig       `json:"logging"`
	Sentry       monitoring.Config   `json:"sentry"`
	Progress     progress.Config     `json:"progress"`
}

// NotifierEnabled reports whether an MQTT broker is configured.
func (c Config) NotifierEnabled() bool { return c.MQTT.Broker != "" }

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.Distribution.SetDefaults()
	c.Batch.SetDefaults()
	c.RunLog.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
	c.Webhook.SetDefaults()
	if c.Store.Path == "" {
		c.Store.Path = "studyplan.db"
	}
	if c.Source.Path == "" {
		c.Source.Path = "students"
	}
	if c.NotifierEnabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"scheduler", c.Scheduler.Validate},
		{"distribution", c.Distribution.Validate},
		{"batch", c.Batch.Validate},
		{"runlog", c.RunLog.Validate},
		{"logging", c.Logging.Validate},
		{"webhook", c.Webhook.Validate},
		{"carryover", c.Carryover.Validate},
		{"sentry", c.Sentry.Validate},
		{"progress", c.Progress.Validate},
	}
	if c.NotifierEnabled() {
		checks = append(checks, struct {
			name string
			fn   func() error
		}{"mqtt", c.MQTT.Validate})
	}
	if c.Progress.Enabled() && !c.NotifierEnabled() {
		return fmt.Errorf("progress: topic requires mqtt.broker")
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
	}
	return nil
}

// Load reads path, applies SP_ environment overrides, then defaults, and
// validates the result. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
		if k.Exists("scheduler") {
			if err := checkScheduler(k.Cut("scheduler")); err != nil {
				return nil, fmt.Errorf("scheduler: %w", err)
			}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkScheduler decodes the scheduler section of the config file strictly,
// so a misspelled key fails instead of being ignored.
func checkScheduler(sub *koanf.Koanf) error {
	b, err := sub.Marshal(json.Parser())
	if err != nil {
		return err
	}
	_, err = calendar.DecodeOptions(bytes.NewReader(b), "json")
	return err
}
