package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

// DefaultPath is the config file looked up in the working directory when no
// override is given.
const DefaultPath = ".config.yaml"

const envPrefix = "VISUAI_"

// Loader assembles the effective configuration: code defaults, then the yaml
// file, then environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultPath,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

func (l *Loader) Load() (*Config, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	cfg := DefaultConfig()

	path := l.path
	if env := os.Getenv(envPrefix + "CONFIG"); env != "" {
		path = env
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "load", "parse "+path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.KindConfig, "load", "read "+path, err)
	}

	l.applyEnv(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv maps a small set of deployment knobs onto the config. File values
// lose to the environment.
func (l *Loader) applyEnv(cfg *Config) {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv(envPrefix + "WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv(envPrefix + "AUTH_SECRET"); v != "" {
		cfg.Web.Auth.Secret = v
	}
	if v := os.Getenv(envPrefix + "HISTORY_DRIVER"); v != "" {
		cfg.History.Driver = v
	}
	if v := os.Getenv(envPrefix + "REDIS_ADDR"); v != "" {
		cfg.History.Redis.Addr = v
	}
	if v := os.Getenv(envPrefix + "ASR_URL"); v != "" {
		if selected, ok := cfg.ASR[cfg.Selected.ASR]; ok {
			selected.URL = v
			cfg.ASR[cfg.Selected.ASR] = selected
		}
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("server port %d out of range", cfg.Server.Port))
	}
	if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("web port %d out of range", cfg.Web.Port))
	}
	if cfg.Web.Enabled && cfg.Web.Port == cfg.Server.Port {
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("web and server ports collide on %d", cfg.Server.Port))
	}

	v := cfg.Engine.Voice
	if v.QuietWindowMs <= 0 {
		return errors.New(errors.KindConfig, "validate", "quiet window must be positive")
	}
	if v.EmergencyTimeoutS <= 0 {
		return errors.New(errors.KindConfig, "validate", "emergency timeout must be positive")
	}
	if v.EmergencyTimeout() <= v.QuietWindow() {
		return errors.New(errors.KindConfig, "validate",
			"emergency timeout must exceed the quiet window")
	}
	if v.PrimingFloorMs < 0 || v.SettleDelayMs < 0 || v.ResumeDelayMs < 0 {
		return errors.New(errors.KindConfig, "validate", "voice delays must not be negative")
	}

	r := cfg.Engine.Retry
	if r.MaxStartFailures < 1 {
		return errors.New(errors.KindConfig, "validate", "max start failures must be at least 1")
	}
	if r.RetryDelayMs <= 0 {
		return errors.New(errors.KindConfig, "validate", "retry delay must be positive")
	}

	s := cfg.Engine.Scene
	if s.ZoneLeft <= 0 || s.ZoneRight >= 1 || s.ZoneLeft >= s.ZoneRight {
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("zone thresholds %.2f/%.2f must satisfy 0 < left < right < 1",
				s.ZoneLeft, s.ZoneRight))
	}
	if s.CriticalScore < 0 || s.CriticalScore > 1 {
		return errors.New(errors.KindConfig, "validate", "critical score must be within [0,1]")
	}

	resp := cfg.Engine.Response
	if resp.CloseVehicleMeters <= 0 {
		return errors.New(errors.KindConfig, "validate", "close vehicle distance must be positive")
	}
	if resp.MovingScore < 0 || resp.MovingScore > 1 {
		return errors.New(errors.KindConfig, "validate", "moving score must be within [0,1]")
	}
	if resp.NearPlanMeters <= 0 || resp.NearPlanMeters >= resp.FarPlanMeters {
		return errors.New(errors.KindConfig, "validate",
			"plan bounds must satisfy 0 < near < far")
	}

	if cfg.Engine.Activation.Enabled && cfg.Engine.Activation.Phrase == "" {
		return errors.New(errors.KindConfig, "validate", "activation phrase must not be empty")
	}

	switch cfg.History.Driver {
	case "memory", "sqlite", "redis":
	default:
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("unknown history driver %q", cfg.History.Driver))
	}

	if _, ok := cfg.ASR[cfg.Selected.ASR]; !ok {
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("selected ASR %q has no configuration", cfg.Selected.ASR))
	}
	if _, ok := cfg.TTS[cfg.Selected.TTS]; !ok {
		return errors.New(errors.KindConfig, "validate",
			fmt.Sprintf("selected TTS %q has no configuration", cfg.Selected.TTS))
	}

	return nil
}
