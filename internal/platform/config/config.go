package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig         `yaml:"server" mapstructure:"server"`
	Log      LogConfig            `yaml:"log" mapstructure:"log"`
	Web      WebConfig            `yaml:"web" mapstructure:"web"`
	Engine   EngineConfig         `yaml:"engine" mapstructure:"engine"`
	Lexicon  LexiconConfig        `yaml:"lexicon" mapstructure:"lexicon"`
	Selected SelectedConfig       `yaml:"selected_module" mapstructure:"selected_module"`
	ASR      map[string]ASRConfig `yaml:"ASR" mapstructure:"ASR"`
	TTS      map[string]TTSConfig `yaml:"TTS" mapstructure:"TTS"`
	Cue      CueConfig            `yaml:"cue" mapstructure:"cue"`
	History  HistoryConfig        `yaml:"history" mapstructure:"history"`
}

// ServerConfig binds the device websocket endpoint. Token, when set, must be
// presented by the device in its hello message.
type ServerConfig struct {
	IP    string `yaml:"ip" mapstructure:"ip"`
	Port  int    `yaml:"port" mapstructure:"port"`
	Token string `yaml:"token" mapstructure:"token"`
}

type LogConfig struct {
	Level string `yaml:"log_level" mapstructure:"log_level"`
	Dir   string `yaml:"log_dir" mapstructure:"log_dir"`
	File  string `yaml:"log_file" mapstructure:"log_file"`
}

// WebConfig binds the control HTTP API.
type WebConfig struct {
	Enabled   bool       `yaml:"enabled" mapstructure:"enabled"`
	Port      int        `yaml:"port" mapstructure:"port"`
	StaticDir string     `yaml:"static_dir" mapstructure:"static_dir"`
	Auth      AuthConfig `yaml:"auth" mapstructure:"auth"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret   string `yaml:"secret" mapstructure:"secret"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// EngineConfig groups every tunable of the voice-query engine. Durations are
// plain integer fields so they survive yaml round-trips; accessor methods
// expose them as time.Duration.
type EngineConfig struct {
	Voice      VoiceConfig      `yaml:"voice" mapstructure:"voice"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Activation ActivationConfig `yaml:"activation" mapstructure:"activation"`
	Scene      SceneConfig      `yaml:"scene" mapstructure:"scene"`
	Response   ResponseConfig   `yaml:"response" mapstructure:"response"`
}

type VoiceConfig struct {
	SettleDelayMs     int `yaml:"settle_delay_ms" mapstructure:"settle_delay_ms"`
	PrimingFloorMs    int `yaml:"priming_floor_ms" mapstructure:"priming_floor_ms"`
	ResumeDelayMs     int `yaml:"resume_delay_ms" mapstructure:"resume_delay_ms"`
	QuietWindowMs     int `yaml:"quiet_window_ms" mapstructure:"quiet_window_ms"`
	EmergencyTimeoutS int `yaml:"emergency_timeout_s" mapstructure:"emergency_timeout_s"`
}

func (v VoiceConfig) SettleDelay() time.Duration {
	return time.Duration(v.SettleDelayMs) * time.Millisecond
}

func (v VoiceConfig) PrimingFloor() time.Duration {
	return time.Duration(v.PrimingFloorMs) * time.Millisecond
}

func (v VoiceConfig) ResumeDelay() time.Duration {
	return time.Duration(v.ResumeDelayMs) * time.Millisecond
}

func (v VoiceConfig) QuietWindow() time.Duration {
	return time.Duration(v.QuietWindowMs) * time.Millisecond
}

func (v VoiceConfig) EmergencyTimeout() time.Duration {
	return time.Duration(v.EmergencyTimeoutS) * time.Second
}

type RetryConfig struct {
	MaxStartFailures int `yaml:"max_start_failures" mapstructure:"max_start_failures"`
	RetryDelayMs     int `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
}

func (r RetryConfig) RetryDelay() time.Duration {
	return time.Duration(r.RetryDelayMs) * time.Millisecond
}

// ActivationConfig controls the continuous listening mode. When enabled the
// engine keeps a capture session open and watches transcripts for the phrase.
type ActivationConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Phrase  string `yaml:"phrase" mapstructure:"phrase"`
}

// SceneConfig carries the analyzer thresholds.
type SceneConfig struct {
	ZoneLeft      float64 `yaml:"zone_left" mapstructure:"zone_left"`
	ZoneRight     float64 `yaml:"zone_right" mapstructure:"zone_right"`
	CriticalScore float64 `yaml:"critical_score" mapstructure:"critical_score"`
}

// ResponseConfig carries the generator and crossing-advisor thresholds.
type ResponseConfig struct {
	CloseVehicleMeters float64 `yaml:"close_vehicle_m" mapstructure:"close_vehicle_m"`
	MovingScore        float64 `yaml:"moving_score" mapstructure:"moving_score"`
	NearPlanMeters     float64 `yaml:"near_plan_m" mapstructure:"near_plan_m"`
	FarPlanMeters      float64 `yaml:"far_plan_m" mapstructure:"far_plan_m"`
}

// LexiconConfig allows extra synonym entries on top of the built-in table.
type LexiconConfig struct {
	Extra []LexiconEntry `yaml:"extra" mapstructure:"extra"`
}

type LexiconEntry struct {
	Label    string   `yaml:"label" mapstructure:"label"`
	Synonyms []string `yaml:"synonyms" mapstructure:"synonyms"`
}

type SelectedConfig struct {
	ASR string `yaml:"ASR" mapstructure:"ASR"`
	TTS string `yaml:"TTS" mapstructure:"TTS"`
}

type ASRConfig struct {
	Type       string `yaml:"type" mapstructure:"type"`
	URL        string `yaml:"url" mapstructure:"url"`
	LocalOnly  bool   `yaml:"local_only" mapstructure:"local_only"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate"`
	Language   string `yaml:"lang" mapstructure:"lang"`
}

type TTSConfig struct {
	Type   string `yaml:"type" mapstructure:"type"`
	Voice  string `yaml:"voice" mapstructure:"voice"`
	Format string `yaml:"format" mapstructure:"format"`
}

type CueConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

type HistoryConfig struct {
	Driver   string            `yaml:"driver" mapstructure:"driver"`
	Limit    int               `yaml:"limit" mapstructure:"limit"`
	TTLHours int               `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	SQLite   SQLiteStoreConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Redis    RedisStoreConfig  `yaml:"redis,omitempty" mapstructure:"redis"`
}

func (h HistoryConfig) TTL() time.Duration {
	return time.Duration(h.TTLHours) * time.Hour
}

type SQLiteStoreConfig struct {
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}
