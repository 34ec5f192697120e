package config

// DefaultConfig returns the configuration used when no file overrides it.
// Engine timings and thresholds here are the shipped behavior; changing them
// changes what users hear.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8989,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			Port:      8080,
			StaticDir: "data/static",
			Auth: AuthConfig{
				Enabled:  false,
				Secret:   "change_me",
				TTLHours: 24,
			},
		},
		Engine: EngineConfig{
			Voice: VoiceConfig{
				SettleDelayMs:     300,
				PrimingFloorMs:    500,
				ResumeDelayMs:     300,
				QuietWindowMs:     1500,
				EmergencyTimeoutS: 30,
			},
			Retry: RetryConfig{
				MaxStartFailures: 3,
				RetryDelayMs:     2000,
			},
			Activation: ActivationConfig{
				Enabled: false,
				Phrase:  "hey assistant",
			},
			Scene: SceneConfig{
				ZoneLeft:      0.3,
				ZoneRight:     0.7,
				CriticalScore: 0.7,
			},
			Response: ResponseConfig{
				CloseVehicleMeters: 5.0,
				MovingScore:        0.8,
				NearPlanMeters:     3.0,
				FarPlanMeters:      8.0,
			},
		},
		Selected: SelectedConfig{
			ASR: "LocalStreamASR",
			TTS: "DeviceTTS",
		},
		ASR: map[string]ASRConfig{
			"LocalStreamASR": {
				Type:       "wsstream",
				URL:        "ws://127.0.0.1:2700/asr",
				LocalOnly:  true,
				SampleRate: 16000,
				Language:   "en",
			},
		},
		TTS: map[string]TTSConfig{
			"DeviceTTS": {
				Type: "device",
			},
			"EdgeTTS": {
				Type:   "edge",
				Voice:  "en-US-AriaNeural",
				Format: "mp3",
			},
		},
		Cue: CueConfig{
			Enabled: true,
			Path:    "data/sounds/listen.mp3",
		},
		History: HistoryConfig{
			Driver:   "memory",
			Limit:    200,
			TTLHours: 72,
			SQLite: SQLiteStoreConfig{
				DSN: "data/visuai.db",
			},
			Redis: RedisStoreConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "visuai",
			},
		},
	}
}
