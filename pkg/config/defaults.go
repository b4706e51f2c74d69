package config

// DefaultConfig returns the default configuration for MimiClaw.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				Enabled:        false,
				APIBase:        "https://api.openai.com/v1",
				Model:          "gpt-4o-mini",
				TimeoutSeconds: 60,
				MaxRPS:         2,
			},
			Anthropic: ProviderConfig{
				Enabled:        false,
				APIBase:        "",
				Model:          "claude-haiku-4-5",
				TimeoutSeconds: 60,
				MaxRPS:         2,
			},
			Local: ProviderConfig{
				Enabled:        false,
				APIBase:        "http://localhost:11434/v1",
				Model:          "llama3",
				TimeoutSeconds: 120,
				MaxRPS:         4,
			},
		},
		Engine: EngineConfig{
			DefaultPersona: "formal-assistant",
			Seed:           0,
			RequestTimeout: 60,
		},
		Evolution: EvolutionConfig{
			WindowSize:          40,
			RefinementThreshold: 0.5,
			ConvergedThreshold:  0.9,
			DriftTolerance:      0.005,
			DriftPatience:       3,
			BufferCapacity:      32,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Redact: true,
		},
	}
}
