package config

import "time"

// Default returns the baseline configuration. Loaded files are merged
// over it, so absent keys keep these values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Storage: StorageConfig{
			Path: "fedopt.db",
		},
		Providers: ProvidersConfig{
			Primary: ProviderConfig{
				Name:  "ollama",
				Model: "llava",
			},
		},
		FPO: FPOConfig{
			MaxPopulation:   10,
			EvolutionEvery:  3,
			MutationEnabled: false,
			MinCallInterval: Duration(500 * time.Millisecond),
			Seeds: []SeedTemplate{
				{Name: "plain", Text: "Describe this media sample in one concise paragraph."},
				{Name: "detailed", Text: "Describe this media sample thoroughly, covering subjects, setting, and notable details."},
			},
			Domains: []string{"general"},
		},
		Samples: SamplesConfig{
			Root: "samples",
		},
		Queue: QueueConfig{
			PollInterval:            Duration(2 * time.Second),
			MaxConcurrentCategories: 4,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}
