package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Host:                  "0.0.0.0",
			Port:                  8000,
			LogLevel:              "info",
			RequestTimeoutSeconds: 30,
		},
		WhatsApp: WhatsAppConfig{
			AccessToken: "${WHATSAPP_ACCESS_TOKEN}",
			VerifyToken: "${WHATSAPP_VERIFY_TOKEN}",
			APIVersion:  "v19.0",
		},
		Provider: ProviderConfig{
			APIKey:      "${GROQ_API_KEY}",
			Model:       "llama3-8b-8192",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Knowledge: KnowledgeConfig{
			Enabled:      false,
			DBPath:       "~/.warelay/knowledge.db",
			SearchTopK:   3,
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
