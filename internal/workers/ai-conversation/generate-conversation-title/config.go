// internal/workers/ai-conversation/generate-conversation-title/config.go
package generateconversationtitle

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
