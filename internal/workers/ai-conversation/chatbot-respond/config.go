// internal/workers/ai-conversation/chatbot-respond/config.go
package chatbotrespond

import "time"

type Config struct {
	Timeout       time.Duration
	IncludeSchema bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		IncludeSchema: true,
	}
}
