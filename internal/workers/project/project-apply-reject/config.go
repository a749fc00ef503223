// internal/workers/project/project-apply-reject/config.go
package projectapplyreject

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
