// internal/workers/project/project-apply-cancel/config.go
package projectapplycancel

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
