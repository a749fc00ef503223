// internal/workers/project/project-apply/config.go
package projectapply

import "time"

// Timeout also bounds how long a job waits for a busy project lock.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
