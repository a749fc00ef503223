// internal/workers/project/project-apply-accept/config.go
package projectapplyaccept

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
