// internal/workers/passport/augment-passport-narrative/config.go
package augmentpassportnarrative

import "time"

// Timeout bounds the whole provider call, retries included.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 20 * time.Second,
	}
}
