// internal/workers/passport/generate-credit-passport/config.go
package generatecreditpassport

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
