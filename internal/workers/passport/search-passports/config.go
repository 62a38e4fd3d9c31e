// internal/workers/passport/search-passports/config.go
package searchpassports

import "time"

type Config struct {
	Timeout time.Duration
	Index   string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Index:   "credit-passports",
	}
}
