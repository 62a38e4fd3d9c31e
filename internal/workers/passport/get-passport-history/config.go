// internal/workers/passport/get-passport-history/config.go
package getpassporthistory

import (
	"time"

	"passport-workers/internal/scoring"
)

type Config struct {
	Timeout      time.Duration
	CacheTTL     time.Duration
	HistoryLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		CacheTTL:     10 * time.Minute,
		HistoryLimit: scoring.MaxHistory,
	}
}
