// internal/workers/passport/store-passport-record/config.go
package storepassportrecord

import (
	"time"

	"passport-workers/internal/scoring"
)

type Config struct {
	Timeout      time.Duration
	HistoryLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		HistoryLimit: scoring.MaxHistory,
	}
}
