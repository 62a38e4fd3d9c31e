// internal/workers/passport/check-passport-entitlement/config.go
package checkpassportentitlement

import (
	"time"

	"passport-workers/internal/scoring"
)

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Prices   scoring.PricePoints
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
		Prices:   scoring.DefaultPricePoints,
	}
}
