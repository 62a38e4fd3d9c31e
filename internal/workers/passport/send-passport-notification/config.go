// internal/workers/passport/send-passport-notification/config.go
package sendpassportnotification

import "time"

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	PortalURL    string
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
