package main

import (
	"golang.org/x/time/rate"

	"github.com/sells-group/track-cli/internal/config"
	"github.com/sells-group/track-cli/pkg/carrier"
)

// newCarrierClient builds the carrier client from config. A positive rate
// installs a limiter shared by every run using the client.
func newCarrierClient(c config.CarrierConfig) carrier.Client {
	opts := []carrier.Option{
		carrier.WithBaseURL(c.BaseURL),
		carrier.WithTimeout(c.Timeout()),
		carrier.WithUserAgent(c.UserAgent),
	}
	if c.RatePerSec > 0 {
		opts = append(opts, carrier.WithRateLimiter(rate.NewLimiter(rate.Limit(c.RatePerSec), 1)))
	}
	return carrier.NewClient(opts...)
}
