package resilience

import (
	"time"

	"github.com/givecare/resource-matcher/internal/config"
)

// RetryFromCatalog builds a RetryConfig from the catalog section, keeping
// defaults for unset values.
func RetryFromCatalog(c config.CatalogConfig) RetryConfig {
	cfg := DefaultRetryConfig()
	if c.RetryAttempts > 0 {
		cfg.MaxAttempts = c.RetryAttempts
	}
	if c.RetryBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(c.RetryBackoffMs) * time.Millisecond
	}
	if c.RetryMaxMs > 0 {
		cfg.MaxBackoff = time.Duration(c.RetryMaxMs) * time.Millisecond
	}
	return cfg
}

// BreakerFromCatalog builds a BreakerConfig from the catalog section.
func BreakerFromCatalog(c config.CatalogConfig) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if c.BreakerThreshold > 0 {
		cfg.FailureThreshold = c.BreakerThreshold
	}
	if c.BreakerResetSecs > 0 {
		cfg.ResetTimeout = time.Duration(c.BreakerResetSecs) * time.Second
	}
	return cfg
}
