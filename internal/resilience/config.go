package resilience

import (
	"time"

	"github.com/sells-group/autoapply/internal/config"
)

// FromOracleConfig builds the retry and breaker settings for the oracle.
func FromOracleConfig(cfg config.OracleConfig) (RetryConfig, BreakerConfig) {
	retry := DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	retry.OnRetry = RetryLogger("anthropic", "oracle_resolve")

	breaker := BreakerConfig{Name: "oracle", FailureThreshold: cfg.BreakerThreshold}
	if cfg.BreakerResetSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.BreakerResetSecs) * time.Second
	}
	return retry, breaker
}
