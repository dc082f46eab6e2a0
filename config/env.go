package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
)

// Environment variables
const (
	EnvProfitThreshold = "PROFIT_THRESHOLD_USD"
	EnvPollInterval    = "POLL_INTERVAL_MS"
	EnvMetricsAddr     = "METRICS_ADDR"
	envRPCSuffix       = "_RPC_URL" // prefixed with the upper-cased chain name
)

// LoadEnv loads environment variables from .env file
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// RPCEnvKey returns the variable overriding a chain's RPC endpoint,
// e.g. POLYGON_RPC_URL for "polygon"
func RPCEnvKey(chain string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(chain))
	return key + envRPCSuffix
}

// ApplyEnv overrides cfg with values from the environment
func ApplyEnv(cfg *Config) error {
	for i := range cfg.Chains {
		ch := &cfg.Chains[i]
		ch.RPCEndpoint = GetEnvWithDefault(RPCEnvKey(ch.Name), ch.RPCEndpoint)
	}

	if v := os.Getenv(EnvProfitThreshold); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err == nil && !umath.IsFiniteNonNegative(threshold) {
			err = fmt.Errorf("must be a finite non-negative number")
		}
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %v", types.ErrConfiguration, EnvProfitThreshold, v, err)
		}
		cfg.ProfitThresholdUSD = threshold
	}

	if v := os.Getenv(EnvPollInterval); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %v", types.ErrConfiguration, EnvPollInterval, v, err)
		}
		cfg.PollIntervalMs = ms
	}

	cfg.MetricsAddr = GetEnvWithDefault(EnvMetricsAddr, cfg.MetricsAddr)
	return nil
}
