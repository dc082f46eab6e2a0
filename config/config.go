package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/stablearb/types"
	umath "github.com/michaelpento.lv/stablearb/utils/math"
	"gopkg.in/yaml.v2"
)

// Pool kinds
const (
	PoolKindV2 = "v2"
	PoolKindV3 = "v3"
)

const defaultConfigName = ".stablearb.json"

type Config struct {
	// Loop timing
	PollIntervalMs   int64 `json:"pollIntervalMs" yaml:"pollIntervalMs"`
	RetryDelayMs     int64 `json:"retryDelayMs" yaml:"retryDelayMs"`
	NativePriceTTLMs int64 `json:"nativePriceTTLMs" yaml:"nativePriceTTLMs"`

	// Trade sizing
	ProfitThresholdUSD        float64 `json:"profitThresholdUSD" yaml:"profitThresholdUSD"`
	MaxTradeFractionOfBalance float64 `json:"maxTradeFractionOfBalance" yaml:"maxTradeFractionOfBalance"`
	AbsoluteMinTradeSize      float64 `json:"absoluteMinTradeSize" yaml:"absoluteMinTradeSize"`
	AtomicUnit                float64 `json:"atomicUnit" yaml:"atomicUnit"`

	// Asset pair
	BaseSymbol  string      `json:"baseSymbol" yaml:"baseSymbol"`
	QuoteSymbol string      `json:"quoteSymbol" yaml:"quoteSymbol"`
	SeedBalance SeedBalance `json:"seedBalance" yaml:"seedBalance"`

	RPCRateLimit RateLimitConfig `json:"rpcRateLimit" yaml:"rpcRateLimit"`
	MetricsAddr  string          `json:"metricsAddr" yaml:"metricsAddr"`

	Chains []ChainConfig `json:"chains" yaml:"chains"`
}

// SeedBalance is the starting paper allocation on every chain
type SeedBalance struct {
	Base  float64 `json:"base" yaml:"base"`
	Quote float64 `json:"quote" yaml:"quote"`
}

type ChainConfig struct {
	Name              string            `json:"name" yaml:"name"`
	RPCEndpoint       string            `json:"rpcEndpoint" yaml:"rpcEndpoint"`
	PoolAddress       string            `json:"poolAddress" yaml:"poolAddress"`
	PoolKind          string            `json:"poolKind" yaml:"poolKind"`
	NativeSymbol      string            `json:"nativeSymbol" yaml:"nativeSymbol"`
	NativeUSDFeed     string            `json:"nativeUsdFeed" yaml:"nativeUsdFeed"`
	BaseSymbol        string            `json:"baseSymbol,omitempty" yaml:"baseSymbol,omitempty"`
	QuoteSymbol       string            `json:"quoteSymbol,omitempty" yaml:"quoteSymbol,omitempty"`
	FallbackNativeUSD float64           `json:"fallbackNativeUsd" yaml:"fallbackNativeUsd"`
	GasUnits          map[string]uint64 `json:"gasUnits" yaml:"gasUnits"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	BurstSize         int     `json:"burstSize" yaml:"burstSize"`
}

// PollInterval is the sleep after a completed cycle
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RetryDelay is the sleep after a failed cycle
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c *Config) NativePriceTTL() time.Duration {
	return time.Duration(c.NativePriceTTLMs) * time.Millisecond
}

// SeedBalances expands SeedBalance to every configured chain
func (c *Config) SeedBalances() map[types.Chain]types.Balance {
	seed := make(map[types.Chain]types.Balance, len(c.Chains))
	for _, ch := range c.Chains {
		seed[types.Chain(ch.Name)] = types.Balance{
			Base:  c.SeedBalance.Base,
			Quote: c.SeedBalance.Quote,
		}
	}
	return seed
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.PollIntervalMs <= 0 {
		errors = append(errors, "pollIntervalMs must be positive")
	}
	if c.RetryDelayMs <= 0 {
		errors = append(errors, "retryDelayMs must be positive")
	}
	if c.NativePriceTTLMs <= 0 {
		errors = append(errors, "nativePriceTTLMs must be positive")
	}
	if !umath.IsFiniteNonNegative(c.ProfitThresholdUSD) {
		errors = append(errors, "profitThresholdUSD must be a finite non-negative number")
	}
	if !umath.IsFinitePositive(c.MaxTradeFractionOfBalance) || c.MaxTradeFractionOfBalance > 1 {
		errors = append(errors, "maxTradeFractionOfBalance must be in (0, 1]")
	}
	if !umath.IsFiniteNonNegative(c.AbsoluteMinTradeSize) {
		errors = append(errors, "absoluteMinTradeSize must be a finite non-negative number")
	}
	if !umath.IsFinitePositive(c.AtomicUnit) {
		errors = append(errors, "atomicUnit must be a finite positive number")
	}
	if c.BaseSymbol == "" || c.QuoteSymbol == "" {
		errors = append(errors, "baseSymbol and quoteSymbol must be specified")
	} else if strings.EqualFold(c.BaseSymbol, c.QuoteSymbol) {
		errors = append(errors, "baseSymbol and quoteSymbol must differ")
	}
	if !umath.IsFiniteNonNegative(c.SeedBalance.Base) || !umath.IsFiniteNonNegative(c.SeedBalance.Quote) {
		errors = append(errors, "seedBalance must be finite and non-negative")
	}

	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("rpc rate limit error: %v", err))
	}

	if len(c.Chains) != 2 {
		errors = append(errors, fmt.Sprintf("exactly 2 chains required, got %d", len(c.Chains)))
	}
	seen := make(map[string]bool)
	for i := range c.Chains {
		ch := &c.Chains[i]
		key := strings.ToLower(ch.Name)
		if seen[key] {
			errors = append(errors, fmt.Sprintf("duplicate chain name %q", ch.Name))
		}
		seen[key] = true
		if err := ch.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("chain %q: %v", ch.Name, err))
		}
		if base, quote := ch.Symbols(c.BaseSymbol, c.QuoteSymbol); base != "" && strings.EqualFold(base, quote) {
			errors = append(errors, fmt.Sprintf("chain %q: base and quote symbols must differ", ch.Name))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%w: %s", types.ErrConfiguration, strings.Join(errors, "; "))
	}

	return nil
}

// Symbols returns the pool token symbols on this chain, e.g. USDC.e for a
// bridged asset, falling back to the global pair
func (ch *ChainConfig) Symbols(defaultBase, defaultQuote string) (base, quote string) {
	base, quote = defaultBase, defaultQuote
	if ch.BaseSymbol != "" {
		base = ch.BaseSymbol
	}
	if ch.QuoteSymbol != "" {
		quote = ch.QuoteSymbol
	}
	return base, quote
}

func (ch *ChainConfig) Validate() error {
	var problems []string

	if ch.Name == "" {
		problems = append(problems, "name must be specified")
	}
	if ch.RPCEndpoint == "" {
		problems = append(problems, "rpcEndpoint must be specified")
	}
	if !common.IsHexAddress(ch.PoolAddress) {
		problems = append(problems, "poolAddress must be a hex address")
	}
	if ch.PoolKind != PoolKindV2 && ch.PoolKind != PoolKindV3 {
		problems = append(problems, fmt.Sprintf("poolKind must be %q or %q", PoolKindV2, PoolKindV3))
	}
	if ch.NativeUSDFeed == "" && !umath.IsFinitePositive(ch.FallbackNativeUSD) {
		problems = append(problems, "no native USD price source: set nativeUsdFeed or a positive fallbackNativeUsd")
	}
	if ch.NativeUSDFeed != "" && !common.IsHexAddress(ch.NativeUSDFeed) {
		problems = append(problems, "nativeUsdFeed must be a hex address")
	}
	if !umath.IsFiniteNonNegative(ch.FallbackNativeUSD) {
		problems = append(problems, "fallbackNativeUsd must be finite and non-negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, ", "))
	}
	return nil
}

func (r *RateLimitConfig) Validate() error {
	if !umath.IsFinitePositive(r.RequestsPerSecond) {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}

	return nil
}

// LoadConfig reads cfgFile over DefaultConfig, applies environment
// overrides, and validates the result. YAML is used for .yaml/.yml files.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, defaultConfigName)
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config := DefaultConfig()
	if err := decode(cfgFile, data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config file: %v", types.ErrConfiguration, err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.UnmarshalStrict(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func DefaultConfig() *Config {
	return &Config{
		PollIntervalMs:            15000,
		RetryDelayMs:              5000,
		NativePriceTTLMs:          30000,
		ProfitThresholdUSD:        0.5,
		MaxTradeFractionOfBalance: 0.5,
		AbsoluteMinTradeSize:      100,
		AtomicUnit:                1e-6,
		BaseSymbol:                "USDC",
		QuoteSymbol:               "USDT",
		SeedBalance: SeedBalance{
			Base:  50000,
			Quote: 50000,
		},
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
	}
}
