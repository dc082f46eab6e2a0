package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/michaelpento.lv/stablearb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
profitThresholdUSD: 0.75
seedBalance:
  base: 1000
  quote: 2000
chains:
  - name: polygon
    rpcEndpoint: https://polygon.example
    poolAddress: "0x0000000000000000000000000000000000000001"
    poolKind: v3
    nativeSymbol: MATIC
    fallbackNativeUsd: 0.7
    gasUnits:
      swap: 150000
  - name: arbitrum
    rpcEndpoint: https://arbitrum.example
    poolAddress: "0x0000000000000000000000000000000000000002"
    poolKind: v2
    nativeSymbol: ETH
    nativeUsdFeed: "0x0000000000000000000000000000000000000003"
    gasUnits:
      swap: 200000
      bridge: 50000
`

const validJSON = `{
  "pollIntervalMs": 1000,
  "chains": [
    {"name": "a", "rpcEndpoint": "http://a", "poolAddress": "0x0000000000000000000000000000000000000001", "poolKind": "v2", "fallbackNativeUsd": 1},
    {"name": "b", "rpcEndpoint": "http://b", "poolAddress": "0x0000000000000000000000000000000000000002", "poolKind": "v2", "fallbackNativeUsd": 1}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Chains = []ChainConfig{
		{Name: "a", RPCEndpoint: "http://a", PoolAddress: "0x0000000000000000000000000000000000000001", PoolKind: PoolKindV2, FallbackNativeUSD: 1},
		{Name: "b", RPCEndpoint: "http://b", PoolAddress: "0x0000000000000000000000000000000000000002", PoolKind: PoolKindV3, FallbackNativeUSD: 1},
	}
	return cfg
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "cfg.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.ProfitThresholdUSD)
	// untouched options keep their defaults
	assert.Equal(t, 15*time.Second, cfg.PollInterval())
	assert.Equal(t, 5*time.Second, cfg.RetryDelay())
	assert.Equal(t, 30*time.Second, cfg.NativePriceTTL())
	assert.Equal(t, 0.5, cfg.MaxTradeFractionOfBalance)
	assert.Equal(t, 100.0, cfg.AbsoluteMinTradeSize)
	assert.Equal(t, 1e-6, cfg.AtomicUnit)

	require.Len(t, cfg.Chains, 2)
	assert.Equal(t, uint64(50000), cfg.Chains[1].GasUnits["bridge"])
	assert.Equal(t, map[types.Chain]types.Balance{
		"polygon":  {Base: 1000, Quote: 2000},
		"arbitrum": {Base: 1000, Quote: 2000},
	}, cfg.SeedBalances())
}

func TestLoadConfigJSON(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "cfg.json", validJSON))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, "USDC", cfg.BaseSymbol)
	assert.Equal(t, "USDT", cfg.QuoteSymbol)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.json", "{not json"))
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = LoadConfig(writeFile(t, "unknown.yaml", "pollIntervalMsTypo: 5\n"))
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = LoadConfig(writeFile(t, "nochains.json", `{}`))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validConfig().ValidateConfig())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"one chain", func(c *Config) { c.Chains = c.Chains[:1] }},
		{"duplicate chain", func(c *Config) { c.Chains[1].Name = "A" }},
		{"missing rpc", func(c *Config) { c.Chains[0].RPCEndpoint = "" }},
		{"bad pool address", func(c *Config) { c.Chains[0].PoolAddress = "pool" }},
		{"unknown pool kind", func(c *Config) { c.Chains[0].PoolKind = "curve" }},
		{"no native price source", func(c *Config) { c.Chains[1].FallbackNativeUSD = 0 }},
		{"bad feed address", func(c *Config) { c.Chains[1].NativeUSDFeed = "feed" }},
		{"zero poll interval", func(c *Config) { c.PollIntervalMs = 0 }},
		{"negative retry delay", func(c *Config) { c.RetryDelayMs = -1 }},
		{"zero fraction", func(c *Config) { c.MaxTradeFractionOfBalance = 0 }},
		{"fraction above one", func(c *Config) { c.MaxTradeFractionOfBalance = 1.5 }},
		{"zero atomic unit", func(c *Config) { c.AtomicUnit = 0 }},
		{"negative threshold", func(c *Config) { c.ProfitThresholdUSD = -1 }},
		{"same symbols", func(c *Config) { c.QuoteSymbol = "usdc" }},
		{"no rate limit", func(c *Config) { c.RPCRateLimit.RequestsPerSecond = 0 }},
		{"nan threshold", func(c *Config) { c.ProfitThresholdUSD = math.NaN() }},
		{"infinite threshold", func(c *Config) { c.ProfitThresholdUSD = math.Inf(1) }},
		{"nan fraction", func(c *Config) { c.MaxTradeFractionOfBalance = math.NaN() }},
		{"nan min trade size", func(c *Config) { c.AbsoluteMinTradeSize = math.NaN() }},
		{"infinite atomic unit", func(c *Config) { c.AtomicUnit = math.Inf(1) }},
		{"nan seed balance", func(c *Config) { c.SeedBalance.Base = math.NaN() }},
		{"nan fallback price", func(c *Config) { c.Chains[0].FallbackNativeUSD = math.NaN() }},
		{"chain symbols collide", func(c *Config) { c.Chains[1].BaseSymbol = "USDT" }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(cfg)
			assert.ErrorIs(t, cfg.ValidateConfig(), types.ErrConfiguration)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("A_RPC_URL", "http://override")
	t.Setenv(EnvProfitThreshold, "2.5")
	t.Setenv(EnvPollInterval, "2000")
	t.Setenv(EnvMetricsAddr, ":9100")

	cfg := validConfig()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "http://override", cfg.Chains[0].RPCEndpoint)
	assert.Equal(t, "http://b", cfg.Chains[1].RPCEndpoint)
	assert.Equal(t, 2.5, cfg.ProfitThresholdUSD)
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestApplyEnvInvalid(t *testing.T) {
	for _, v := range []string{"lots", "NaN", "+Inf", "-1"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv(EnvProfitThreshold, v)
			cfg := validConfig()
			assert.ErrorIs(t, ApplyEnv(cfg), types.ErrConfiguration)
			assert.Equal(t, DefaultConfig().ProfitThresholdUSD, cfg.ProfitThresholdUSD)
		})
	}
}

func TestLoadConfigNonFinite(t *testing.T) {
	cases := map[string]string{
		"nan fraction":       validYAML + "maxTradeFractionOfBalance: .nan\n",
		"nan atomic unit":    validYAML + "atomicUnit: .nan\n",
		"nan min trade size": validYAML + "absoluteMinTradeSize: .nan\n",
		"infinite threshold": strings.Replace(validYAML, "profitThresholdUSD: 0.75", "profitThresholdUSD: .inf", 1),
		"nan seed":           strings.Replace(validYAML, "base: 1000", "base: .nan", 1),
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "cfg.yaml", doc))
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestLoadConfigNonFiniteFromEnv(t *testing.T) {
	t.Setenv(EnvProfitThreshold, "NaN")
	_, err := LoadConfig(writeFile(t, "cfg.yaml", validYAML))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestChainSymbols(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "cfg.yaml", validYAML+`baseSymbol: USDC
quoteSymbol: USDT
`))
	require.NoError(t, err)

	base, quote := cfg.Chains[0].Symbols(cfg.BaseSymbol, cfg.QuoteSymbol)
	assert.Equal(t, "USDC", base)
	assert.Equal(t, "USDT", quote)

	cfg.Chains[0].BaseSymbol = "USDC.e"
	base, quote = cfg.Chains[0].Symbols(cfg.BaseSymbol, cfg.QuoteSymbol)
	assert.Equal(t, "USDC.e", base)
	assert.Equal(t, "USDT", quote)
	require.NoError(t, cfg.ValidateConfig())
}

func TestRPCEnvKey(t *testing.T) {
	assert.Equal(t, "POLYGON_RPC_URL", RPCEnvKey("polygon"))
	assert.Equal(t, "BASE_SEPOLIA_RPC_URL", RPCEnvKey("base-sepolia"))
}
