package strategyconfig

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/voltarget/internal/backtest"
	"github.com/wonny/voltarget/internal/signal"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Empty(t, Warn(cfg))

	p := cfg.BacktestParams()
	assert.Equal(t, signal.Params{
		LookbackVol: 20,
		TargetVol:   0.40,
		LeverageCap: 1.3,
		TrendWindow: 20,
		TrendBand:   -0.02,
		VixCutoff:   35,
		VixWidth:    10,
	}, p.Signal)
	assert.Equal(t, 1.0, p.CostBps)
	assert.Equal(t, backtest.DefaultVolMatchCap, p.VolMatchCap)
	require.NoError(t, p.Validate())
}

func TestParse(t *testing.T) {
	yamlData := []byte(`
meta:
  strategy_id: test
  version: "2"
signal:
  lookback_vol: 30
  target_vol: 0.35
  leverage_cap: 1.0
  trend_window: 50
  trend_band: 0
  vix_cutoff: 30
  vix_width: 5
costs:
  cost_bps: 2.5
baseline:
  vol_match_cap: 2
`)

	cfg, err := Parse(yamlData)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Meta.StrategyID)
	assert.Equal(t, 30, cfg.Signal.LookbackVol)
	assert.Equal(t, 50, cfg.Signal.TrendWindow)
	assert.Equal(t, 2.5, cfg.Costs.CostBps)
	assert.Equal(t, 2.0, cfg.Baseline.VolMatchCap)
}

func TestParse_UnknownField(t *testing.T) {
	yamlData := []byte(`
meta:
  strategy_id: test
signal:
  lookback_vol: 20
  target_vol: 0.4
  leverage_cap: 1.3
  trend_window: 20
  trend_band: -0.02
  vix_cutoff: 35
  vix_width: 10
  target_volatility: 0.5
`)

	_, err := Parse(yamlData)
	assert.Error(t, err, "typo fields must fail")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"zero lookback", func(c *Config) { c.Signal.LookbackVol = 0 }, "signal.lookback_vol"},
		{"zero trend window", func(c *Config) { c.Signal.TrendWindow = 0 }, "signal.trend_window"},
		{"negative target vol", func(c *Config) { c.Signal.TargetVol = -0.1 }, "signal.target_vol"},
		{"nan leverage cap", func(c *Config) { c.Signal.LeverageCap = math.NaN() }, "signal.leverage_cap"},
		{"trend band at -1", func(c *Config) { c.Signal.TrendBand = -1 }, "signal.trend_band"},
		{"infinite cutoff", func(c *Config) { c.Signal.VixCutoff = math.Inf(1) }, "signal.vix_cutoff"},
		{"zero gate width", func(c *Config) { c.Signal.VixWidth = 0 }, "signal.vix_width"},
		{"negative vix width", func(c *Config) { c.Signal.VixWidth = -10 }, "signal.vix_width"},
		{"negative cost", func(c *Config) { c.Costs.CostBps = -1 }, "costs.cost_bps"},
		{"negative vol match cap", func(c *Config) { c.Baseline.VolMatchCap = -1 }, "baseline.vol_match_cap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var vErr signal.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.True(t, errors.Is(err, signal.ErrInvalidParams))
		})
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.Signal.LeverageCap = 2.5
	cfg.Costs.CostBps = 0
	cfg.Signal.VixWidth = 0.5

	codes := make(map[string]bool)
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}

	assert.True(t, codes["LEVERAGE_CAP_HIGH"])
	assert.True(t, codes["ZERO_COST"])
	assert.True(t, codes["NARROW_GATE"])
	assert.False(t, codes["SHORT_LOOKBACK"])
}

func TestHash(t *testing.T) {
	a := Default()
	b := Default()

	hashA, err := Hash(a)
	require.NoError(t, err)
	assert.Len(t, hashA, 64)

	// 동일 설정 → 동일 해시
	hashB, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)

	// 메타/데이터 경로는 해시에 영향 없음
	b.Meta.Version = "99"
	b.Data.PriceFile = "other.csv"
	hashB, err = Hash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)

	b.Costs.CostBps = 5
	hashB, err = Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}

func TestWriteDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")

	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path), "existing file must not be overwritten")

	cfg, raw, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, Default(), cfg)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
