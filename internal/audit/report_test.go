package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDays() []DailySnapshot {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return []DailySnapshot{
		{Date: start, Weight: 0.5, WPrev: 0, Return: 0.01, RiskFree: 0.0002, Turnover: 0.5, Cost: 0.00005, StratRet: 0.00015, EqStrat: 1.00015},
		{Date: start.AddDate(0, 0, 1), Weight: 0.5, WPrev: 0.5, Return: -0.02, RiskFree: 0.0002, StratRet: -0.0099, EqStrat: 0.99025},
	}
}

func sampleRun() RunRecord {
	return RunRecord{
		StrategyID:      "ewma_vol_target",
		ConfigHash:      "0123456789abcdef0123",
		DataFingerprint: "feedbeef",
		StartDate:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Days:            2,
		VolMatchWeight:  0.5,
		KPIs: map[string]KPI{
			SeriesStrategy:   {CAGR: 0.10, AnnVol: 0.20, Sharpe: 0.5, MaxDD: -0.10, Calmar: 1.0},
			SeriesBuyHold:    {CAGR: 0.15, AnnVol: 0.40, Sharpe: math.NaN(), MaxDD: -0.30, Calmar: 0.5},
			SeriesVolMatched: {CAGR: 0.07, AnnVol: 0.20, Sharpe: 0.3, MaxDD: -0.15, Calmar: math.NaN()},
		},
	}
}

func TestAttribute(t *testing.T) {
	a := Attribute(sampleDays())

	assert.InDelta(t, 0.5*-0.02, a.Market, 1e-15)
	assert.InDelta(t, 0.0002+0.5*0.0002, a.Cash, 1e-15)
	assert.InDelta(t, -0.00005, a.Cost, 1e-15)
	assert.InDelta(t, 0.00015-0.0099, a.Total, 1e-15)
	assert.InDelta(t, 0.25, a.Exposure, 1e-15)

	assert.Equal(t, Attribution{}, Attribute(nil))
}

func TestCompare(t *testing.T) {
	c := Compare(sampleRun().KPIs)

	require.NotNil(t, c.ExcessVsBH)
	assert.InDelta(t, -0.05, *c.ExcessVsBH, 1e-12)
	assert.InDelta(t, 0.03, *c.ExcessVsVM, 1e-12)
	assert.InDelta(t, 0.2, *c.MaxDDDelta, 1e-12)
	assert.InDelta(t, 0.2, *c.SharpeDelta, 1e-12)

	kpis := sampleRun().KPIs
	kpis[SeriesVolMatched] = KPI{Sharpe: math.NaN()}
	assert.Nil(t, Compare(kpis).SharpeDelta)
}

func TestEquityCurves(t *testing.T) {
	days := sampleDays()
	curves := EquityCurves(days)
	require.Len(t, curves, 2)
	assert.Equal(t, days[1].Date, curves[1].Date)
	assert.Equal(t, days[1].EqStrat, curves[1].Strategy)
}

func TestWriteEquityCSV(t *testing.T) {
	days := sampleDays()

	var buf bytes.Buffer
	require.NoError(t, WriteEquityCSV(&buf, days))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"date", "strategy", "buy_hold", "vol_matched"}, records[0])
	assert.Equal(t, days[1].Date.Format("2006-01-02"), records[2][0])
	assert.Equal(t, strconv.FormatFloat(days[1].EqStrat, 'g', -1, 64), records[2][1])
	assert.Equal(t, strconv.FormatFloat(days[1].EqVM, 'g', -1, 64), records[2][3])
}

func TestReport_JSONIsValidWithNaN(t *testing.T) {
	report := NewReport(sampleRun(), sampleDays())
	require.NotNil(t, report.Latest)
	assert.Equal(t, 0.5, report.Latest.Weight)

	data, err := report.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	kpis := decoded["run"].(map[string]any)["kpis"].(map[string]any)
	assert.Nil(t, kpis[SeriesBuyHold].(map[string]any)["sharpe"])
	assert.Equal(t, 0.1, kpis[SeriesStrategy].(map[string]any)["cagr"])
}

func TestReport_ToSummary(t *testing.T) {
	summary := NewReport(sampleRun(), sampleDays()).ToSummary()

	assert.Contains(t, summary, "0123456789ab")
	assert.Contains(t, summary, "Vol-matched (w=0.50)")
	assert.Contains(t, summary, "10.00%")
	assert.Contains(t, summary, "n/a")
	assert.Contains(t, summary, "2024-01-03")
}

func TestWriteFrameCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrameCSV(&buf, sampleDays()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, frameColumns, records[0])
	assert.Equal(t, "2024-01-02", records[1][0])
	assert.Len(t, records[1], len(frameColumns))
	assert.Equal(t, "0.5", records[1][indexOf(frameColumns, "w")])
	assert.Equal(t, "-0.0099", records[2][indexOf(frameColumns, "strat_ret")])
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	days := sampleDays()

	paths, err := WriteFiles(dir, "run", NewReport(sampleRun(), days), days)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.True(t, strings.HasSuffix(paths[0], "run_frame.csv"))
	assert.True(t, strings.HasSuffix(paths[1], "run_equity.csv"))
	assert.True(t, strings.HasSuffix(paths[2], "run_report.json"))
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
