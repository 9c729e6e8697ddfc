package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// =============================================================================
// Run Report
// =============================================================================

// Report is the JSON artifact of a run
// ⭐ SSOT: 백테스트 리포팅은 여기서만
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Run         RunRecord           `json:"run"`
	Comparison  BenchmarkComparison `json:"comparison"`
	Attribution Attribution         `json:"attribution"`
	TailRisk    map[string]TailRisk `json:"tail_risk"`
	Latest      *DailySnapshot      `json:"latest,omitempty"`
}

// NewReport assembles a report from a run and its days
func NewReport(run RunRecord, days []DailySnapshot) *Report {
	report := &Report{
		GeneratedAt: time.Now(),
		Run:         run,
		Comparison:  Compare(run.KPIs),
		Attribution: Attribute(days),
		TailRisk:    TailRisks(days, DefaultTailConfidence),
	}
	if len(days) > 0 {
		last := days[len(days)-1]
		report.Latest = &last
	}
	return report
}

// ToJSON JSON 형식으로 출력
func (report *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// ToSummary 요약 문자열 출력
func (report *Report) ToSummary() string {
	run := report.Run
	var summary string

	summary += fmt.Sprintf("=== Backtest Report (%s) ===\n", report.GeneratedAt.Format("2006-01-02"))
	summary += fmt.Sprintf("Strategy: %s  Config: %s\n", run.StrategyID, shortHash(run.ConfigHash))
	summary += fmt.Sprintf("Period: %s ~ %s (%d days, %d warm-up)\n\n",
		run.StartDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"), run.Days, run.WarmupDays)

	summary += "📊 KPIs\n"
	summary += fmt.Sprintf("  %-22s %9s %9s %8s %9s %8s\n", "", "CAGR", "AnnVol", "Sharpe", "MaxDD", "Calmar")
	for _, row := range []struct{ label, key string }{
		{"Strategy", SeriesStrategy},
		{"Buy&Hold", SeriesBuyHold},
		{fmt.Sprintf("Vol-matched (w=%.2f)", run.VolMatchWeight), SeriesVolMatched},
	} {
		k, ok := run.KPIs[row.key]
		if !ok {
			continue
		}
		summary += fmt.Sprintf("  %-22s %9s %9s %8s %9s %8s\n", row.label,
			pct(k.CAGR), pct(k.AnnVol), num(k.Sharpe), pct(k.MaxDD), num(k.Calmar))
	}
	summary += "\n"

	summary += fmt.Sprintf("📉 Daily tail risk (%.0f%% historical)\n", DefaultTailConfidence*100)
	summary += fmt.Sprintf("  %-22s %9s %9s\n", "", "VaR", "CVaR")
	for _, row := range []struct{ label, key string }{
		{"Strategy", SeriesStrategy},
		{"Buy&Hold", SeriesBuyHold},
		{"Vol-matched", SeriesVolMatched},
	} {
		tr := report.TailRisk[row.key]
		summary += fmt.Sprintf("  %-22s %9s %9s\n", row.label, pct(tr.VaR), pct(tr.CVaR))
	}
	summary += "\n"

	a := report.Attribution
	summary += "🧮 Return Attribution (sum of daily returns)\n"
	summary += fmt.Sprintf("  Market: %s  Cash: %s  Cost: %s  Total: %s\n", pct(a.Market), pct(a.Cash), pct(a.Cost), pct(a.Total))
	summary += fmt.Sprintf("  Avg exposure: %.3f  Turnover: %.2f\n", a.Exposure, run.TotalTurnover)

	if report.Latest != nil {
		l := report.Latest
		summary += "\n🎯 Latest Signal\n"
		summary += fmt.Sprintf("  %s  w=%.4f (w_raw=%.4f trend=%.0f gate=%.4f)\n",
			l.Date.Format("2006-01-02"), l.Weight, l.RawW, l.TrendOK, l.Gate)
	}

	return summary
}

// =============================================================================
// File Output
// =============================================================================

// frameColumns is the header of the per-date CSV
var frameColumns = []string{
	"date", "price", "vol_index", "rate", "sma", "trend_ok", "vol_hat", "w_raw", "gate", "w", "w_prev",
	"ret", "rf", "turnover", "cost", "strat_ret", "bh_ret", "vm_ret",
	"eq_strat", "eq_bh", "eq_vm", "dd_strat", "dd_bh", "dd_vm",
}

// WriteFrameCSV writes one row per simulated day
func WriteFrameCSV(w io.Writer, days []DailySnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frameColumns); err != nil {
		return err
	}

	for _, d := range days {
		values := []float64{
			d.Price, d.VolIndex, d.Rate, d.SMA, d.TrendOK, d.VolHat, d.RawW, d.Gate, d.Weight, d.WPrev,
			d.Return, d.RiskFree, d.Turnover, d.Cost, d.StratRet, d.BHRet, d.VMRet,
			d.EqStrat, d.EqBH, d.EqVM, d.DDStrat, d.DDBH, d.DDVM,
		}
		record := make([]string, 0, len(values)+1)
		record = append(record, d.Date.Format("2006-01-02"))
		for _, v := range values {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes the three equity curves, one row per day
func WriteEquityCSV(w io.Writer, days []DailySnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", SeriesStrategy, SeriesBuyHold, SeriesVolMatched}); err != nil {
		return err
	}

	for _, p := range EquityCurves(days) {
		record := []string{
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Strategy, 'g', -1, 64),
			strconv.FormatFloat(p.BuyHold, 'g', -1, 64),
			strconv.FormatFloat(p.VolMatched, 'g', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFiles writes <prefix>_frame.csv, <prefix>_equity.csv and
// <prefix>_report.json into dir
func WriteFiles(dir, prefix string, report *Report, days []DailySnapshot) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	framePath := filepath.Join(dir, prefix+"_frame.csv")
	if err := writeCSVFile(framePath, days, WriteFrameCSV); err != nil {
		return nil, fmt.Errorf("write frame csv: %w", err)
	}
	equityPath := filepath.Join(dir, prefix+"_equity.csv")
	if err := writeCSVFile(equityPath, days, WriteEquityCSV); err != nil {
		return nil, fmt.Errorf("write equity csv: %w", err)
	}

	data, err := report.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	jsonPath := filepath.Join(dir, prefix+"_report.json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return nil, err
	}

	return []string{framePath, equityPath, jsonPath}, nil
}

func writeCSVFile(path string, days []DailySnapshot, write func(io.Writer, []DailySnapshot) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, days); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func pct(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

func num(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", x)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
