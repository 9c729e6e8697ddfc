package audit

// Attribution splits the summed daily strategy return into its sources.
// Contributions are additive (sum of daily terms), not compounded.
type Attribution struct {
	Market   float64 `json:"market"`   // Σ w_prev·r
	Cash     float64 `json:"cash"`     // Σ (1−w_prev)·rf
	Cost     float64 `json:"cost"`     // −Σ cost
	Total    float64 `json:"total"`    // Σ strat_ret
	Exposure float64 `json:"exposure"` // 평균 노출도 (mean w_prev)
}

// Attribute decomposes the strategy return of a run
func Attribute(days []DailySnapshot) Attribution {
	var a Attribution
	if len(days) == 0 {
		return a
	}

	for _, d := range days {
		a.Market += d.WPrev * d.Return
		a.Cash += (1 - d.WPrev) * d.RiskFree
		a.Cost -= d.Cost
		a.Total += d.StratRet
		a.Exposure += d.WPrev
	}
	a.Exposure /= float64(len(days))

	return a
}
