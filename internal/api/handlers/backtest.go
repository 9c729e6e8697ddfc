package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/voltarget/internal/audit"
	"github.com/wonny/voltarget/internal/pipeline"
	"github.com/wonny/voltarget/pkg/logger"
	"github.com/wonny/voltarget/pkg/redis"
)

// BacktestHandler handles backtest API endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	svc     Service
	limiter RunLimiter
	logger  *logger.Logger
}

// NewBacktestHandler creates a new backtest handler; limiter may be nil
func NewBacktestHandler(svc Service, limiter RunLimiter, log *logger.Logger) *BacktestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &BacktestHandler{svc: svc, limiter: limiter, logger: log.WithComponent("api.backtest")}
}

// BacktestResponse is the body of the backtest endpoints
type BacktestResponse struct {
	Cached      bool                      `json:"cached"`
	Run         audit.RunRecord           `json:"run"`
	Comparison  audit.BenchmarkComparison `json:"comparison"`
	Attribution audit.Attribution         `json:"attribution"`
	Latest      *pipeline.LatestSignal    `json:"latest"`
	Days        []audit.DailySnapshot     `json:"days,omitempty"`
}

func newBacktestResponse(out *pipeline.Output, withDays bool) BacktestResponse {
	report := out.Report()
	resp := BacktestResponse{
		Cached:      out.Cached,
		Run:         out.Run,
		Comparison:  report.Comparison,
		Attribution: report.Attribution,
		Latest:      out.Latest,
	}
	if withDays {
		resp.Days = out.Days
	}
	return resp
}

// Get returns the (cached) result for the current config and data
// GET /api/backtest?days=true
func (h *BacktestHandler) Get(w http.ResponseWriter, r *http.Request) {
	withDays, err := boolParam(r, "days")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'days' parameter (expected true/false)")
		return
	}

	out, err := h.svc.Run(r.Context(), pipeline.RunOptions{UseCache: true})
	if err != nil {
		h.logger.WithError(err).Error("Backtest failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, newBacktestResponse(out, withDays))
}

// Run recomputes and persists the backtest
// POST /api/backtest/run
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.limiter != nil {
		allowed, remaining, err := h.limiter.Allow(ctx, redis.RunRateLimit, clientIP(r))
		if err != nil {
			// 리밋 저장소 장애 시 요청은 허용
			h.logger.WithError(err).Warn("Run rate limit check failed")
		} else {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				respondError(w, http.StatusTooManyRequests, "Too many backtest runs, try again later")
				return
			}
		}
	}

	out, err := h.svc.Run(ctx, pipeline.RunOptions{Persist: true})
	if err != nil {
		h.logger.WithError(err).Error("Backtest run failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"config_hash": out.Run.ConfigHash,
		"run_id":      out.Run.ID,
		"days":        out.Run.Days,
	}).Info("Backtest run completed via API")

	respondJSON(w, http.StatusCreated, newBacktestResponse(out, false))
}

// GetLatestRun returns the latest persisted run
// GET /api/runs/latest
func (h *BacktestHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.LatestRun(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
