package handlers

import (
	"net/http"

	"github.com/wonny/voltarget/pkg/logger"
)

// SignalHandler serves the latest target weight
type SignalHandler struct {
	svc    Service
	logger *logger.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(svc Service, log *logger.Logger) *SignalHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SignalHandler{svc: svc, logger: log.WithComponent("api.signal")}
}

// GetLatest returns the latest weight and its components
// GET /api/signal/latest
func (h *SignalHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	sig, err := h.svc.LatestSignal(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute latest signal")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, sig)
}
