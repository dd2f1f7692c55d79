package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/service"
)

// CurrencyHandler handles HTTP requests for exchange rate endpoints.
type CurrencyHandler struct {
	service *service.CurrencyService
	logger  *slog.Logger
}

// NewCurrencyHandler creates a new currency HTTP handler.
func NewCurrencyHandler(svc *service.CurrencyService, logger *slog.Logger) *CurrencyHandler {
	return &CurrencyHandler{
		service: svc,
		logger:  logger,
	}
}

// Rates handles GET /api/v1/currency/rates
func (h *CurrencyHandler) Rates(w http.ResponseWriter, r *http.Request) {
	rates := make(map[string]float64, 3)
	for _, ccy := range []string{domain.CurrencyUSD, domain.CurrencyEUR, domain.CurrencyUAH} {
		rate, err := h.service.RateToUAH(r.Context(), ccy)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		rates[strings.ToLower(ccy)+"_uah"] = rate
	}

	writeJSON(w, http.StatusOK, response{Data: rates})
}

// Refresh handles POST /api/v1/currency/refresh (admin)
func (h *CurrencyHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshRates(r.Context()); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "refreshed"}})
}
