package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prodigy2/autoRiaClone/internal/service"
	"github.com/prodigy2/autoRiaClone/pkg/middleware"
	"github.com/prodigy2/autoRiaClone/pkg/pagination"
	"github.com/prodigy2/autoRiaClone/pkg/validator"
)

// AdHandler handles HTTP requests for listing endpoints.
type AdHandler struct {
	service *service.AdService
	logger  *slog.Logger
}

// NewAdHandler creates a new ad HTTP handler.
func NewAdHandler(svc *service.AdService, logger *slog.Logger) *AdHandler {
	return &AdHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateAdRequest is the JSON request body for creating a listing.
type CreateAdRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	PriceAmount int64  `json:"price_amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,oneof=USD EUR UAH usd eur uah"`
	Year        int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Mileage     int    `json:"mileage" validate:"gte=0"`
	ModelID     string `json:"model_id" validate:"omitempty,uuid"`
}

// UpdateAdRequest is the JSON request body for editing a listing. Absent
// fields are left unchanged.
type UpdateAdRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	PriceAmount *int64  `json:"price_amount" validate:"omitempty,gt=0"`
	Currency    *string `json:"currency" validate:"omitempty,oneof=USD EUR UAH usd eur uah"`
	Year        *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Mileage     *int    `json:"mileage" validate:"omitempty,gte=0"`
	ModelID     *string `json:"model_id" validate:"omitempty,uuid"`
}

// --- Handlers ---

// Create handles POST /api/v1/ads
func (h *AdHandler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.UserIDFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateAdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	ad, err := h.service.CreateAd(r.Context(), service.CreateAdInput{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		PriceAmount: req.PriceAmount,
		Currency:    req.Currency,
		Year:        req.Year,
		Mileage:     req.Mileage,
		ModelID:     req.ModelID,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: ad})
}

// List handles GET /api/v1/ads
func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	ads, total, err := h.service.ListActiveAds(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: ads,
		Meta: &listMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

// ListMine handles GET /api/v1/ads/mine
func (h *AdHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.UserIDFromContext(r.Context())
	page := pagination.FromRequest(r)

	ads, total, err := h.service.ListSellerAds(r.Context(), sellerID, page.Limit, page.Offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: ads,
		Meta: &listMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

// Get handles GET /api/v1/ads/{id}. Every successful read counts a view.
func (h *AdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ad, err := h.service.GetAd(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: ad})
}

// Update handles PUT /api/v1/ads/{id}
func (h *AdHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateAdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	ad, err := h.service.UpdateAd(r.Context(), id, service.UpdateAdInput{
		ActorID:     actorID,
		Title:       req.Title,
		Description: req.Description,
		PriceAmount: req.PriceAmount,
		Currency:    req.Currency,
		Year:        req.Year,
		Mileage:     req.Mileage,
		ModelID:     req.ModelID,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: ad})
}

// Delete handles DELETE /api/v1/ads/{id}
func (h *AdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteAd(r.Context(), id, actorID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": id, "status": "deleted"}})
}
