package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prodigy2/autoRiaClone/internal/service"
	"github.com/prodigy2/autoRiaClone/pkg/validator"
)

// CarHandler handles HTTP requests for the car catalog endpoints.
type CarHandler struct {
	service *service.CarCatalogService
	logger  *slog.Logger
}

// NewCarHandler creates a new car catalog HTTP handler.
func NewCarHandler(svc *service.CarCatalogService, logger *slog.Logger) *CarHandler {
	return &CarHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateBrandRequest is the JSON request body for adding a brand.
type CreateBrandRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateModelRequest is the JSON request body for adding a model.
type CreateModelRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// ListBrands handles GET /api/v1/cars/brands
func (h *CarHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: brands})
}

// CreateBrand handles POST /api/v1/cars/brands
func (h *CarHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateBrandRequest
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

	brand, err := h.service.CreateBrand(r.Context(), req.Name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: brand})
}

// ListModels handles GET /api/v1/cars/brands/{brandID}/models
func (h *CarHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.service.ListModels(r.Context(), chi.URLParam(r, "brandID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: models})
}

// CreateModel handles POST /api/v1/cars/brands/{brandID}/models
func (h *CarHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateModelRequest
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

	model, err := h.service.CreateModel(r.Context(), brandID, req.Name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: model})
}
