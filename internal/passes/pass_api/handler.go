package pass_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"
	qr "ms-gatepass/internal/passes/qr_generator"
	passes "ms-gatepass/internal/passes/service"
	"ms-gatepass/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	PassService *passes.PassService
	QRGenerator *qr.QRGenerator
	Logger      *logger.Logger
	// CreateLimiter wraps POST /api/create-pass, nil disables it
	CreateLimiter func(http.Handler) http.Handler
}

func NewHandler(service *passes.PassService, qrGen *qr.QRGenerator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		PassService: service,
		QRGenerator: qrGen,
		Logger:      log,
	}
}

// RegisterRoutes registers the pass routes; the caller mounts them under /api
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.CreateLimiter != nil {
			r.Use(h.CreateLimiter)
		}
		r.Post("/create-pass", h.CreatePass)
	})
	r.Get("/get-tickets", h.GetTickets)
	r.Delete("/delete-pass", h.DeletePass)

	r.Get("/passes/{id}/qr", h.GetPassQR)
	r.Put("/passes/{id}", h.EditPass)
}

func (h *Handler) CreatePass(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.CodeInvalidInput, "Invalid request body")
		return
	}

	pass, err := h.PassService.CreatePass(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "Failed to create pass", err)
		return
	}

	h.Logger.Debug("API", fmt.Sprintf("created pass #%d", pass.ID))
	utils.WriteMessage(w, http.StatusOK, "Pass created successfully")
}

func (h *Handler) GetTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.PassService.ListPasses(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to fetch passes", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) DeletePass(w http.ResponseWriter, r *http.Request) {
	id, err := passes.ParsePassID(r.URL.Query()["id"])
	if err != nil {
		h.writeServiceError(w, "Failed to delete pass", err)
		return
	}

	if err := h.PassService.DeletePass(r.Context(), id); err != nil {
		h.writeServiceError(w, "Failed to delete pass", err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "Pass deleted successfully")
}

// GetPassQR renders the gate badge for one pass as a PNG
func (h *Handler) GetPassQR(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.CodeInvalidInput, "Invalid pass ID")
		return
	}

	pass, err := h.PassService.GetPass(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to fetch pass", err)
		return
	}

	png, err := h.QRGenerator.GeneratePassQR(*pass)
	if err != nil {
		h.Logger.Error("QR", fmt.Sprintf("failed to render badge for #%d: %v", id, err))
		utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternal, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// EditPass answers every edit attempt: passes are immutable once issued
func (h *Handler) EditPass(w http.ResponseWriter, r *http.Request) {
	utils.WriteError(w, http.StatusNotImplemented, utils.CodeNotImplemented, "editing passes is not supported")
}

// writeServiceError maps service errors to status codes. Store details are logged, never returned.
func (h *Handler) writeServiceError(w http.ResponseWriter, failure string, err error) {
	var ve *passes.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.WriteError(w, http.StatusBadRequest, utils.CodeInvalidInput, ve.Message)
	case errors.Is(err, passes.ErrPassNotFound):
		utils.WriteError(w, http.StatusNotFound, utils.CodeNotFound, "Pass not found")
	default:
		h.Logger.Error("DATABASE", fmt.Sprintf("%s: %v", failure, err))
		utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternal, failure)
	}
}
