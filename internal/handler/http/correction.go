package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/handler/http/middleware"
	"github.com/presencehq/presence-backend-go/internal/handler/http/response"
)

type CorrectionHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	Review(w http.ResponseWriter, r *http.Request)
	Apply(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type correctionHandlerImpl struct {
	correctionService attendance.CorrectionService
}

func NewCorrectionHandler(correctionService attendance.CorrectionService) CorrectionHandler {
	return &correctionHandlerImpl{
		correctionService: correctionService,
	}
}

// Submit implements CorrectionHandler.
func (h *correctionHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	key, err := recordKeyFromURL(r, tenantID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.SubmitCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = key.TenantID
	req.EntityType = key.EntityType
	req.EntityID = key.EntityID
	req.Year = key.Year
	req.Month = int(key.Month)

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	correction, err := h.correctionService.Submit(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Correction request submitted", correction)
}

// Review implements CorrectionHandler.
func (h *correctionHandlerImpl) Review(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	key, err := recordKeyFromURL(r, tenantID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.ReviewCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = key.TenantID
	req.EntityType = key.EntityType
	req.EntityID = key.EntityID
	req.Year = key.Year
	req.Month = int(key.Month)
	req.CorrectionID = chi.URLParam(r, "correctionID")

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	correction, err := h.correctionService.Review(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction request reviewed", correction)
}

// Apply implements CorrectionHandler.
func (h *correctionHandlerImpl) Apply(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	key, err := recordKeyFromURL(r, tenantID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	req := attendance.ApplyCorrectionRequest{
		TenantID:     key.TenantID,
		EntityType:   key.EntityType,
		EntityID:     key.EntityID,
		Year:         key.Year,
		Month:        int(key.Month),
		CorrectionID: chi.URLParam(r, "correctionID"),
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	correction, err := h.correctionService.Apply(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction applied", correction)
}

// List implements CorrectionHandler.
func (h *correctionHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	key, err := recordKeyFromURL(r, tenantID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var status *attendance.CorrectionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := attendance.CorrectionStatus(raw)
		status = &s
	}

	corrections, err := h.correctionService.List(r.Context(), key, status)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, corrections)
}
