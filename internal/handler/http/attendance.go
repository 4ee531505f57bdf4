package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/handler/http/middleware"
	"github.com/presencehq/presence-backend-go/internal/handler/http/response"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	Toggle(w http.ResponseWriter, r *http.Request)
	Sweep(w http.ResponseWriter, r *http.Request)
	GetRecord(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	sessionService attendance.SessionService
	entities       *entity.Registry
}

func NewAttendanceHandler(sessionService attendance.SessionService, entities *entity.Registry) AttendanceHandler {
	return &attendanceHandlerImpl{
		sessionService: sessionService,
		entities:       entities,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	var req attendance.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = tenantID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.CheckIn(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check-in recorded", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	var req attendance.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = tenantID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.CheckOut(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Toggle implements AttendanceHandler. Kiosks use this as their single
// tap-in/tap-out endpoint.
func (h *attendanceHandlerImpl) Toggle(w http.ResponseWriter, r *http.Request) {
	tenantID, actor, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	var req attendance.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = tenantID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.Toggle(r.Context(), req, actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Sweep implements AttendanceHandler. Manual trigger for the expiry sweep,
// same code path the cron job runs.
func (h *attendanceHandlerImpl) Sweep(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	var req attendance.SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TenantID = tenantID
	if req.Cutoff.IsZero() {
		req.Cutoff = time.Now().UTC()
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.sessionService.SweepExpired(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, summary)
}

// GetRecord implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetRecord(w http.ResponseWriter, r *http.Request) {
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

	record, err := h.sessionService.GetRecord(r.Context(), key)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, record)
}

// GetSession implements AttendanceHandler. Returns the live session
// projection and cached stats without touching the period record.
func (h *attendanceHandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := middleware.ActorFromContext(r)
	if !ok {
		response.Unauthorized(w, "Invalid token claims")
		return
	}

	store, err := h.entities.Resolve(chi.URLParam(r, "entityType"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	ent, err := store.GetByID(r.Context(), tenantID, chi.URLParam(r, "entityID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"entity_id": ent.ID,
		"session":   ent.Session,
		"stats":     ent.Stats,
	})
}

func recordKeyFromURL(r *http.Request, tenantID string) (attendance.RecordKey, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return attendance.RecordKey{}, attendance.ErrRecordNotFound
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return attendance.RecordKey{}, attendance.ErrRecordNotFound
	}

	return attendance.RecordKey{
		TenantID:   tenantID,
		EntityType: chi.URLParam(r, "entityType"),
		EntityID:   chi.URLParam(r, "entityID"),
		Year:       year,
		Month:      time.Month(month),
	}, nil
}
