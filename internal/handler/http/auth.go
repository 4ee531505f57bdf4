package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/handler/http/response"
	"github.com/presencehq/presence-backend-go/internal/pkg/token"
	"github.com/presencehq/presence-backend-go/internal/pkg/validator"
)

type AuthHandler interface {
	DeviceLogin(w http.ResponseWriter, r *http.Request)
}

type authHandlerImpl struct {
	tokenService token.Service
	deviceKeys   map[string]string
}

func NewAuthHandler(tokenService token.Service, deviceKeys map[string]string) AuthHandler {
	return &authHandlerImpl{
		tokenService: tokenService,
		deviceKeys:   deviceKeys,
	}
}

type deviceLoginRequest struct {
	TenantID  string `json:"tenant_id"`
	DeviceID  string `json:"device_id"`
	DeviceKey string `json:"device_key"`
}

func (r *deviceLoginRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TenantID) {
		errs = append(errs, validator.ValidationError{
			Field:   "tenant_id",
			Message: "tenant_id is required",
		})
	}
	if validator.IsEmpty(r.DeviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id is required",
		})
	}
	if validator.IsEmpty(r.DeviceKey) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_key",
			Message: "device_key is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DeviceLogin implements AuthHandler. Kiosk devices exchange their
// provisioned key for an actor token; every event the device records is
// audited under its device id.
func (h *authHandlerImpl) DeviceLogin(w http.ResponseWriter, r *http.Request) {
	var req deviceLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	hash, found := h.deviceKeys[req.DeviceID]
	if !found || !token.VerifyDeviceKey(hash, req.DeviceKey) {
		slog.Warn("Device login rejected", "device_id", req.DeviceID)
		response.Unauthorized(w, "Invalid device credentials")
		return
	}

	actor := attendance.Actor{
		ID:   req.DeviceID,
		Name: req.DeviceID,
		Role: "kiosk",
	}
	accessToken, expiresAt, err := h.tokenService.GenerateActorToken(req.TenantID, actor)
	if err != nil {
		slog.Error("Failed to generate actor token", "device_id", req.DeviceID, "error", err)
		response.InternalServerError(w, "Failed to generate token")
		return
	}

	response.Success(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	})
}
