package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"carelink-binding/internal/docstore"
	"carelink-binding/internal/domain"
	"carelink-binding/internal/repository"
	"carelink-binding/internal/service"

	"go.uber.org/zap"
)

// BindingHandler 绑定生命周期 HTTP 处理器
type BindingHandler struct {
	binding service.BindingService
	devices repository.DevicesRepository
	logger  *zap.Logger
}

func NewBindingHandler(binding service.BindingService, devices repository.DevicesRepository, logger *zap.Logger) *BindingHandler {
	return &BindingHandler{
		binding: binding,
		devices: devices,
		logger:  logger,
	}
}

// bindElderBody POST /binding/api/v1/devices/{id}/bind-elder
type bindElderBody struct {
	ElderID string `json:"elder_id"`
}

func (h *BindingHandler) BindElder(w http.ResponseWriter, req *http.Request, deviceID string) {
	var body bindElderBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.ElderID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("elder_id is required"))
		return
	}

	device, err := h.binding.BindToElder(req.Context(), service.BindToElderRequest{
		Actor:    PrincipalFrom(req.Context()),
		DeviceID: deviceID,
		ElderID:  body.ElderID,
	})
	if err != nil {
		h.writeServiceError(w, "BindElder", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device))
}

// bindMapUserBody POST /binding/api/v1/devices/bind-map-user
type bindMapUserBody struct {
	DeviceID     string              `json:"device_id"`
	SerialNumber string              `json:"serial_number"`
	UserID       string              `json:"user_id"`
	Profile      domain.OwnerProfile `json:"profile"`
}

func (h *BindingHandler) BindMapUser(w http.ResponseWriter, req *http.Request) {
	var body bindMapUserBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	deviceOrSerial := body.DeviceID
	if deviceOrSerial == "" {
		deviceOrSerial = body.SerialNumber
	}
	if deviceOrSerial == "" || body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id or serial_number, and user_id are required"))
		return
	}

	device, err := h.binding.BindToMapUser(req.Context(), service.BindToMapUserRequest{
		Actor:          PrincipalFrom(req.Context()),
		DeviceOrSerial: deviceOrSerial,
		UserID:         body.UserID,
		Profile:        body.Profile,
	})
	if err != nil {
		h.writeServiceError(w, "BindMapUser", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device))
}

// Unbind POST /binding/api/v1/devices/{id}/unbind
func (h *BindingHandler) Unbind(w http.ResponseWriter, req *http.Request, deviceID string) {
	err := h.binding.Unbind(req.Context(), service.UnbindRequest{
		Actor:    PrincipalFrom(req.Context()),
		DeviceID: deviceID,
	})
	if err != nil {
		h.writeServiceError(w, "Unbind", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"device_id": deviceID}))
}

// updateTagsBody POST /binding/api/v1/devices/{id}/tags
type updateTagsBody struct {
	Tags []string `json:"tags"`
}

func (h *BindingHandler) UpdateTags(w http.ResponseWriter, req *http.Request, deviceID string) {
	var body updateTagsBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	device, err := h.binding.UpdateTags(req.Context(), service.UpdateTagsRequest{
		Actor:    PrincipalFrom(req.Context()),
		DeviceID: deviceID,
		Tags:     body.Tags,
	})
	if err != nil {
		h.writeServiceError(w, "UpdateTags", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device))
}

// RecomputeInheritance POST /binding/api/v1/devices/{id}/recompute-inheritance
func (h *BindingHandler) RecomputeInheritance(w http.ResponseWriter, req *http.Request, deviceID string) {
	err := h.binding.RecomputeInheritance(req.Context(), PrincipalFrom(req.Context()), deviceID)
	if err != nil {
		h.writeServiceError(w, "RecomputeInheritance", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"device_id": deviceID}))
}

// GetDevice GET /binding/api/v1/devices/{id}
func (h *BindingHandler) GetDevice(w http.ResponseWriter, req *http.Request, deviceID string) {
	device, err := h.devices.GetDevice(req.Context(), deviceID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, FailCode("DEVICE_NOT_FOUND", "device not found"))
			return
		}
		h.writeServiceError(w, "GetDevice", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device))
}

// writeServiceError 业务错误码到 HTTP 状态的映射
func (h *BindingHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	code := domain.ErrCode(err)
	switch code {
	case "DEVICE_NOT_FOUND", "OWNER_NOT_FOUND", "USER_NOT_FOUND":
		writeJSON(w, http.StatusNotFound, FailCode(code, err.Error()))
	case "ALREADY_BOUND":
		writeJSON(w, http.StatusConflict, FailCode(code, err.Error()))
	case "ACCOUNT_DELETED", "UNAUTHORIZED":
		writeJSON(w, http.StatusForbidden, FailCode(code, err.Error()))
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
