package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"fieldslots/internal/availability/service"
	"fieldslots/internal/availability/validator"
	httputil "fieldslots/pkg/http"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/model"
)

type ScopeResponse struct {
	BranchID int64  `json:"branchId"`
	Date     string `json:"date"`
	Selected bool   `json:"selected"`
}

type SlotHandler struct {
	service   service.SlotService
	validator *validator.PayloadValidator
	log       *logger.Logger
}

func NewSlotHandler(service service.SlotService, validator *validator.PayloadValidator, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

func (h *SlotHandler) SetScope(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ScopeRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetScope", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		if writeErr := httputil.WriteError(w, validator.ToAppError(err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetScope", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.SetScope(r.Context(), req.BranchID, req.Date); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetScope", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, ScopeResponse{BranchID: req.BranchID, Date: req.Date, Selected: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "SetScope", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GetScope(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scope, ok := h.service.Scope()
	if err := httputil.WriteSuccess(w, ScopeResponse{BranchID: scope.BranchID, Date: scope.Date, Selected: ok}); err != nil {
		h.log.Error("failed to write success response", "handler", "GetScope", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GetGrid(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, h.service.Grid().View()); err != nil {
		h.log.Error("failed to write success response", "handler", "GetGrid", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.service.Refresh(r.Context()); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Refresh", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteAccepted(w, map[string]string{"status": "refreshing"}); err != nil {
		h.log.Error("failed to write accepted response", "handler", "Refresh", "operation", "WriteAccepted", "error", err)
	}
}

func (h *SlotHandler) Click(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ClickRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Click", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		if writeErr := httputil.WriteError(w, validator.ToAppError(err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Click", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	res, err := h.service.Click(r.Context(), req.Field(), *req.Hour)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Click", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if res.Reservation != nil {
		if err := httputil.WriteCreated(w, res); err != nil {
			h.log.Error("failed to write created response", "handler", "Click", "operation", "WriteCreated", "error", err)
		}
		return
	}

	if err := httputil.WriteSuccess(w, res); err != nil {
		h.log.Error("failed to write success response", "handler", "Click", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GetSelection(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, h.service.Selection()); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSelection", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) ResetSelection(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.service.ResetSelection()
	httputil.WriteNoContent(w)
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.PUT("/api/v1/scope", h.SetScope)
	router.GET("/api/v1/scope", h.GetScope)
	router.GET("/api/v1/grid", h.GetGrid)
	router.POST("/api/v1/grid/refresh", h.Refresh)
	router.POST("/api/v1/selection/click", h.Click)
	router.GET("/api/v1/selection", h.GetSelection)
	router.DELETE("/api/v1/selection", h.ResetSelection)
}
