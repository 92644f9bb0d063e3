// Package http exposes the orchestration API: starting runs, polling their
// state and downloading the run report. Live progress is not served here; it
// goes over the websocket push channel.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/pkg/report"
	"github.com/strogmv/forge/internal/port"
	"github.com/strogmv/forge/internal/service"
)

type Handler struct {
	svc    *service.Orchestration
	report *report.Generator
}

func NewHandler(svc *service.Orchestration) *Handler {
	return &Handler{svc: svc, report: report.NewGenerator()}
}

type startRequest struct {
	Requirement domain.BusinessRequirement `json:"requirement"`
	Options     *domain.Options            `json:"options,omitempty"`
}

type startResponse struct {
	JobID string `json:"jobId"`
}

type statusResponse struct {
	JobID   string                      `json:"jobId"`
	Running bool                        `json:"running"`
	Result  *domain.OrchestrationResult `json:"result,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Requirement.Name == "" {
		writeError(w, http.StatusBadRequest, "requirement.name is required")
		return
	}

	opts := domain.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	jobID, err := h.svc.Start(r.Context(), req.Requirement, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{JobID: jobID})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	state, err := h.svc.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, port.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		JobID:   jobID,
		Running: state.Running,
		Result:  state.Result,
	})
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	events, err := h.svc.History(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []domain.Progress{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	state, err := h.svc.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, port.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if state.Running {
		writeError(w, http.StatusConflict, "run is still in progress")
		return
	}

	pdf, err := h.report.GenerateRunReport(state.Result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("render report: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
