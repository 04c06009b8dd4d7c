package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

type activateRequest struct {
	AlertLevel          types.AlertLevel `json:"alert_level" validate:"required"`
	EventType           types.EventType  `json:"event_type" validate:"required"`
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Location            string           `json:"location"`
	EstimatedCasualties int              `json:"estimated_casualties" validate:"gte=0"`
}

type escalateRequest struct {
	AlertLevel types.AlertLevel `json:"alert_level" validate:"required"`
	Reason     string           `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type closeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func eventID(r *http.Request) model.EventID {
	return model.EventID(chi.URLParam(r, "eventID"))
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := s.uc.Coordinator.ListHistory(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, events, nil)
}

func (s *Server) getActiveEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := s.uc.Coordinator.GetActive(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, e, nil)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := s.uc.Coordinator.Get(ctx, eventID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, e, nil)
}

func (s *Server) activateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req activateRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Coordinator.Activate(ctx, usecase.ActivateInput{
		AlertLevel:          req.AlertLevel,
		EventType:           req.EventType,
		Name:                req.Name,
		Description:         req.Description,
		Location:            req.Location,
		EstimatedCasualties: req.EstimatedCasualties,
		Actor:               actorFrom(ctx),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, res.Event, res.Warnings)
}

func (s *Server) escalateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req escalateRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Coordinator.Escalate(ctx, eventID(r), req.AlertLevel, req.Reason, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Event, res.Warnings)
}

func (s *Server) stabilizeEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.uc.Coordinator.Stabilize(ctx, eventID(r), actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Event, res.Warnings)
}

func (s *Server) deactivateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reasonRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Coordinator.BeginDeactivation(ctx, eventID(r), req.Reason, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Event, res.Warnings)
}

func (s *Server) closeEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req closeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Coordinator.Close(ctx, eventID(r), req.Reason, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Event, res.Warnings)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.uc.Coordinator.GetDashboard(ctx, eventID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, d, nil)
}

func (s *Server) exportEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := s.uc.Export.Export(ctx, eventID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, rec, nil)
}
