package http

import (
	"net/http"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

const defaultActivityLimit = 50

type postUpdateRequest struct {
	Type    types.ActivityType `json:"type" validate:"required"`
	Message string             `json:"message" validate:"required"`
}

type assignRoleRequest struct {
	Role      types.CommandRole `json:"role" validate:"required"`
	StaffID   string            `json:"staff_id" validate:"required"`
	StaffName string            `json:"staff_name"`
	Contact   string            `json:"contact"`
}

type assignmentResponse struct {
	Assignment *model.CommandAssignment `json:"assignment"`
	Relieved   *model.CommandAssignment `json:"relieved,omitempty"`
}

// listActivity returns entries after ?since=<seq> when given, otherwise the
// most recent ?limit entries.
func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Has("since") {
		since, err := queryInt(r, "since", 0)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		entries, err := s.uc.Activity.ListSince(ctx, eventID(r), since)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, entries, nil)
		return
	}

	limit, err := queryInt(r, "limit", defaultActivityLimit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	entries, err := s.uc.Activity.ListRecent(ctx, eventID(r), int(limit))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, entries, nil)
}

func (s *Server) postUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req postUpdateRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, warnings, err := s.uc.Activity.PostUpdate(ctx, eventID(r), req.Type, req.Message, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, entry, warnings)
}

func (s *Server) getRoster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roster, err := s.uc.Command.Roster(ctx, eventID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, roster, nil)
}

func (s *Server) assignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignRoleRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Command.AssignRole(ctx, eventID(r), usecase.AssignRoleInput{
		Role:      req.Role,
		StaffID:   req.StaffID,
		StaffName: req.StaffName,
		Contact:   req.Contact,
	}, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, assignmentResponse{Assignment: res.Assignment, Relieved: res.Relieved}, res.Warnings)
}
