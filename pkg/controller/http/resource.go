package http

import (
	"net/http"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

type reserveRequest struct {
	Category types.ResourceCategory `json:"category" validate:"required"`
	Count    int                    `json:"count" validate:"gte=1"`
}

type reservationRequest struct {
	ReservationID model.ReservationID `json:"reservation_id" validate:"required"`
}

type adjustRequest struct {
	Category types.ResourceCategory `json:"category" validate:"required"`
	Delta    int                    `json:"delta" validate:"ne=0"`
	Reason   string                 `json:"reason" validate:"required"`
}

type reservationResponse struct {
	Reservation *model.Reservation     `json:"reservation"`
	Snapshot    model.ResourceSnapshot `json:"snapshot"`
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snaps, err := s.uc.Resource.Snapshots(ctx, eventID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, snaps, nil)
}

func (s *Server) writeReservation(w http.ResponseWriter, r *http.Request, status int, res *usecase.ReservationResult, err error) {
	ctx := r.Context()
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, status, reservationResponse{Reservation: res.Reservation, Snapshot: res.Snapshot}, res.Warnings)
}

func (s *Server) reserveResource(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Resource.Reserve(r.Context(), eventID(r), req.Category, req.Count, actorFrom(r.Context()))
	s.writeReservation(w, r, http.StatusCreated, res, err)
}

func (s *Server) releaseResource(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Resource.Release(r.Context(), eventID(r), req.ReservationID, actorFrom(r.Context()))
	s.writeReservation(w, r, http.StatusOK, res, err)
}

func (s *Server) occupyResource(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Resource.Occupy(r.Context(), eventID(r), req.ReservationID, actorFrom(r.Context()))
	s.writeReservation(w, r, http.StatusOK, res, err)
}

func (s *Server) adjustCapacity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req adjustRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Resource.Adjust(ctx, eventID(r), req.Category, req.Delta, req.Reason, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Snapshot, res.Warnings)
}
