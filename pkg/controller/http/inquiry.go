package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

type inquiryRequest struct {
	InquirerName  string `json:"inquirer_name" validate:"required"`
	InquirerPhone string `json:"inquirer_phone" validate:"required"`
	Relationship  string `json:"relationship"`
	Description   string `json:"description" validate:"required"`
}

type resolveRequest struct {
	VictimID model.VictimID `json:"victim_id"`
	Notes    string         `json:"notes"`
}

func (s *Server) listInquiries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inquiries, err := s.uc.Inquiry.List(ctx, eventID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, inquiries, nil)
}

func (s *Server) registerInquiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req inquiryRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Inquiry.RegisterInquiry(ctx, eventID(r), usecase.InquiryInput{
		InquirerName:  req.InquirerName,
		InquirerPhone: req.InquirerPhone,
		Relationship:  req.Relationship,
		Description:   req.Description,
	}, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, res.Inquiry, res.Warnings)
}

func (s *Server) resolveInquiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req resolveRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	id := model.InquiryID(chi.URLParam(r, "inquiryID"))
	res, err := s.uc.Inquiry.ResolveInquiry(ctx, id, req.VictimID, req.Notes, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Inquiry, res.Warnings)
}
