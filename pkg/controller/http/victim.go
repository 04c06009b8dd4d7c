package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

type registerVictimRequest struct {
	Demographics model.Demographics `json:"demographics"`
	Triage       *model.TriageInput `json:"triage"`
}

// Every victim mutation except notes carries the version the client read
type versionRequest struct {
	Version int64 `json:"version" validate:"gte=1"`
}

type triageRequest struct {
	Version int64 `json:"version" validate:"gte=1"`
	model.TriageInput
}

type retriageRequest struct {
	Version       int64  `json:"version" validate:"gte=1"`
	Justification string `json:"justification" validate:"required"`
	model.TriageInput
}

type areaRequest struct {
	Version int64  `json:"version" validate:"gte=1"`
	AreaID  string `json:"area_id" validate:"required"`
}

type staffRequest struct {
	Version int64  `json:"version" validate:"gte=1"`
	StaffID string `json:"staff_id" validate:"required"`
}

type vitalsRequest struct {
	Version         int64 `json:"version" validate:"gte=1"`
	RespiratoryRate int   `json:"respiratory_rate" validate:"gte=0"`
	PulseRate       int   `json:"pulse_rate" validate:"gte=0"`
	SystolicBP      int   `json:"systolic_bp" validate:"gte=0"`
	SpO2            int   `json:"spo2" validate:"gte=0,lte=100"`
	GCS             int   `json:"gcs" validate:"omitempty,gte=3,lte=15"`
}

type dispositionRequest struct {
	Version     int64             `json:"version" validate:"gte=1"`
	Disposition types.Disposition `json:"disposition" validate:"required"`
}

type noteRequest struct {
	Text string `json:"text" validate:"required"`
}

type identifyRequest struct {
	Version     int64  `json:"version" validate:"gte=1"`
	FullName    string `json:"full_name"`
	IDNumber    string `json:"id_number"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

func victimID(r *http.Request) model.VictimID {
	return model.VictimID(chi.URLParam(r, "victimID"))
}

func (s *Server) listVictims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter := model.VictimFilter{
		Category: types.TriageCategory(q.Get("category")),
		Status:   types.WorkflowStatus(q.Get("status")),
	}

	victims, err := s.uc.Victim.List(ctx, eventID(r), filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, victims, nil)
}

func (s *Server) searchVictims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	victims, err := s.uc.Victim.Search(ctx, eventID(r), r.URL.Query().Get("query"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if victims == nil {
		victims = []*model.Victim{}
	}
	writeJSON(ctx, w, http.StatusOK, victims, nil)
}

func (s *Server) registerVictim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerVictimRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Victim.Register(ctx, eventID(r), usecase.RegisterInput{
		Demographics: req.Demographics,
		Triage:       req.Triage,
	}, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, res.Victim, res.Warnings)
}

func (s *Server) getVictim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := s.uc.Victim.Get(ctx, victimID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, v, nil)
}

func (s *Server) writeVictimResult(w http.ResponseWriter, r *http.Request, res *usecase.VictimResult, err error) {
	ctx := r.Context()
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, res.Victim, res.Warnings)
}

func (s *Server) triageVictim(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Victim.Triage(r.Context(), victimID(r), req.Version, req.TriageInput, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) retriageVictim(w http.ResponseWriter, r *http.Request) {
	var req retriageRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Victim.Retriage(r.Context(), victimID(r), req.Version, req.TriageInput, actorFrom(r.Context()), req.Justification)
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) assignArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Victim.AssignArea(r.Context(), victimID(r), req.Version, req.AreaID, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) assignStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Victim.AssignStaff(r.Context(), victimID(r), req.Version, req.StaffID, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) beginTreatment(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Victim.BeginTreatment(r.Context(), victimID(r), req.Version, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) recordVitals(w http.ResponseWriter, r *http.Request) {
	var req vitalsRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	vitals := model.VitalSigns{
		RespiratoryRate: req.RespiratoryRate,
		PulseRate:       req.PulseRate,
		SystolicBP:      req.SystolicBP,
		SpO2:            req.SpO2,
		GCS:             req.GCS,
	}
	res, err := s.uc.Victim.RecordVitals(r.Context(), victimID(r), req.Version, vitals, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) setDisposition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req dispositionRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Victim.SetDisposition(ctx, victimID(r), req.Version, req.Disposition, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	type dispositionResponse struct {
		Victim      *model.Victim      `json:"victim"`
		Reservation *model.Reservation `json:"reservation,omitempty"`
	}
	writeJSON(ctx, w, http.StatusOK, dispositionResponse{Victim: res.Victim, Reservation: res.Reservation}, res.Warnings)
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := s.uc.Victim.AddNote(r.Context(), victimID(r), req.Text, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}

func (s *Server) identifyVictim(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	in := usecase.IdentifyInput{FullName: req.FullName, IDNumber: req.IDNumber}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			writeError(r.Context(), w, goerr.Wrap(model.ErrValidation, "invalid date of birth"))
			return
		}
		in.DateOfBirth = &dob
	}
	res, err := s.uc.Victim.Identify(r.Context(), victimID(r), req.Version, in, actorFrom(r.Context()))
	s.writeVictimResult(w, r, res, err)
}
