package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/utils/errutil"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

const maxBodyBytes = 1 << 20

// Response wraps every successful body. Warnings is always present so
// clients can show degraded results without special-casing.
type Response struct {
	Data     any            `json:"data"`
	Warnings model.Warnings `json:"warnings"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, data any, warnings model.Warnings) {
	if warnings == nil {
		warnings = model.Warnings{}
	}

	body, err := json.Marshal(Response{Data: data, Warnings: warnings})
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.From(ctx).Error("failed to write response", "error", err)
	}
}

// statusOf maps the domain error taxonomy onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrTerminalState),
		errors.Is(err, model.ErrEventClosed),
		errors.Is(err, model.ErrConcurrentModification),
		errors.Is(err, model.ErrInsufficientCapacity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	errutil.HandleHTTP(ctx, w, err, statusOf(err))
}

// decode reads a JSON body into v and runs struct validation on it
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(model.ErrValidation, "invalid request body: "+err.Error())
	}

	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return goerr.Wrap(model.ErrValidation, "invalid field "+verrs[0].Field(),
				goerr.V("field", verrs[0].Namespace()),
				goerr.V("rule", verrs[0].Tag()))
		}
		return goerr.Wrap(model.ErrValidation, err.Error())
	}
	return nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(model.ErrValidation, "query parameter "+name+" must be an integer", goerr.V(name, raw))
	}
	return n, nil
}
