package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// InitSentry enables error reporting. An empty DSN leaves reporting disabled.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}); err != nil {
		return goerr.Wrap(err, "failed to initialize sentry")
	}
	return nil
}

// FlushSentry waits for buffered reports to be sent
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Handle logs the error with a message. Errors outside the domain taxonomy
// are also reported to Sentry.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	// Extract goerr values for structured logging
	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	report(ctx, err, msg)
	return err
}

func report(ctx context.Context, err error, msg string) {
	if model.IsDomainError(err) {
		return
	}

	hub := sentry.CurrentHub()
	if h := sentry.GetHubFromContext(ctx); h != nil {
		hub = h
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if values := errorValues(err); len(values) > 0 {
			scope.SetContext("goerr", values)
		}
		hub.CaptureException(err)
	})
}

// errorValues collects the goerr values of err as a Sentry context
func errorValues(err error) sentry.Context {
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return nil
	}
	values := sentry.Context{}
	for k, v := range ge.Values() {
		values[k] = v
	}
	return values
}

// ErrorResponse is the JSON body of a failed HTTP request
type ErrorResponse struct {
	Error     string           `json:"error"`
	Class     model.ErrorClass `json:"class"`
	Retryable bool             `json:"retryable,omitempty"`
}

// HandleHTTP logs the error and writes a JSON error response.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)
	class := model.ClassifyError(err)

	if statusCode >= http.StatusInternalServerError {
		_ = Handle(ctx, err, "HTTP error")
	} else {
		logger.Warn("HTTP request rejected",
			"status", statusCode,
			"class", class,
			"error", err.Error(),
		)
	}

	msg := err.Error()
	if class == model.ErrorClassInternal {
		msg = http.StatusText(statusCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     msg,
		Class:     class,
		Retryable: class == model.ErrorClassRetry,
	})
}
