package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ErrorClass
	}{
		{"validation", goerr.Wrap(model.ErrValidation, "bad"), model.ErrorClassRejected},
		{"invalid triage", goerr.Wrap(model.ErrInvalidTriage, "bad color"), model.ErrorClassRejected},
		{"not found", goerr.Wrap(model.ErrNotFound, "gone"), model.ErrorClassRejected},
		{"conflict", model.ErrConflict, model.ErrorClassRejected},
		{"transition", model.ErrInvalidTransition, model.ErrorClassRejected},
		{"terminal", model.ErrTerminalState, model.ErrorClassRejected},
		{"closed", model.ErrEventClosed, model.ErrorClassRejected},
		{"version", goerr.Wrap(model.ErrConcurrentModification, "stale"), model.ErrorClassRetry},
		{"capacity", model.ErrInsufficientCapacity, model.ErrorClassRetry},
		{"other", errors.New("disk on fire"), model.ErrorClassInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, model.ClassifyError(tt.err)).Equal(tt.want)
		})
	}

	gt.Value(t, model.ClassifyError(nil)).Equal(model.ErrorClass(""))
	gt.Bool(t, model.IsDomainError(errors.New("x"))).False()
	gt.Bool(t, model.IsDomainError(model.ErrConflict)).True()
}

func TestWarnings(t *testing.T) {
	var w model.Warnings
	w.Add(model.WarningResourceShortfall, errors.New("no ICU bed"))
	w.Merge(model.Warnings{{Code: model.WarningActivityLogFailed, Message: "x"}})

	gt.Array(t, w).Length(2)
	gt.Bool(t, w.Has(model.WarningResourceShortfall)).True()
	gt.Bool(t, w.Has(model.WarningNotificationFailed)).False()
}
