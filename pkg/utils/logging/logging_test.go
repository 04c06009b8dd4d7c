package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

func TestFromFallsBackToDefault(t *testing.T) {
	gt.Value(t, logging.From(context.Background())).Equal(logging.Default())
}

func TestWithAndFrom(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logging.With(context.Background(), logger)

	logging.From(ctx).Info("hello")
	gt.Bool(t, strings.Contains(buf.String(), "hello")).True()
}

func TestParseLevel(t *testing.T) {
	lv, err := logging.ParseLevel("warn")
	gt.NoError(t, err)
	gt.Value(t, lv).Equal(slog.LevelWarn)

	_, err = logging.ParseLevel("loud")
	gt.Value(t, err).NotNil()
}

func TestNewLoggerRedactsContact(t *testing.T) {
	type recipient struct {
		Name    string
		Contact string
	}

	var buf bytes.Buffer
	logger, err := logging.NewLogger(&buf, logging.FormatJSON, slog.LevelInfo)
	gt.NoError(t, err).Required()

	logger.Info("notify", "recipient", recipient{Name: "desk", Contact: "+81-90-0000-0000"})
	gt.Bool(t, strings.Contains(buf.String(), "+81-90-0000-0000")).False()
	gt.Bool(t, strings.Contains(buf.String(), "desk")).True()
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	_, err := logging.NewLogger(&bytes.Buffer{}, logging.Format("xml"), slog.LevelInfo)
	gt.Value(t, err).NotNil()
}
