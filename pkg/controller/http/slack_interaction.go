package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/service/slack"
	"github.com/secmon-lab/asclepius/pkg/usecase"
	"github.com/secmon-lab/asclepius/pkg/utils/errutil"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	goslack "github.com/slack-go/slack"
)

// SlackInteractionHandler receives button clicks on staff callout messages
type SlackInteractionHandler struct {
	notificationUC *usecase.NotificationUseCase
}

func NewSlackInteractionHandler(notificationUC *usecase.NotificationUseCase) *SlackInteractionHandler {
	return &SlackInteractionHandler{
		notificationUC: notificationUC,
	}
}

// ServeHTTP always answers 200 once the payload parses. Slack retries
// anything else, which would log the acknowledgement twice.
func (h *SlackInteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Slack sends a form with the JSON callback in the "payload" field
	payload := r.FormValue("payload")
	if payload == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("missing payload field in interaction request"), http.StatusBadRequest)
		return
	}

	var callback goslack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &callback); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse interaction payload"), http.StatusBadRequest)
		return
	}

	if callback.Type != goslack.InteractionTypeBlockActions {
		w.WriteHeader(http.StatusOK)
		return
	}

	actor := "slack:" + callback.User.ID
	for _, action := range callback.ActionCallback.BlockActions {
		var response types.CalloutResponse
		switch {
		case action.ActionID == slack.ActionIDDecline:
			response = types.CalloutDeclined
		case strings.HasPrefix(action.ActionID, slack.ActionIDAcknowledge):
			response = types.CalloutConfirmed
		default:
			continue
		}

		id, eta, err := slack.ParseCalloutActionValue(action.Value)
		if err != nil {
			errutil.Handle(ctx, err, "invalid callout action")
			continue
		}
		if response == types.CalloutDeclined {
			eta = nil
		}

		entry, warnings, err := h.notificationUC.AcknowledgeCallout(ctx, id,
			usecase.CalloutAnswer{Response: response, ETAMinutes: eta}, actor)
		if err != nil {
			errutil.Handle(ctx, err, "failed to acknowledge callout")
			continue
		}

		logger := logging.From(ctx)
		logger.Info("callout acknowledged",
			"notification_id", id,
			"response", response,
			"seq", entry.Seq,
			"actor", actor,
		)
		for _, warning := range warnings {
			logger.Warn("callout acknowledgement degraded", "code", warning.Code, "message", warning.Message)
		}
	}

	w.WriteHeader(http.StatusOK)
}
