package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/asclepius/pkg/controller/http"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/repository/memory"
	"github.com/secmon-lab/asclepius/pkg/service/slack"
	"github.com/secmon-lab/asclepius/pkg/usecase"
	goslack "github.com/slack-go/slack"
)

func interactionRequest(t *testing.T, callback goslack.InteractionCallback) *http.Request {
	t.Helper()
	payload, err := json.Marshal(callback)
	gt.NoError(t, err).Required()

	form := url.Values{"payload": {string(payload)}}
	req := httptest.NewRequest(http.MethodPost, "/hooks/slack/interaction", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSlackInteractionHandler(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithCallouts([]model.CalloutTarget{
		{Name: "surgery on-call", Contact: "C0SURGERY", Method: types.NotificationMethodSlack, MinAlertLevel: types.AlertLevelYellow},
	}))

	res, err := uc.Coordinator.Activate(ctx, usecase.ActivateInput{
		AlertLevel: types.AlertLevelRed,
		EventType:  types.EventTypeIndustrial,
		Actor:      testActor,
	})
	gt.NoError(t, err).Required()

	intents, err := repo.Notification().ListByEvent(ctx, res.Event.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, intents).Length(1).Required()
	callout := intents[0]

	handler := httpctrl.NewSlackInteractionHandler(uc.Notification)

	t.Run("acknowledge button logs the answer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, interactionRequest(t, goslack.InteractionCallback{
			Type: goslack.InteractionTypeBlockActions,
			User: goslack.User{ID: "U0NURSE"},
			ActionCallback: goslack.ActionCallbacks{
				BlockActions: []*goslack.BlockAction{
					{ActionID: slack.ActionIDAcknowledge, Value: string(callout.ID)},
				},
			},
		}))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		entries, err := uc.Activity.ListRecent(ctx, res.Event.ID, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1).Required()
		gt.Value(t, entries[0].Actor).Equal("slack:U0NURSE")
		gt.String(t, entries[0].Description).Contains("acknowledged")
	})

	t.Run("eta button logs the arrival estimate", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, interactionRequest(t, goslack.InteractionCallback{
			Type: goslack.InteractionTypeBlockActions,
			User: goslack.User{ID: "U0SURGEON"},
			ActionCallback: goslack.ActionCallbacks{
				BlockActions: []*goslack.BlockAction{
					{ActionID: slack.ActionIDAcknowledge + "_30", Value: slack.CalloutActionValue(callout.ID, 30)},
				},
			},
		}))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		entries, err := uc.Activity.ListRecent(ctx, res.Event.ID, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1).Required()
		gt.Value(t, entries[0].Actor).Equal("slack:U0SURGEON")
		gt.Value(t, entries[0].Details["response"]).Equal("CONFIRMED")
		gt.String(t, entries[0].Description).Contains("ETA 30 min")
	})

	t.Run("decline button logs the refusal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, interactionRequest(t, goslack.InteractionCallback{
			Type: goslack.InteractionTypeBlockActions,
			User: goslack.User{ID: "U0ANESTH"},
			ActionCallback: goslack.ActionCallbacks{
				BlockActions: []*goslack.BlockAction{
					{ActionID: slack.ActionIDDecline, Value: string(callout.ID)},
				},
			},
		}))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		entries, err := uc.Activity.ListRecent(ctx, res.Event.ID, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1).Required()
		gt.Value(t, entries[0].Details["response"]).Equal("DECLINED")
		_, hasETA := entries[0].Details["eta_minutes"]
		gt.Bool(t, hasETA).False()
	})

	t.Run("other actions are ignored", func(t *testing.T) {
		before, err := uc.Activity.ListSince(ctx, res.Event.ID, 0)
		gt.NoError(t, err).Required()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, interactionRequest(t, goslack.InteractionCallback{
			Type: goslack.InteractionTypeBlockActions,
			User: goslack.User{ID: "U0NURSE"},
			ActionCallback: goslack.ActionCallbacks{
				BlockActions: []*goslack.BlockAction{
					{ActionID: "something_else", Value: string(callout.ID)},
				},
			},
		}))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		after, err := uc.Activity.ListSince(ctx, res.Event.ID, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, after).Length(len(before))
	})

	t.Run("unknown notification still answers 200", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, interactionRequest(t, goslack.InteractionCallback{
			Type: goslack.InteractionTypeBlockActions,
			User: goslack.User{ID: "U0NURSE"},
			ActionCallback: goslack.ActionCallbacks{
				BlockActions: []*goslack.BlockAction{
					{ActionID: slack.ActionIDAcknowledge, Value: "missing"},
				},
			},
		}))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
	})

	t.Run("missing payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hooks/slack/interaction", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}
