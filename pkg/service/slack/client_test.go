package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/service/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func newFakeSlack(t *testing.T, posted *atomic.Int32, lookups *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat.postMessage":
			posted.Add(1)
			gt.NoError(t, r.ParseForm())
			gt.Value(t, r.Form.Get("channel")).Equal("C-ER")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C-ER", "ts": "1700000000.000100"})
		case "/conversations.info":
			lookups.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":      true,
				"channel": map[string]any{"id": "C-ER", "name": "er-oncall"},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
		}
	}))
}

func TestSender(t *testing.T) {
	var posted, lookups atomic.Int32
	srv := newFakeSlack(t, &posted, &lookups)
	defer srv.Close()

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()
	sender := slack.NewSender(svc)
	gt.Value(t, sender.Method()).Equal(types.NotificationMethodSlack)

	t.Run("posts to the contact channel", func(t *testing.T) {
		err := sender.Send(context.Background(), &model.NotificationIntent{
			ID:        model.NewNotificationID(),
			Purpose:   types.NotificationPurposeStaffCallout,
			Recipient: "ER on-call",
			Contact:   "C-ER",
			Type:      types.NotificationInitial,
			Method:    types.NotificationMethodSlack,
			Message:   "MCI activated: report to ED",
		})
		gt.NoError(t, err)
		gt.Value(t, posted.Load()).Equal(int32(1))
		// channel name resolved for the delivery log
		gt.Value(t, lookups.Load()).Equal(int32(1))
	})

	t.Run("empty channel fails without calling slack", func(t *testing.T) {
		err := sender.Send(context.Background(), &model.NotificationIntent{ID: model.NewNotificationID()})
		gt.Value(t, err).NotNil()
		gt.Value(t, posted.Load()).Equal(int32(1))
	})
}

func TestGetChannelNamesCaches(t *testing.T) {
	var posted, lookups atomic.Int32
	srv := newFakeSlack(t, &posted, &lookups)
	defer srv.Close()

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	for i := 0; i < 2; i++ {
		names, err := svc.GetChannelNames(context.Background(), []string{"C-ER"})
		gt.NoError(t, err).Required()
		gt.Value(t, names["C-ER"]).Equal("er-oncall")
	}
	gt.Value(t, lookups.Load()).Equal(int32(1))
}

func TestBuildCalloutBlocks(t *testing.T) {
	t.Run("staff callout carries eta and decline buttons", func(t *testing.T) {
		blocks := slack.BuildCalloutBlocks(&model.NotificationIntent{
			ID:      "n-1",
			Purpose: types.NotificationPurposeStaffCallout,
			Message: "report to ED",
		})
		gt.Array(t, blocks).Length(4).Required()

		data, err := json.Marshal(blocks[3])
		gt.NoError(t, err).Required()
		gt.String(t, string(data)).Contains(slack.ActionIDAcknowledge + "_15")
		gt.String(t, string(data)).Contains(`"value":"n-1|30"`)
		gt.String(t, string(data)).Contains(slack.ActionIDDecline)
		gt.String(t, string(data)).Contains(`"value":"n-1"`)
	})

	t.Run("family update has no actions", func(t *testing.T) {
		blocks := slack.BuildCalloutBlocks(&model.NotificationIntent{
			Purpose: types.NotificationPurposeFamily,
			Message: "update",
		})
		gt.Array(t, blocks).Length(3)
	})
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if token == "" || channelID == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN or TEST_SLACK_CHANNEL_ID is not set")
	}

	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	err = slack.NewSender(svc).Send(context.Background(), &model.NotificationIntent{
		ID:        model.NewNotificationID(),
		Purpose:   types.NotificationPurposeStaffCallout,
		Recipient: "integration test",
		Contact:   channelID,
		Type:      types.NotificationInitial,
		Message:   "asclepius integration test callout",
	})
	gt.NoError(t, err)
}

func TestParseCalloutActionValue(t *testing.T) {
	t.Run("with eta", func(t *testing.T) {
		id, eta, err := slack.ParseCalloutActionValue(slack.CalloutActionValue("n-1", 15))
		gt.NoError(t, err).Required()
		gt.Value(t, id).Equal(model.NotificationID("n-1"))
		gt.Value(t, eta).NotNil().Required()
		gt.Value(t, *eta).Equal(15)
	})

	t.Run("without eta", func(t *testing.T) {
		id, eta, err := slack.ParseCalloutActionValue("n-2")
		gt.NoError(t, err).Required()
		gt.Value(t, id).Equal(model.NotificationID("n-2"))
		gt.Value(t, eta).Nil()
	})

	t.Run("malformed", func(t *testing.T) {
		_, _, err := slack.ParseCalloutActionValue("n-3|soon")
		gt.Error(t, err)

		_, _, err = slack.ParseCalloutActionValue("")
		gt.Error(t, err)
	})
}
