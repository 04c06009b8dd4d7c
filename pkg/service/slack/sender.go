package slack

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// Block actions of the answer buttons on a staff callout. The value of an
// acknowledge button is the notification ID, optionally followed by "|" and
// the ETA in minutes. The value of the decline button is the notification ID.
const (
	ActionIDAcknowledge = "mci_callout_ack"
	ActionIDDecline     = "mci_callout_decline"
)

// calloutETAs are the arrival estimates offered as buttons
var calloutETAs = []int{15, 30, 60}

// CalloutActionValue encodes an acknowledge button value
func CalloutActionValue(id model.NotificationID, etaMinutes int) string {
	return fmt.Sprintf("%s|%d", id, etaMinutes)
}

// ParseCalloutActionValue splits a button value into the notification ID and
// the ETA. The ETA is nil when the value carries none.
func ParseCalloutActionValue(value string) (model.NotificationID, *int, error) {
	id, eta, found := strings.Cut(value, "|")
	if id == "" {
		return "", nil, goerr.New("callout action has no notification ID", goerr.V("value", value))
	}
	if !found {
		return model.NotificationID(id), nil, nil
	}
	minutes, err := strconv.Atoi(eta)
	if err != nil {
		return "", nil, goerr.Wrap(err, "invalid callout eta", goerr.V("value", value))
	}
	return model.NotificationID(id), &minutes, nil
}

// Sender delivers SLACK notification intents. The intent contact is the channel ID.
type Sender struct {
	svc Service
}

var _ interfaces.NotificationSender = &Sender{}

func NewSender(svc Service) *Sender {
	return &Sender{svc: svc}
}

func (s *Sender) Method() types.NotificationMethod {
	return types.NotificationMethodSlack
}

func (s *Sender) Send(ctx context.Context, n *model.NotificationIntent) error {
	if n.Contact == "" {
		return goerr.New("slack channel is empty", goerr.V(model.NotificationIDKey, n.ID))
	}

	ts, err := s.svc.PostMessage(ctx, n.Contact, buildCalloutBlocks(n), n.Message)
	if err != nil {
		return goerr.Wrap(err, "failed to deliver slack notification", goerr.V(model.NotificationIDKey, n.ID))
	}

	// Channel name is for the log only; lookup failures are not delivery failures
	channel := n.Contact
	if names, err := s.svc.GetChannelNames(ctx, []string{n.Contact}); err == nil && names[n.Contact] != "" {
		channel = "#" + names[n.Contact]
	}
	logging.From(ctx).Info("slack notification posted",
		"notification_id", n.ID,
		"channel", channel,
		"ts", ts)
	return nil
}

func buildCalloutBlocks(n *model.NotificationIntent) []slack.Block {
	title := "MCI notification"
	if n.Purpose == types.NotificationPurposeStaffCallout {
		title = ":rotating_light: MCI staff callout"
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, n.Message, false, false), nil, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("to *%s* · %s · event `%s`", n.Recipient, n.Type, n.EventID), false, false),
		),
	}

	if n.Purpose == types.NotificationPurposeStaffCallout {
		var buttons []slack.BlockElement
		for i, eta := range calloutETAs {
			btn := slack.NewButtonBlockElement(ActionIDAcknowledge+"_"+strconv.Itoa(eta), CalloutActionValue(n.ID, eta),
				slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("On my way (%d min)", eta), false, false))
			if i == 0 {
				btn.Style = slack.StylePrimary
			}
			buttons = append(buttons, btn)
		}
		decline := slack.NewButtonBlockElement(ActionIDDecline, string(n.ID),
			slack.NewTextBlockObject(slack.PlainTextType, "Unavailable", false, false))
		decline.Style = slack.StyleDanger
		buttons = append(buttons, decline)
		blocks = append(blocks, slack.NewActionBlock("mci_callout_actions", buttons...))
	}
	return blocks
}
