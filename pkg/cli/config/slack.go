package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/asclepius/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack configures staff callout delivery to Slack channels and the
// interactivity endpoint for callout acknowledgements
type Slack struct {
	botToken      string
	signingSecret string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting staff callouts)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("ASCLEPIUS_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret (for interaction verification)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("ASCLEPIUS_SLACK_SIGNING_SECRET"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
	)
}

// IsEnabled reports whether callouts can be posted to Slack
func (x *Slack) IsEnabled() bool {
	return x.botToken != ""
}

// IsInteractionEnabled reports whether acknowledgement buttons can be verified
func (x *Slack) IsInteractionEnabled() bool {
	return x.botToken != "" && x.signingSecret != ""
}

// SigningSecret returns the Slack signing secret
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// Configure builds the Slack sender. It returns nil when no bot token is set.
func (x *Slack) Configure() (*slacksvc.Sender, error) {
	if !x.IsEnabled() {
		return nil, nil
	}

	svc, err := slacksvc.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Slack client")
	}
	return slacksvc.NewSender(svc), nil
}
