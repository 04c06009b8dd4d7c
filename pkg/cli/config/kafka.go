package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/service/stream"
	"github.com/urfave/cli/v3"
)

// Kafka configures mirroring of activity entries to a topic
type Kafka struct {
	brokers []string
	topic   string
}

func (x *Kafka) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "kafka-broker",
			Usage:       "Kafka broker address (repeatable)",
			Category:    "Kafka",
			Sources:     cli.EnvVars("ASCLEPIUS_KAFKA_BROKERS"),
			Destination: &x.brokers,
		},
		&cli.StringFlag{
			Name:        "kafka-activity-topic",
			Usage:       "Topic receiving activity log entries",
			Category:    "Kafka",
			Value:       "mci.activity",
			Sources:     cli.EnvVars("ASCLEPIUS_KAFKA_ACTIVITY_TOPIC"),
			Destination: &x.topic,
		},
	}
}

func (x Kafka) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("brokers", x.brokers),
		slog.String("topic", x.topic),
	)
}

// Configure returns nil when no broker is set
func (x *Kafka) Configure() (*stream.Publisher, error) {
	if len(x.brokers) == 0 {
		return nil, nil
	}
	p, err := stream.New(x.brokers, x.topic)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create activity publisher")
	}
	return p, nil
}
