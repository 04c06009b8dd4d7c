package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/service/hospital"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Hospital configures the hospital information system client. Without a
// base URL the static capacity of the configuration file is used and
// identity lookup is disabled.
type Hospital struct {
	baseURL       string
	token         string
	timeout       time.Duration
	retryCount    uint
	retryInterval time.Duration
	identityTTL   time.Duration
}

func (x *Hospital) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "hospital-api-url",
			Usage:       "Base URL of the hospital information system API",
			Category:    "Hospital",
			Sources:     cli.EnvVars("ASCLEPIUS_HOSPITAL_API_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "hospital-api-token",
			Usage:       "Bearer token for the hospital information system API",
			Category:    "Hospital",
			Sources:     cli.EnvVars("ASCLEPIUS_HOSPITAL_API_TOKEN"),
			Destination: &x.token,
		},
		&cli.DurationFlag{
			Name:        "hospital-api-timeout",
			Usage:       "Timeout of one request to the hospital API",
			Category:    "Hospital",
			Value:       5 * time.Second,
			Sources:     cli.EnvVars("ASCLEPIUS_HOSPITAL_API_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.UintFlag{
			Name:        "hospital-api-retry",
			Usage:       "Attempts of a capacity snapshot fetch",
			Category:    "Hospital",
			Value:       3,
			Sources:     cli.EnvVars("ASCLEPIUS_HOSPITAL_API_RETRY"),
			Destination: &x.retryCount,
		},
		&cli.DurationFlag{
			Name:        "hospital-api-retry-interval",
			Usage:       "Wait between capacity snapshot attempts",
			Category:    "Hospital",
			Value:       time.Second,
			Sources:     cli.EnvVars("ASCLEPIUS_HOSPITAL_API_RETRY_INTERVAL"),
			Destination: &x.retryInterval,
		},
		&cli.DurationFlag{
			Name:        "identity-cache-ttl",
			Usage:       "How long a resolved identity is reused",
			Category:    "Hospital",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("ASCLEPIUS_IDENTITY_CACHE_TTL"),
			Destination: &x.identityTTL,
		},
	}
}

func (x Hospital) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api-url", x.baseURL),
		slog.Int("api-token.len", len(x.token)),
		slog.Duration("timeout", x.timeout),
	)
}

// Configure returns the capacity provider and identity lookup to use
func (x *Hospital) Configure(app *AppConfig) (interfaces.CapacityProvider, interfaces.IdentityLookup) {
	if x.baseURL == "" {
		logging.Default().Info("No hospital API configured, using static capacity from config",
			"pools", len(app.Capacity.Snapshot()))
		return hospital.NewStaticCapacity(app.Capacity.Snapshot()), hospital.NoIdentity{}
	}

	opts := []hospital.Option{
		hospital.WithTimeout(x.timeout),
		hospital.WithRetry(x.retryCount, x.retryInterval),
		hospital.WithIdentityCacheTTL(x.identityTTL),
	}
	if x.token != "" {
		opts = append(opts, hospital.WithToken(x.token))
	}
	client := hospital.New(x.baseURL, opts...)
	return client, client
}
