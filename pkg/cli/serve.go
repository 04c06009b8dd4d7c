package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/cli/config"
	httpctrl "github.com/secmon-lab/asclepius/pkg/controller/http"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/service/worker"
	"github.com/secmon-lab/asclepius/pkg/usecase"
	"github.com/secmon-lab/asclepius/pkg/utils/errutil"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"github.com/secmon-lab/asclepius/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var appCfg config.App
	var repoCfg config.Repository
	var hospitalCfg config.Hospital
	var slackCfg config.Slack
	var kafkaCfg config.Kafka
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ASCLEPIUS_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, hospitalCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, kafkaCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the MCI coordination HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Serve configuration",
				"hospital", hospitalCfg,
				"slack", slackCfg,
				"kafka", kafkaCfg,
				"sentry", sentryCfg,
			)

			if err := sentryCfg.Configure(version); err != nil {
				return err
			}
			defer errutil.FlushSentry(2 * time.Second)

			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			capacity, identity := hospitalCfg.Configure(app)

			// The worker needs the notification use case, which needs the
			// trigger, so the trigger resolves the worker lazily.
			var deliveryWorker *worker.NotificationDeliveryWorker
			trigger := func(ctx context.Context) error {
				if deliveryWorker == nil {
					return nil
				}
				return deliveryWorker.Kick(ctx)
			}

			ucOpts := []usecase.Option{
				usecase.WithCapacityProvider(capacity),
				usecase.WithIdentityLookup(identity),
				usecase.WithCallouts(app.Callouts),
				usecase.WithAreas(app.AreaIDs()),
				usecase.WithDeliveryTrigger(trigger),
			}
			if app.Notification.MaxAttempts > 0 {
				ucOpts = append(ucOpts, usecase.WithMaxAttempts(app.Notification.MaxAttempts))
			}

			publisher, err := kafkaCfg.Configure()
			if err != nil {
				return err
			}
			if publisher != nil {
				defer safe.Close(ctx, publisher)
				ucOpts = append(ucOpts, usecase.WithActivityPublisher(publisher))
				logger.Info("Activity stream enabled")
			}

			uc := usecase.New(repo, ucOpts...)

			if err := uc.Coordinator.Recover(ctx); err != nil {
				return goerr.Wrap(err, "failed to recover live event")
			}

			senders := []interfaces.NotificationSender{
				worker.NewLogSender(types.NotificationMethodPhone),
				worker.NewLogSender(types.NotificationMethodSMS),
			}
			slackSender, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			if slackSender != nil {
				senders = append(senders, slackSender)
				logger.Info("Slack callout delivery enabled")
			} else {
				senders = append(senders, worker.NewLogSender(types.NotificationMethodSlack))
			}

			deliveryWorker = worker.NewNotificationDeliveryWorker(uc.Notification,
				app.Notification.Interval(), app.Notification.Batch(), senders...)
			if err := deliveryWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start notification delivery worker")
			}

			var httpOpts []httpctrl.Options
			if slackCfg.IsInteractionEnabled() {
				handler := httpctrl.NewSlackInteractionHandler(uc.Notification)
				httpOpts = append(httpOpts, httpctrl.WithSlackInteraction(handler, slackCfg.SigningSecret()))
				logger.Info("Slack interaction handler enabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				deliveryWorker.Stop()
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					deliveryWorker.Stop()
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				// Stop delivery after in-flight requests finished queueing intents
				deliveryWorker.Stop()

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
