package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/cli/config"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/usecase"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"github.com/secmon-lab/asclepius/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var checkRepository bool

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-repository",
		Usage:       "Also connect to the repository and report the live event",
		Destination: &checkRepository,
	})
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the hospital configuration and optionally the repository",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if appCfg.Path() == "" {
				return goerr.New("--config is required")
			}

			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			printSummary(color.Output, app)

			if !checkRepository {
				logging.Default().Info("Repository check skipped")
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo)
			active, err := uc.Coordinator.GetActive(ctx)
			switch {
			case errors.Is(err, model.ErrNotFound):
				color.New(color.FgGreen).Fprintln(color.Output, "repository: no live event")
			case err != nil:
				return goerr.Wrap(err, "repository check failed")
			default:
				color.New(color.FgYellow, color.Bold).Fprintf(color.Output,
					"repository: live event %s (%s, %s)\n", active.Code, active.Status, active.AlertLevel)
			}
			return nil
		},
	}
}

func printSummary(w io.Writer, app *config.AppConfig) {
	ok := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	ok.Fprintln(w, "configuration is valid")

	snap := app.Capacity.Snapshot()
	categories := slices.Sorted(maps.Keys(snap))

	label.Fprintf(w, "capacity pools (%d)\n", len(snap))
	for _, category := range categories {
		entry := snap[category]
		fmt.Fprintf(w, "  %-20s %d/%d available\n", category, entry.Available, entry.Total)
	}

	label.Fprintf(w, "staff callouts (%d)\n", len(app.Callouts))
	for _, target := range app.Callouts {
		fmt.Fprintf(w, "  %-20s %-6s from %s\n", target.Name, target.Method, target.MinAlertLevel)
	}

	label.Fprintf(w, "treatment areas (%d)\n", len(app.Areas))
	if len(app.Areas) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(app.AreaIDs(), ", "))
	}
}
