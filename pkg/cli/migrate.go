package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("ASCLEPIUS_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("ASCLEPIUS_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"dryRun", dryRun)

			indexConfig := getIndexConfig()

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if !dryRun {
				logger.Info("Applying migrations")
				if err := client.Migrate(ctx, indexConfig); err != nil {
					return goerr.Wrap(err, "failed to apply migrations")
				}
				logger.Info("Migrations applied successfully")
				return nil
			}

			logger.Info("Dry run mode - previewing changes")
			plan, err := client.GetMigrationPlan(ctx, indexConfig)
			if err != nil {
				return goerr.Wrap(err, "failed to create migration plan")
			}
			if len(plan.Steps) == 0 {
				logger.Info("No changes required")
				return nil
			}
			for _, step := range plan.Steps {
				logger.Info("Migration step",
					"collection", step.Collection,
					"operation", step.Operation,
					"description", step.Description,
					"destructive", step.Destructive)
			}
			return nil
		},
	}
}

func ascending(path string) fireconf.IndexField {
	return fireconf.IndexField{Path: path, Order: fireconf.OrderAscending}
}

func descending(path string) fireconf.IndexField {
	return fireconf.IndexField{Path: path, Order: fireconf.OrderDescending}
}

// getIndexConfig returns the composite indexes the Firestore repository queries need
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "victims",
				Indexes: []fireconf.Index{
					// List: EventID ==, Seq ASC
					{Fields: []fireconf.IndexField{ascending("EventID"), ascending("Seq")}},
				},
			},
			{
				Name: "activity",
				Indexes: []fireconf.Index{
					// ListSince: EventID ==, Seq > n ASC
					{Fields: []fireconf.IndexField{ascending("EventID"), ascending("Seq")}},
					// ListRecent: EventID ==, Seq DESC
					{Fields: []fireconf.IndexField{ascending("EventID"), descending("Seq")}},
				},
			},
			{
				Name: "notifications",
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{ascending("Status"), ascending("CreatedAt")}},
					{Fields: []fireconf.IndexField{ascending("VictimID"), ascending("CreatedAt")}},
					{Fields: []fireconf.IndexField{ascending("EventID"), ascending("CreatedAt")}},
				},
			},
			{
				Name: "command_assignments",
				Indexes: []fireconf.Index{
					// current holder lookup inside the assignment transaction
					{Fields: []fireconf.IndexField{ascending("EventID"), ascending("Role"), ascending("Active")}},
					{Fields: []fireconf.IndexField{ascending("EventID"), ascending("AssignedAt")}},
				},
			},
			{
				Name: "inquiries",
				Indexes: []fireconf.Index{
					{Fields: []fireconf.IndexField{ascending("EventID"), ascending("CreatedAt")}},
				},
			},
		},
	}
}
