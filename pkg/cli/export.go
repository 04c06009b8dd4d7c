package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/cli/config"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/service/archive"
	"github.com/secmon-lab/asclepius/pkg/usecase"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"github.com/secmon-lab/asclepius/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var eventID string
	var output string
	var bucket string
	var prefix string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "event-id",
			Usage:       "ID of the closed event to export",
			Required:    true,
			Destination: &eventID,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output file path, or - for stdout",
			Value:       "-",
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Upload the record to this Cloud Storage bucket instead of writing a file",
			Category:    "Storage",
			Sources:     cli.EnvVars("ASCLEPIUS_EXPORT_GCS_BUCKET"),
			Destination: &bucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the bucket",
			Category:    "Storage",
			Value:       "after-action",
			Sources:     cli.EnvVars("ASCLEPIUS_EXPORT_GCS_PREFIX"),
			Destination: &prefix,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export the after-action record of a closed event",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo)
			record, err := uc.Export.Export(ctx, model.EventID(eventID))
			if err != nil {
				return goerr.Wrap(err, "failed to export event", goerr.V(model.EventIDKey, eventID))
			}

			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal after-action record")
			}

			if bucket != "" {
				return uploadRecord(ctx, bucket, prefix, record, data)
			}
			return writeRecord(ctx, output, data)
		},
	}
}

func uploadRecord(ctx context.Context, bucket, prefix string, record *model.AfterActionRecord, data []byte) error {
	store, err := archive.NewGCS(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	defer safe.Close(ctx, store)

	uri, err := store.Put(ctx, archive.ObjectName(store.Prefix(), record.Event.Code, record.ExportedAt), data)
	if err != nil {
		return err
	}
	logging.Default().Info("Export completed", "uri", uri, "victims", len(record.Victims))
	return nil
}

func writeRecord(ctx context.Context, output string, data []byte) error {
	if output == "-" {
		safe.Write(ctx, os.Stdout, append(data, '\n'))
		return nil
	}

	// #nosec G306 - the record holds patient data, readable by the owner only
	if err := os.WriteFile(output, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write export file", goerr.V("path", output))
	}
	logging.Default().Info("Export completed", "path", output)
	return nil
}
