package archive

import (
	"context"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

// GCS stores after-action records in a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName is where the record of an event exported at t is stored
func ObjectName(prefix, eventCode string, t time.Time) string {
	return path.Join(prefix, eventCode, t.UTC().Format("20060102T150405Z")+".json")
}

// Put uploads data and returns its gs:// URI
func (g *GCS) Put(ctx context.Context, name string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}

	uri := "gs://" + g.bucket + "/" + name
	logging.From(ctx).Info("after-action record uploaded", "uri", uri, "bytes", len(data))
	return uri, nil
}

// Prefix returns the object prefix every record is stored under
func (g *GCS) Prefix() string {
	return g.prefix
}

func (g *GCS) Close() error {
	return g.client.Close()
}
