package archive_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/service/archive"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2026, 10, 17, 14, 5, 9, 0, time.FixedZone("JST", 9*60*60))

	gt.Value(t, archive.ObjectName("mci", "MCI-202610171405-3fa9", at)).
		Equal("mci/MCI-202610171405-3fa9/20261017T050509Z.json")
	gt.Value(t, archive.ObjectName("", "MCI-1", at)).
		Equal("MCI-1/20261017T050509Z.json")
}

func TestGCSRequiresBucket(t *testing.T) {
	_, err := archive.NewGCS(context.Background(), "", "")
	gt.Value(t, err).NotNil()
}

func TestGCSIntegration(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET is not set")
	}

	ctx := context.Background()
	g, err := archive.NewGCS(ctx, bucket, "asclepius-test")
	gt.NoError(t, err).Required()
	defer func() {
		gt.NoError(t, g.Close())
	}()

	name := archive.ObjectName(g.Prefix(), "MCI-TEST", time.Now())
	uri, err := g.Put(ctx, name, []byte(`{"event":null}`))
	gt.NoError(t, err).Required()
	gt.String(t, uri).Contains(bucket)
}
