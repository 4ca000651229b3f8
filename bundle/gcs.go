package bundle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCS uploads the bundle as a ZIP archive to a Google Cloud Storage object.
//
// It uses Application Default Credentials unless Client is set.
type GCS struct {
	Bucket   string
	Object   string
	Modified time.Time
	Client   *storage.Client
	Timeout  time.Duration // per upload, 2 minutes when zero
}

// ParseGCSURI splits a gs://bucket/object URI.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return bucket, object, nil
}

// URI returns the gs:// URI of the uploaded bundle.
func (g *GCS) URI() string { return "gs://" + g.Bucket + "/" + g.Object }

func (g *GCS) Pack(ctx context.Context, files []File) error {
	data, err := Archive(files, g.Modified)
	if err != nil {
		return err
	}

	client := g.Client
	if client == nil {
		client, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		defer client.Close()
	}

	timeout := g.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	w := client.Bucket(g.Bucket).Object(g.Object).NewWriter(ctx)
	w.ContentType = "application/zip"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("copy bundle to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %s: %w", g.URI(), err)
	}
	return nil
}
