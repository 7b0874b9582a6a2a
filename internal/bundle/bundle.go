// Package bundle assembles and publishes the per-window score archive:
// peer_scores.jsonl, snap_scores.jsonl, and MANIFEST.json zipped
// together, optionally uploaded to S3-compatible object storage. The
// Config/Client shape here generalizes the teacher's thin outbound
// client (pkg/trust/client.go) to an upload-only adapter.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive holds the three serialized entries that make up one
// publication, keyed by the filename they are written under.
type Archive struct {
	PeerScores []byte // peer_scores.jsonl
	SnapScores []byte // snap_scores.jsonl
	Manifest   []byte // MANIFEST.json
}

// Build zips the three entries into an in-memory archive, in the fixed
// order peer_scores.jsonl, snap_scores.jsonl, MANIFEST.json.
func Build(a Archive) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{"peer_scores.jsonl", a.PeerScores},
		{"snap_scores.jsonl", a.SnapScores},
		{"MANIFEST.json", a.Manifest},
	}
	for _, e := range entries {
		f, err := w.Create(e.name)
		if err != nil {
			return nil, fmt.Errorf("bundle: create entry %s: %w", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return nil, fmt.Errorf("bundle: write entry %s: %w", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("bundle: close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Config describes where a built archive should be uploaded.
type Config struct {
	Bucket string
	Prefix string
}

// Uploader pushes built archives to S3-compatible object storage under
// key "<prefix>/<ts_window>.zip".
type Uploader struct {
	cfg    Config
	client *s3.Client
}

// NewUploader constructs an Uploader from an already-resolved AWS config.
func NewUploader(cfg Config, awsCfg aws.Config) *Uploader {
	return &Uploader{cfg: cfg, client: s3.NewFromConfig(awsCfg)}
}

// Upload puts archive under the configured prefix, keyed by tsWindow.
func (u *Uploader) Upload(ctx context.Context, tsWindow uint64, archive []byte) (string, error) {
	key := fmt.Sprintf("%s/%d.zip", u.cfg.Prefix, tsWindow)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(archive),
	})
	if err != nil {
		return "", fmt.Errorf("bundle: upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.cfg.Bucket, key), nil
}
