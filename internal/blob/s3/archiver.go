package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantlab/marketlab/internal/domain"
)

// Archiver implements domain.SnapshotArchiver by uploading snapshots as JSON
// objects keyed by round and timestamp.
type Archiver struct {
	uploader *manager.Uploader
	bucket   string
}

var _ domain.SnapshotArchiver = (*Archiver)(nil)

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
	}
}

// Archive uploads the snapshot and returns its object key.
func (a *Archiver) Archive(ctx context.Context, snap domain.MarketSnapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/round_%04d_%s.json",
		snap.Round, time.Now().UTC().Format("20060102T150405Z"))

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: upload snapshot %s: %w", key, err)
	}

	return key, nil
}
