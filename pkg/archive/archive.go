// Package archive best-effort snapshots a replica's songlist to S3,
// snappy-compressed, on an interval — a convenience for disaster recovery,
// never consulted by the protocol itself.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"

	"github.com/cluso-labs/songlist3pc/pkg/logging"
	"github.com/cluso-labs/songlist3pc/pkg/room"
)

// Querier is the capability archive needs from a replica: a point-in-time
// songlist snapshot, same contract as pkg/roomql.
type Querier interface {
	Send(msg room.Message)
}

// Uploader periodically snapshots a room's songlist to S3.
type Uploader struct {
	room   Querier
	client *s3.Client
	bucket string
	log    logging.Logger
}

// NewUploader builds an Uploader against an already-configured aws.Config.
func NewUploader(r Querier, cfg aws.Config, bucket string, log logging.Logger) *Uploader {
	return &Uploader{
		room:   r,
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		log:    log.With(logging.String("component", "archive")),
	}
}

// Run snapshots on interval until ctx is cancelled. A failed upload is
// logged and retried next tick — archival never blocks or disrupts the
// replica's protocol loop.
func (u *Uploader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := u.snapshotOnce(ctx); err != nil {
				u.log.Warn("archive snapshot failed", logging.Error(err))
			}
		}
	}
}

func (u *Uploader) snapshotOnce(ctx context.Context) error {
	reply := make(chan map[string]string, 1)
	u.room.Send(room.QuerySongList{Reply: reply})

	var snap map[string]string
	select {
	case snap = <-reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("archive: snapshot request timed out")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal snapshot: %w", err)
	}
	compressed := snappy.Encode(nil, raw)

	key := fmt.Sprintf("songlist-snapshots/%d.json.snappy", time.Now().UnixMilli())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return fmt.Errorf("archive: put object %s: %w", key, err)
	}
	u.log.Info("archive snapshot uploaded", logging.String("key", key), logging.Int("songs", len(snap)))
	return nil
}
