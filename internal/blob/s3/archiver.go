package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/predicthub/predicthub/internal/domain"
)

// Archiver implements domain.SnapshotArchiver. Each snapshot is written as
// one JSON object under snapshots/YYYY/MM/DD/<run-id>.json.
type Archiver struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewArchiver returns an Archiver that uploads through writer.
func NewArchiver(writer domain.BlobWriter, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		logger: logger.With(slog.String("component", "snapshot_archiver")),
	}
}

// SnapshotPath returns the object key for snap.
func SnapshotPath(snap domain.Snapshot) string {
	return fmt.Sprintf("snapshots/%s/%s.json", snap.FetchedAt.UTC().Format("2006/01/02"), snap.RunID)
}

// ArchiveSnapshot uploads snap and returns its object key. Payloads above
// the multipart threshold go through the upload manager.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, snap domain.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal snapshot %s: %w", snap.RunID, err)
	}

	path := SnapshotPath(snap)
	if int64(len(data)) > minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive snapshot %s: %w", snap.RunID, err)
	}

	a.logger.DebugContext(ctx, "snapshot archived",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
		slog.Int("markets", len(snap.Markets)),
	)
	return path, nil
}

var _ domain.SnapshotArchiver = (*Archiver)(nil)
