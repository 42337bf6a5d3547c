package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

type memWriter struct {
	objects   map[string][]byte
	multipart int
	err       error
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	return nil
}

func (m *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	m.multipart++
	return m.Put(ctx, path, data, "")
}

func TestArchiveSnapshot(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}}
	a := NewArchiver(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	snap := domain.Snapshot{
		RunID:     "0b7c",
		Count:     2,
		Markets:   []domain.MarketView{{ID: 1, Question: "q"}},
		FetchedAt: time.Date(2026, 3, 9, 23, 0, 0, 0, time.FixedZone("X", -2*3600)),
	}
	path, err := a.ArchiveSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/2026/03/10/0b7c.json", path)
	assert.Zero(t, w.multipart)

	var got domain.Snapshot
	require.NoError(t, json.Unmarshal(w.objects[path], &got))
	assert.Equal(t, uint64(2), got.Count)
	require.Len(t, got.Markets, 1)
	assert.Equal(t, "q", got.Markets[0].Question)
}

func TestArchiveSnapshotError(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}, err: errors.New("access denied")}
	a := NewArchiver(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := a.ArchiveSnapshot(context.Background(), domain.Snapshot{RunID: "r"})
	assert.ErrorContains(t, err, "access denied")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("s3.example.com", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("http://minio:9000", true))
}
