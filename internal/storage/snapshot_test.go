package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.Insert(ctx, testPattern("승인 {AMOUNT}", true))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backups", "patterns-snap.db")
	info, err := store.Snapshot(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, info.Path)
	assert.Equal(t, 1, info.Counts.Payment)
	assert.Positive(t, info.FileSize)

	meta, err := os.ReadFile(filepath.Join(filepath.Dir(dest), "patterns-snap.meta.json"))
	require.NoError(t, err)
	var decoded SnapshotInfo
	require.NoError(t, json.Unmarshal(meta, &decoded))
	assert.Equal(t, info.SchemaVersion, decoded.SchemaVersion)

	restored, err := NewSQLiteStorage(dest)
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()
	patterns, err := restored.GetAllPaymentPatterns(ctx)
	require.NoError(t, err)
	assert.Len(t, patterns, 1)

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := store.Snapshot(ctx, dest)
		assert.ErrorIs(t, err, ErrSnapshotExists)
	})

	t.Run("rejects unsafe paths", func(t *testing.T) {
		for _, p := range []string{"", "relative.db", "/tmp/it's.db", "/tmp/../etc/x.db"} {
			_, err := store.Snapshot(ctx, p)
			assert.ErrorIs(t, err, ErrSnapshotPath, p)
		}
	})
}
