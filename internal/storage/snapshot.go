package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Snapshot errors.
var (
	ErrSnapshotExists = errors.New("snapshot already exists")
	ErrSnapshotPath   = errors.New("invalid snapshot path")
)

// SnapshotInfo describes a pattern database snapshot. It is also written next
// to the snapshot as <name>.meta.json.
type SnapshotInfo struct {
	CreatedAt     time.Time     `json:"created_at"`
	Path          string        `json:"path"`
	Counts        PatternCounts `json:"counts"`
	FileSize      int64         `json:"file_size"`
	SchemaVersion int64         `json:"schema_version"`
}

// Snapshot writes a consistent copy of the pattern database to destPath using
// VACUUM INTO. destPath must be absolute and must not exist yet.
func (s *SQLiteStorage) Snapshot(ctx context.Context, destPath string) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSnapshotPath(destPath); err != nil {
		return nil, err
	}
	if _, err := os.Stat(destPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.CountPatterns(ctx)
	if err != nil {
		return nil, err
	}

	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	info := &SnapshotInfo{
		CreatedAt:     time.Now(),
		Path:          destPath,
		Counts:        counts,
		FileSize:      stat.Size(),
		SchemaVersion: version,
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}
	metaPath := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ".meta.json"
	if err := os.WriteFile(metaPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write snapshot metadata: %w", err)
	}
	return info, nil
}

func validateSnapshotPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty", ErrSnapshotPath)
	}
	if strings.ContainsAny(p, `'";`) {
		return fmt.Errorf("%w: contains forbidden characters", ErrSnapshotPath)
	}
	if !filepath.IsAbs(p) || filepath.Clean(p) != p {
		return fmt.Errorf("%w: must be a clean absolute path", ErrSnapshotPath)
	}
	return nil
}
