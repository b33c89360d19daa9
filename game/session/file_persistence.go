package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// FileStore implements Store as a single JSON document holding every
// session, keyed by session ID.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store writing to path
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("data file path is required")
	}

	// Create the parent directory if it doesn't exist
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return &FileStore{path: filepath.Clean(path)}, nil
}

// Path returns the snapshot file location
func (fs *FileStore) Path() string {
	return fs.path
}

// SaveAll overwrites the snapshot file with the given table
func (fs *FileStore) SaveAll(ctx context.Context, snapshots map[string]Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshots == nil {
		snapshots = map[string]Snapshot{}
	}

	// Marshal to JSON with indentation for readability
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := writeFileAtomic(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}

// LoadAll reads the snapshot file. A missing file is an empty table.
func (fs *FileStore) LoadAll(ctx context.Context) (map[string]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	data, err := os.ReadFile(fs.path)
	fs.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if len(data) == 0 {
		return map[string]Snapshot{}, nil
	}

	var snapshots map[string]Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data file: %w", err)
	}

	for id, snap := range snapshots {
		snap.ID = id
		snapshots[id] = snap
	}
	return snapshots, nil
}

// Close is a no-op; every save is complete when SaveAll returns
func (fs *FileStore) Close() error {
	return nil
}

// writeFileAtomic writes content to a temp file in the destination
// directory, syncs it and renames it over path.
func writeFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := os.CreateTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("rename temp file: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return fmt.Errorf("rename temp file after remove: %w", renameErr)
		}
	}
	cleanup = false

	if dir, err := os.Open(parent); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}
