// Package snapshot persists the canonical and delta documents as JSON files
// with backup-before-overwrite and atomic writes.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

const (
	canonicalFile = "exam_data.json"
	deltaFile     = "updated_notifications.json"
	backupDir     = "backups"

	// DefaultBackupKeep bounds how many canonical backups survive pruning.
	DefaultBackupKeep = 5
)

// Store reads and writes the snapshot documents under a single data
// directory. Writes go through a temp file and a rename so a concurrent
// reader never observes a half-written document.
type Store struct {
	dir        string
	backupKeep int
}

// New creates the data and backup directories if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, backupDir), 0o755); err != nil {
		return nil, fmt.Errorf("error creating data directories: %w", err)
	}

	return &Store{dir: dir, backupKeep: DefaultBackupKeep}, nil
}

func (s *Store) canonicalPath() string { return filepath.Join(s.dir, canonicalFile) }
func (s *Store) deltaPath() string     { return filepath.Join(s.dir, deltaFile) }
func (s *Store) backupPath() string    { return filepath.Join(s.dir, backupDir) }

// LoadCanonical returns the canonical snapshot, or a well-formed empty one
// when the file is missing or fails to parse. A corrupt file is a
// recoverable condition, not fatal.
func (s *Store) LoadCanonical() examupdates.Snapshot {
	snap := examupdates.NewSnapshot()
	if err := readJSON(s.canonicalPath(), &snap); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("error reading canonical snapshot, starting empty", "error", err)
		}
		return examupdates.NewSnapshot()
	}

	return snap
}

// LoadDelta returns the delta snapshot, or a well-formed empty one when the
// file is missing or corrupt.
func (s *Store) LoadDelta() examupdates.Delta {
	delta := examupdates.NewDelta()
	if err := readJSON(s.deltaPath(), &delta); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("error reading delta snapshot, starting empty", "error", err)
		}
		return examupdates.NewDelta()
	}

	return delta
}

// SaveCanonical backs up the previous canonical file, writes the new one
// atomically, then prunes old backups.
func (s *Store) SaveCanonical(snap examupdates.Snapshot) error {
	if err := s.backupCanonical(); err != nil {
		// A failed backup should not block publishing fresh data.
		slog.Warn("canonical backup failed", "error", err)
	}

	if err := writeJSONAtomic(s.canonicalPath(), snap); err != nil {
		return fmt.Errorf("error saving canonical snapshot: %w", err)
	}

	if _, err := s.CleanupBackups(s.backupKeep); err != nil {
		slog.Warn("backup pruning failed", "error", err)
	}

	return nil
}

// SaveDelta writes the delta document atomically. An empty delta is still
// written so downstream consumers see the cleared inbox.
func (s *Store) SaveDelta(delta examupdates.Delta) error {
	if err := writeJSONAtomic(s.deltaPath(), delta); err != nil {
		return fmt.Errorf("error saving delta snapshot: %w", err)
	}

	return nil
}

// ClearDelta discards the delta document. Loading afterwards yields the
// empty default.
func (s *Store) ClearDelta() error {
	if err := os.Remove(s.deltaPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error clearing delta snapshot: %w", err)
	}

	return nil
}

// CleanupBackups removes all but the newest keep backups, returning how many
// were deleted. Ring-buffer-by-mtime, not time-based retention.
func (s *Store) CleanupBackups(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	entries, err := os.ReadDir(s.backupPath())
	if err != nil {
		return 0, fmt.Errorf("error listing backups: %w", err)
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	backups := []backup{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{
			path:    filepath.Join(s.backupPath(), entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})

	removed := 0
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.path); err != nil {
			slog.Warn("error removing backup", "path", b.path, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

func (s *Store) backupCanonical() error {
	info, err := os.Stat(s.canonicalPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	name := fmt.Sprintf("exam_data_backup_%s.json", time.Now().Format("20060102_150405"))
	return copyFile(s.canonicalPath(), filepath.Join(s.backupPath(), name))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Close()
}

func readJSON(path string, v any) error {
	byts, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(byts, v)
}

func writeJSONAtomic(path string, v any) error {
	byts, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(byts); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
