// Package store manages the local output area: unique export folders,
// collision-free filenames, public URLs and retention cleanup.
package store

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store hands out export folders under a single output directory.
type Store struct {
	dir        string
	baseURL    string
	retention  time.Duration
	persistent bool
	log        *slog.Logger
}

// New prepares the output directory. A zero retention disables cleanup
// scheduling, as does persistent.
func New(dir, baseURL string, retention time.Duration, persistent bool, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{
		dir:        dir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retention:  retention,
		persistent: persistent,
		log:        log,
	}, nil
}

// NewFolder allocates a fresh export folder. The name carries a random
// component and a timestamp so concurrent calls never collide.
func (s *Store) NewFolder() (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	name := fmt.Sprintf("export_%s_%s", id, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create export folder: %w", err)
	}
	return path, nil
}

// Filename returns a collision-free path inside folder. An empty name
// gets a timestamped default with the given extension; an existing name
// gets a _1, _2, ... suffix.
func (s *Store) Filename(folder, ext, name string) (string, string) {
	if name == "" {
		name = fmt.Sprintf("export_%s.%s", time.Now().Format("20060102_150405"), ext)
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	extension := filepath.Ext(name)
	path := filepath.Join(folder, name)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, name
		}
		name = fmt.Sprintf("%s_%d%s", base, counter, extension)
		path = filepath.Join(folder, name)
	}
}

// PublicURL builds the stable download URL for a generated file.
func (s *Store) PublicURL(folder, name string) string {
	return fmt.Sprintf("%s/%s/%s",
		s.baseURL,
		strings.TrimLeft(filepath.Base(folder), "/"),
		strings.TrimLeft(name, "/"))
}

// ScheduleCleanup removes the folder after the retention window. The
// worker absorbs its own failures; a cleanup problem must never reach
// the caller.
func (s *Store) ScheduleCleanup(folder string) {
	if s.persistent || s.retention <= 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("cleanup worker panicked", "folder", folder, "panic", r)
			}
		}()
		time.Sleep(s.retention)
		if err := os.RemoveAll(folder); err != nil {
			s.log.Error("cleanup failed", "folder", folder, "error", err)
		}
	}()
}

// Persistent reports whether generated files outlive the retention
// window.
func (s *Store) Persistent() bool { return s.persistent }

// WriteCSV writes rows to a csv file in folder and returns the path
// and final name.
func (s *Store) WriteCSV(folder, filename string, rows [][]string) (string, string, error) {
	path, name := s.Filename(folder, "csv", filename)
	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return "", "", fmt.Errorf("write csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("flush csv: %w", err)
	}
	return path, name, nil
}

// WriteRaw writes plain text content. XML files missing a declaration
// get one prepended.
func (s *Store) WriteRaw(folder, filename, content string) (string, string, error) {
	ext := "txt"
	if e := strings.TrimPrefix(filepath.Ext(filename), "."); e != "" {
		ext = e
	}
	path, name := s.Filename(folder, ext, filename)
	if strings.EqualFold(filepath.Ext(name), ".xml") && !strings.HasPrefix(strings.TrimSpace(content), "<?xml") {
		content = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" + content
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("write file: %w", err)
	}
	return path, name, nil
}
