package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
)

const fileExt = ".csv"

// Store manages per-contract CSV files named <DDMMMYYYY>.csv
// ⭐ SSOT: DATA_DIR 파일 레이아웃은 이 패키지에서만
type Store struct {
	dir string
}

// Entry describes one file in the store
type Entry struct {
	Name      string    // 05FEB2024.csv
	Path      string
	Size      int64
	Expiry    time.Time // zero when the name is not an expiry tag
	HasExpiry bool
}

// New creates a store rooted at dir
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the root directory if needed
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// FileName returns the canonical file name for an expiry
func FileName(expiry time.Time) string {
	return contracts.FormatExpiry(expiry) + fileExt
}

// ExpiryFromName parses the expiry tag from a file name (05FEB2024.csv)
func ExpiryFromName(name string) (time.Time, bool) {
	base := strings.TrimSuffix(filepath.Base(name), fileExt)
	t, err := time.Parse(contracts.ExpiryParseLayout, base)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Path returns the file path for an expiry
func (s *Store) Path(expiry time.Time) string {
	return filepath.Join(s.dir, FileName(expiry))
}

// List returns all CSV files sorted by name
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue // 목록 조회 중 삭제된 파일
		}

		e := Entry{
			Name: de.Name(),
			Path: filepath.Join(s.dir, de.Name()),
			Size: info.Size(),
		}
		e.Expiry, e.HasExpiry = ExpiryFromName(de.Name())
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Exists reports whether a file for expiry exists
func (s *Store) Exists(expiry time.Time) bool {
	_, err := os.Stat(s.Path(expiry))
	return err == nil
}

// Size returns the file size for expiry
func (s *Store) Size(expiry time.Time) (int64, error) {
	info, err := os.Stat(s.Path(expiry))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes the file for expiry; a missing file is not an error
func (s *Store) Remove(expiry time.Time) error {
	return s.RemovePath(s.Path(expiry))
}

// RemovePath deletes a file by path; a missing file is not an error
func (s *Store) RemovePath(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Open opens a stored file for reading
func (s *Store) Open(path string) (*os.File, error) {
	return os.Open(path)
}

// WriteCSV replaces the file for expiry with header + rows.
// The write goes to a temp file first so readers never see a partial file.
func (s *Store) WriteCSV(expiry time.Time, header []string, rows [][]string) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+contracts.FormatExpiry(expiry)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // rename 성공 시 no-op

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(expiry)); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
