package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/pkg/logger"
)

// ErrNoSeries is returned by Read when nothing has been published yet
var ErrNoSeries = errors.New("no published series")

// Encode renders the series exactly as the dashboard consumes it (JSON array, indent 2).
// An empty series encodes as [] so the file is always a valid array.
func Encode(points []contracts.PremiumPoint) ([]byte, error) {
	if points == nil {
		points = []contracts.PremiumPoint{}
	}
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode series: %w", err)
	}
	return data, nil
}

// Decode parses a series previously produced by Encode
func Decode(data []byte) ([]contracts.PremiumPoint, error) {
	var points []contracts.PremiumPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return points, nil
}

// JSONFile is the dashboard data file sink
// ⭐ SSOT: 항상 활성화되는 기본 sink
type JSONFile struct {
	path   string
	logger *logger.Logger
}

// NewJSONFile creates a JSON file sink writing to path
func NewJSONFile(path string, log *logger.Logger) *JSONFile {
	return &JSONFile{
		path:   path,
		logger: log.WithField("sink", "json"),
	}
}

// Name implements contracts.SeriesSink
func (f *JSONFile) Name() string {
	return "json"
}

// Path returns the output file location
func (f *JSONFile) Path() string {
	return f.path
}

// Publish replaces the file content with the full series.
// temp 파일에 쓰고 rename → 대시보드가 반쯤 쓰인 파일을 읽지 않음
func (f *JSONFile) Publish(ctx context.Context, runID string, points []contracts.PremiumPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(points)
	if err != nil {
		return err
	}

	if err := writeAtomic(f.path, data); err != nil {
		return fmt.Errorf("json sink: %w", err)
	}

	f.logger.WithRun(runID).WithFields(map[string]interface{}{
		"path":   f.path,
		"points": len(points),
		"bytes":  len(data),
	}).Info("Series written")
	return nil
}

// Read implements contracts.SeriesReader
func (f *JSONFile) Read(ctx context.Context) ([]contracts.PremiumPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSeries, f.path)
		}
		return nil, fmt.Errorf("read series: %w", err)
	}
	return Decode(data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // rename 성공 시 no-op

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
