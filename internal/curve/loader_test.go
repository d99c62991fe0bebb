package curve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/logger"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "05FEB2024.csv", "Date,ExpiryDate,Close\n2024-01-02,05FEB2024,63000\nbad,05FEB2024,1\n")
	writeFile(t, dir, "05APR2024.csv", "Date,ExpiryDate,Close\n2024-01-02,05APR2024,63900\n")
	writeFile(t, dir, "broken.csv", "Foo,Bar\n1,2\n")
	writeFile(t, dir, "readme.txt", "ignored")

	for _, workers := range []int{1, 4} {
		loader := NewLoader(store.New(dir), workers, logger.Nop())

		sets, stats, err := loader.Load(context.Background())
		require.NoError(t, err)

		require.Len(t, sets, 3)
		assert.Equal(t, "05APR2024.csv", sets[0].Source, "file name order")
		assert.Equal(t, "05FEB2024.csv", sets[1].Source)
		assert.Equal(t, "broken.csv", sets[2].Source)
		assert.True(t, sets[2].Skipped)

		assert.Equal(t, LoadStats{Files: 3, Skipped: 1, Records: 2, Malformed: 1}, stats)
	}
}

func TestLoader_FallbackExpiryFromName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "05JUN2024.csv", "Date,Close\n2024-01-02,64800\n")

	sets, _, err := NewLoader(store.New(dir), 2, logger.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, sets[0].Records, 1)
	assert.Equal(t, time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), sets[0].Records[0].ExpiryDate)
}

func TestLoader_MissingDir(t *testing.T) {
	loader := NewLoader(store.New(filepath.Join(t.TempDir(), "missing")), 2, logger.Nop())
	_, _, err := loader.Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "05FEB2024.csv", "Date,ExpiryDate,Close\n2024-01-02,05FEB2024,63000\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewLoader(store.New(dir), 1, logger.Nop()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
