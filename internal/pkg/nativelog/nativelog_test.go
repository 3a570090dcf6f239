package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsToDailyFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

	_, err = w.Write([]byte("uno\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("dos\n"))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "noticias_2026-05-04.log"))
	require.NoError(t, err)
	assert.Equal(t, "uno\ndos\n", string(b))
}

func TestNewZapLoggerWithoutDir(t *testing.T) {
	l, err := NewZapLogger(Options{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
