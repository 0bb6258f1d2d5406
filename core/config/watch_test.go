package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, ConfigurationName)
	require.NoError(t, os.WriteFile(path, defaultConfigData, 0600))

	w, err := Watch(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, w.Changed())

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), nil, 0600))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, w.Changed())

	require.NoError(t, os.WriteFile(path, []byte("prompt: '% '\n"), 0600))
	assert.Eventually(t, w.Changed, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
}
