package providers

import (
	"os"
	"path/filepath"
	"testing"

	"dppmini/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogTypeByRequestType_Read(t *testing.T) {
	assert.Equal(t, TypeRead, GetLogTypeByRequestType("GET"))
	assert.Equal(t, TypeRead, GetLogTypeByRequestType("HEAD"))
}

func TestGetLogTypeByRequestType_Write(t *testing.T) {
	assert.Equal(t, TypeWrite, GetLogTypeByRequestType("POST"))
	assert.Equal(t, TypeWrite, GetLogTypeByRequestType("PUT"))
	assert.Equal(t, TypeWrite, GetLogTypeByRequestType("DELETE"))
}

func TestNewLogProvider_CreatesLogFiles(t *testing.T) {
	dir := t.TempDir()
	conf := &structures.Config{
		Logger: structures.LoggerConfig{
			Level: "debug",
			Mode:  0644,
			Dir:   dir,
		},
	}

	logger, err := NewLogProvider(conf)
	require.NoError(t, err)

	logger.Infof(TypeApp, "test message")
	logger.Debugf(TypeRead, "read message")
	logger.Warnf(TypeWrite, "write message %d", 42)
	logger.Close()

	for _, name := range []string{"app.log", "read.log", "write.log"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "write.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "write message 42")
}

func TestNewLogProvider_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	conf := &structures.Config{
		Logger: structures.LoggerConfig{Level: "info", Mode: 0644, Dir: dir},
	}

	logger, err := NewLogProvider(conf)
	require.NoError(t, err)
	logger.Close()
	assert.DirExists(t, dir)
}

func TestNewLogProvider_InvalidDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	conf := &structures.Config{
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   filepath.Join(blocker, "logs"),
		},
	}

	_, err := NewLogProvider(conf)
	assert.Error(t, err)
}

func TestNewLogProvider_InvalidLevel(t *testing.T) {
	conf := &structures.Config{
		Logger: structures.LoggerConfig{
			Level: "verbose",
			Mode:  0644,
			Dir:   t.TempDir(),
		},
	}

	_, err := NewLogProvider(conf)
	assert.Error(t, err)
}
