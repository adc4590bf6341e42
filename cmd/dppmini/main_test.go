package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir    string
	config string
}

func newCliEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	yaml := "storage:\n" +
		"  dataFile: " + filepath.Join(dir, "items.csv") + "\n" +
		"  settingsFile: " + filepath.Join(dir, "config.json") + "\n" +
		"logger:\n" +
		"  dir: " + filepath.Join(dir, "logs") + "\n" +
		"metrics:\n" +
		"  enabled: false\n" +
		"view:\n" +
		"  recentCount: 2\n"
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0o644))
	return &cliEnv{dir: dir, config: config}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCli_AddListDelete(t *testing.T) {
	env := newCliEnv(t)

	out, err := env.run(t, "add", "4006381333931", "L1", "2030-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "added 4006381333931 | L1 | 2030-01-01 | ")

	out, err = env.run(t, "list", "--batch", "l1")
	require.NoError(t, err)
	assert.Contains(t, out, "GTIN")
	assert.Contains(t, out, "4006381333931")
	assert.Contains(t, out, "1 items")

	data, err := os.ReadFile(filepath.Join(env.dir, "items.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], ",")

	out, err = env.run(t, "delete", fields[0], fields[1], fields[2], fields[3])
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = env.run(t, "delete", fields[0], fields[1], fields[2], fields[3])
	require.NoError(t, err)
	assert.Contains(t, out, "no matching record")
}

func TestCli_AddRejectsInvalid(t *testing.T) {
	env := newCliEnv(t)

	out, err := env.run(t, "add", "123", "L1", "2030-01-01")
	require.Error(t, err)
	assert.Contains(t, out, "check digit")
}

func TestCli_ImportExport(t *testing.T) {
	env := newCliEnv(t)
	src := filepath.Join(env.dir, "upload.csv")
	require.NoError(t, os.WriteFile(src, []byte("gtin,batch,expiry\n4006381333931,L1,2030-01-01\n1234567890123,L2,2030-01-01\n"), 0o644))

	out, err := env.run(t, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 valid rows (added: 1).")
	assert.Contains(t, out, "Dropped rows: invalid GTIN: 1")

	dst := filepath.Join(env.dir, "export.csv")
	_, err = env.run(t, "export", "--out", dst)
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBFsep=,\ngtin,batch,expiry,created_at\n"))

	out, err = env.run(t, "import", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "added: 0")

	_, err = env.run(t, "export", "--out", filepath.Join(env.dir, "x.pdf"), "--format", "pdf")
	assert.Error(t, err)
}

func TestCli_ImportCompressedExport(t *testing.T) {
	env := newCliEnv(t)
	_, err := env.run(t, "add", "4006381333931", "L1", "2030-01-01")
	require.NoError(t, err)

	dst := filepath.Join(env.dir, "items.csv.zst")
	_, err = env.run(t, "export", "--out", dst, "--format", "zst")
	require.NoError(t, err)

	other := newCliEnv(t)
	out, err := other.run(t, "import", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 valid rows (added: 1).")
}

func TestCli_EditKeepsUnchangedFields(t *testing.T) {
	env := newCliEnv(t)
	src := filepath.Join(env.dir, "upload.csv")
	require.NoError(t, os.WriteFile(src, []byte("gtin,batch,expiry\n4006381333931,L1,2030-01-01\n"), 0o644))
	_, err := env.run(t, "import", src)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.dir, "items.csv"))
	require.NoError(t, err)
	fields := strings.Split(strings.Split(strings.TrimSpace(string(data)), "\n")[1], ",")

	out, err := env.run(t, "edit", fields[0], fields[1], fields[2], fields[3], "--batch", "L9")
	require.NoError(t, err)
	assert.Contains(t, out, "updated 4006381333931 | L9 | 2030-01-01 | "+fields[3])
}

func TestCli_Settings(t *testing.T) {
	env := newCliEnv(t)

	out, err := env.run(t, "settings", "--enforce-future-expiry")
	require.NoError(t, err)
	assert.Contains(t, out, "enforce_future_expiry: true")
	assert.Contains(t, out, "auto_fix_gtin: false")

	out, err = env.run(t, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "enforce_future_expiry: true")

	_, err = env.run(t, "add", "4006381333931", "L1", "2000-01-01")
	assert.Error(t, err)
}

func TestCli_Version(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "dppmini dev\n", out.String())
}
