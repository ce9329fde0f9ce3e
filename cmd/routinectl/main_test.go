package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pushDay = `id: push-day
name: Push day
day: "2026-03-02"
items:
  - id: bench
    name: Bench
    sets: 5
    reps: 5
  - group: Superset A
    key: ss
    superset: true
    exercises:
      - id: dips
        name: Dips
      - id: fly
        name: Fly
`

// run executes routinectl against dbPath and returns stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "push.yaml")
	require.NoError(t, os.WriteFile(file, []byte(pushDay), 0o600))

	dbPath := filepath.Join(dir, "routines.db")
	out, err := run(t, dbPath, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported push-day (version 1, 3 exercises)\n", out)
	return dbPath
}

func TestShow(t *testing.T) {
	dbPath := setup(t)

	out, err := run(t, dbPath, "show", "push-day")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Push day (2026-03-02)  v1, 3 exercises", lines[0])
	assert.Contains(t, lines[1], "root-exercise-bench")
	assert.Contains(t, lines[1], "Bench 5x5")
	assert.Contains(t, lines[2], "root-group-ss")
	assert.Contains(t, lines[2], "[superset]")
	assert.True(t, strings.HasPrefix(lines[3], "    root-group-ss-exercise-dips"), lines[3])
}

func TestMoveThenExport(t *testing.T) {
	dbPath := setup(t)

	out, err := run(t, dbPath, "move", "push-day", "root-group-ss-exercise-fly", "root-exercise-bench")
	require.NoError(t, err)
	assert.Equal(t, "moved (version 2)\n", out)

	// A group cannot be nested.
	out, err = run(t, dbPath, "move", "push-day", "root-group-ss", "root-group-ss-exercise-dips")
	require.NoError(t, err)
	assert.Equal(t, "unchanged\n", out)

	out, err = run(t, dbPath, "export", "push-day")
	require.NoError(t, err)
	fly := strings.Index(out, "id: fly")
	bench := strings.Index(out, "id: bench")
	dips := strings.Index(out, "id: dips")
	require.NotEqual(t, -1, fly)
	assert.Less(t, fly, bench)
	assert.Less(t, bench, dips)
}

func TestExportImportRoundTrip(t *testing.T) {
	dbPath := setup(t)
	file := filepath.Join(t.TempDir(), "out.yaml")

	_, err := run(t, dbPath, "export", "push-day", "-o", file)
	require.NoError(t, err)

	// Re-importing an unchanged export keeps the version.
	out, err := run(t, dbPath, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported push-day (version 1, 3 exercises)\n", out)
}

func TestList(t *testing.T) {
	dbPath := setup(t)

	out, err := run(t, dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "push-day")
	assert.Contains(t, out, "2026-03-02")
}

func TestErrors(t *testing.T) {
	dbPath := setup(t)

	_, err := run(t, dbPath, "show", "nope")
	assert.ErrorContains(t, err, "routine not found")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\nday: tomorrow\n"), 0o600))
	_, err = run(t, dbPath, "import", bad)
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	_, err = run(t, dbPath, "move", "push-day")
	assert.Error(t, err)
}
