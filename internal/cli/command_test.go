package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/comphist/internal/comphist"
)

// newImage creates a pool image with three datasets; tank/b is damaged.
func newImage(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	manifests := map[string]string{
		"tank":   "blocks: []",
		"tank/a": "blocks: [{compress: lz4, lsize: 4096, psize: 1024}]",
		"tank/b": "blocks: [{compress: lz4, lsize: 4096, psize: 1024}, {fault: io}, {compress: zstd, lsize: 4096, psize: 512}]",
		"tank/c": "blocks: [{compress: zstd, lsize: 4096, psize: 512}]",
	}

	for name, content := range manifests {
		dir := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dataset.yaml"), []byte(content), 0o644))
	}

	return root
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := New("test").Command(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestCommand_PoolRequiresAllowLive(t *testing.T) {
	out, _, err := run(t, "--root", newImage(t), "tank")
	require.ErrorIs(t, err, comphist.ErrInvalidTarget)
	assert.Equal(t, 2, ExitCode(err))
	assert.Empty(t, out)
}

func TestCommand_BookmarkRejected(t *testing.T) {
	_, _, err := run(t, "--root", newImage(t), "--allow-live", "tank/a#mark")
	require.ErrorIs(t, err, comphist.ErrInvalidTarget)
}

func TestCommand_UsageErrors(t *testing.T) {
	_, _, err := run(t)
	assert.Equal(t, 2, ExitCode(err))

	_, _, err = run(t, "--no-such-flag", "tank")
	assert.Equal(t, 2, ExitCode(err))
}

func TestCommand_PerDatasetIsAllOrNothing(t *testing.T) {
	out, _, err := run(t, "--root", newImage(t), "--allow-live", "-p", "tank")
	require.ErrorIs(t, err, comphist.ErrIO)
	assert.Equal(t, 1, ExitCode(err))
	assert.Empty(t, out)

	out, _, err = run(t, "--root", newImage(t), "--allow-live", "-p", "--json", "tank")
	require.ErrorIs(t, err, comphist.ErrIO)
	assert.Empty(t, out)
}

func TestCommand_PerDatasetBestEffort(t *testing.T) {
	out, _, err := run(t, "--root", newImage(t), "--allow-live", "--best-effort", "-p", "tank")
	require.NoError(t, err)

	assert.Contains(t, out, "Dataset: tank\n")
	assert.Contains(t, out, "Dataset: tank/a\n")
	assert.Contains(t, out, "Dataset: tank/b\n")
	assert.Contains(t, out, "Dataset: tank/c\n")
	assert.Contains(t, out, "traversal errors: 1\n")
	assert.Contains(t, out, "\nlive mode enabled\n")
}

func TestCommand_AggregateJSON(t *testing.T) {
	out, _, err := run(t, "--root", newImage(t), "--allow-live", "--best-effort", "--json", "tank")
	require.NoError(t, err)

	assert.Contains(t, out, `"target": "tank"`)
	assert.Contains(t, out, `"mode": "live"`)
	assert.Contains(t, out, `"traversal_errors": 1`)
	assert.Contains(t, out, `"blocks": 4`)
}

func TestCommand_ConfigDefaults(t *testing.T) {
	root := newImage(t)
	cfgPath := filepath.Join(t.TempDir(), "comphist.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"root = \""+filepath.ToSlash(root)+"\"\nallow_live = true\nbest_effort = true\n"), 0o644))

	var stdout, stderr bytes.Buffer

	cmd := New("test").Command(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfgPath, "tank/b"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "traversal errors: 1\n")

	// An explicit flag wins over the config file.
	stdout.Reset()
	cmd = New("test").Command(&stdout, &stderr)
	cmd.SetArgs([]string{"--config", cfgPath, "--best-effort=false", "tank/b"})
	require.ErrorIs(t, cmd.Execute(), comphist.ErrIO)
}

func TestCommand_DebugLogging(t *testing.T) {
	_, stderr, err := run(t, "--root", newImage(t), "--allow-live", "--best-effort", "--debug", "tank/b")
	require.NoError(t, err)
	assert.Contains(t, stderr, "skipping damaged block")
}
