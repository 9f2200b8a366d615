package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberaid/internal/config"
	"github.com/roach88/cyberaid/internal/testutil"
)

// initOpts points init at a fresh config path inside dir. Default storage
// paths are relative, so the test runs from dir.
func initOpts(t *testing.T, format string) (*RootOptions, string) {
	t.Helper()
	clearConfigEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	return &RootOptions{Format: format, Now: testutil.NewDefaultClock().Now}, dir
}

func TestInitCommand_WritesConfigAndGenesis(t *testing.T) {
	opts, dir := initOpts(t, "text")

	output, err := runCommand(t, NewInitCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Wrote config cyberaid.yaml")
	assert.Contains(t, output, "✓ Ledger ready at file:./data/blockchain.json (1 blocks)")
	assert.Contains(t, output, genesisAtEpoch)

	cfg, err := config.Load(filepath.Join(dir, DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.FileExists(t, filepath.Join(dir, "data", "blockchain.json"))
	assert.FileExists(t, filepath.Join(dir, "data", "records.db"))
}

func TestInitCommand_JSON(t *testing.T) {
	opts, _ := initOpts(t, "json")

	output, err := runCommand(t, NewInitCommand(opts), "cyberaid.toml")
	require.NoError(t, err)

	var result InitResult
	resp := decodeResponse(t, output, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cyberaid.toml", result.ConfigPath)
	assert.Equal(t, 1, result.Length)
	assert.Equal(t, genesisAtEpoch, result.GenesisHash)
}

func TestInitCommand_SQLiteBackend(t *testing.T) {
	opts, dir := initOpts(t, "json")

	output, err := runCommand(t, NewInitCommand(opts), "--backend", "sqlite")
	require.NoError(t, err)

	var result InitResult
	decodeResponse(t, output, &result)
	assert.Equal(t, "sqlite:./data/ledger.db", result.Storage)
	assert.Equal(t, genesisAtEpoch, result.GenesisHash)
	assert.FileExists(t, filepath.Join(dir, "data", "ledger.db"))
}

func TestInitCommand_ExistingConfig(t *testing.T) {
	opts, dir := initOpts(t, "json")
	path := filepath.Join(dir, DefaultConfigPath)
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o644))

	output, err := runCommand(t, NewInitCommand(opts))
	requireExitCode(t, err, ExitCommandError)

	resp := decodeResponse(t, output, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "--force")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(data))
}

func TestInitCommand_ForceKeepsExistingChain(t *testing.T) {
	opts, _ := initOpts(t, "json")

	_, err := runCommand(t, NewInitCommand(opts))
	require.NoError(t, err)

	output, err := runCommand(t, NewInitCommand(opts), "--force")
	require.NoError(t, err)

	var result InitResult
	decodeResponse(t, output, &result)
	assert.Equal(t, 1, result.Length)
	assert.Equal(t, genesisAtEpoch, result.GenesisHash, "re-init must not replace the genesis block")
}

func TestInitCommand_InvalidBackend(t *testing.T) {
	opts, dir := initOpts(t, "text")

	output, err := runCommand(t, NewInitCommand(opts), "--backend", "s3")
	requireExitCode(t, err, ExitCommandError)
	assert.Contains(t, output, "Error [E002]")
	assert.NoFileExists(t, filepath.Join(dir, DefaultConfigPath))
}
