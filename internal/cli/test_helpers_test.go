package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberaid/internal/config"
	"github.com/roach88/cyberaid/internal/testutil"
)

// genesisAtEpoch is the genesis fingerprint when the chain is created at
// testutil.Epoch.
const genesisAtEpoch = "9b3fa7d477a0a9d56276234616da8e8ab6ac14f5c9195ff884cad3ad2e0370b9"

// cliEnv is a config file plus the storage it points at, all under one
// temp directory.
type cliEnv struct {
	dir         string
	configPath  string
	ledgerPath  string
	recordsPath string
	clock       *testutil.StepClock
	ids         *testutil.SequenceIDs
}

// newCLIEnv writes a YAML config for backend with absolute storage paths.
// Storage is created lazily by the first command.
func newCLIEnv(t *testing.T, backend string) *cliEnv {
	t.Helper()
	clearConfigEnv(t)

	dir := t.TempDir()
	env := &cliEnv{
		dir:         dir,
		configPath:  filepath.Join(dir, "cyberaid.yaml"),
		recordsPath: filepath.Join(dir, "records", "records.db"),
		clock:       testutil.NewDefaultClock(),
		ids:         testutil.NewSequenceIDs("rep"),
	}
	if backend == config.BackendSQLite {
		env.ledgerPath = filepath.Join(dir, "ledger", "ledger.db")
	} else {
		env.ledgerPath = filepath.Join(dir, "ledger", "blockchain.json")
	}

	cfg := config.Default()
	cfg.Ledger.Backend = backend
	cfg.Ledger.Path = env.ledgerPath
	cfg.Records.Path = env.recordsPath
	cfg.Log.Level = "error"
	require.NoError(t, config.WriteFile(env.configPath, cfg, false))
	return env
}

// setResetOnCorrupt rewrites the config with the reset acknowledgment.
func (e *cliEnv) setResetOnCorrupt(t *testing.T) {
	t.Helper()
	cfg, err := config.Load(e.configPath)
	require.NoError(t, err)
	cfg.Ledger.ResetOnCorrupt = true
	require.NoError(t, config.WriteFile(e.configPath, cfg, true))
}

func (e *cliEnv) opts(format string) *RootOptions {
	return &RootOptions{
		Format:     format,
		ConfigPath: e.configPath,
		Now:        e.clock.Now,
		NewID:      e.ids.Next,
	}
}

// run executes the command built by newCmd and returns its stdout.
func (e *cliEnv) run(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	return runCommand(t, newCmd(e.opts(format)), args...)
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	return runCommandWithInput(t, cmd, "", args...)
}

// runCommandWithInput is runCommand with stdin.
func runCommandWithInput(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return buf.String(), err
}

// submitArgs returns flags for a valid report with the given id.
func submitArgs(id string) []string {
	return []string{
		"--id", id,
		"--name", "Alice",
		"--mobile", "+91 98765 43210",
		"--place", "Pune",
		"--incident-date", "2025-01-10",
		"--reporting-date", "2025-01-11",
		"--description", "Fake bank SMS",
		"--crime-type", "phishing",
	}
}

// decodeResponse parses one JSON CLIResponse and re-decodes its data into
// out when out is non-nil.
func decodeResponse(t *testing.T, output string, out any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	if out != nil && resp.Data != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return resp
}

// editChainFile rewrites one JSON field of block i in a file-backed chain.
func editChainFile(t *testing.T, path string, i int, key string, value any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(data, &blocks))
	require.Less(t, i, len(blocks), "chain has %d blocks", len(blocks))
	blocks[i][key] = value

	data, err = json.MarshalIndent(blocks, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvLedgerBackend, config.EnvLedgerPath, config.EnvResetOnCorrupt,
		config.EnvRecordsPath, config.EnvSchemaPath, config.EnvLogLevel, config.EnvLogFormat,
	} {
		t.Setenv(k, "")
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, GetExitCode(err), fmt.Sprintf("error: %v", err))
}
