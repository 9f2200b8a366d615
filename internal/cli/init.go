package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberaid/internal/config"
)

// DefaultConfigPath is where init writes when neither an argument nor
// --config names a file.
const DefaultConfigPath = "cyberaid.yaml"

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force   bool
	Backend string
}

// InitResult is the JSON payload of a successful init.
type InitResult struct {
	ConfigPath  string `json:"config_path"`
	Storage     string `json:"storage"`
	Length      int    `json:"length"`
	GenesisHash string `json:"genesis_hash"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Write a config file and create the ledger",
		Long: `Write a default config file and open the ledger it names, creating the
genesis block if the ledger storage is empty.

The config format follows the file extension (.yaml, .yml or .toml).

Example:
  cyberaid init
  cyberaid init --backend sqlite /etc/cyberaid/cyberaid.toml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = DefaultConfigPath
			}
			return runInit(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&opts.Backend, "backend", config.BackendFile, "ledger backend (file|sqlite)")

	return cmd
}

func runInit(opts *InitOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if !slices.Contains([]string{config.BackendFile, config.BackendSQLite}, opts.Backend) {
		return f.Fail(ExitCommandError, ErrCodeConfig,
			fmt.Sprintf("invalid backend %q: must be file or sqlite", opts.Backend), nil)
	}

	cfg := config.Default()
	if opts.Backend == config.BackendSQLite {
		cfg.Ledger.Backend = config.BackendSQLite
		cfg.Ledger.Path = "./data/ledger.db"
	}

	if err := config.WriteFile(path, cfg, opts.Force); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return f.Fail(ExitCommandError, ErrCodeConfig,
				fmt.Sprintf("config %s already exists (use --force to overwrite)", path), nil)
		}
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write config", err)
	}
	f.VerboseLog("wrote config %s", path)

	appOpts := *opts.RootOptions
	appOpts.ConfigPath = path
	a, err := openApp(commandContext(cmd), &appOpts, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	blocks, err := a.chain.All()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "ledger not ready", err)
	}

	result := InitResult{
		ConfigPath:  path,
		Storage:     storageName(a),
		Length:      len(blocks),
		GenesisHash: blocks[0].Hash,
	}
	if opts.Format == "json" {
		return f.Success(result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Wrote config %s\n", result.ConfigPath)
	fmt.Fprintf(out, "✓ Ledger ready at %s (%d blocks)\n", result.Storage, result.Length)
	fmt.Fprintf(out, "  genesis %s\n", result.GenesisHash)
	return nil
}

// storageName describes where the ledger lives.
func storageName(a *app) string {
	return a.cfg.Ledger.Backend + ":" + a.cfg.Ledger.Path
}
