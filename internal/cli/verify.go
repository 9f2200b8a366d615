package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/cyberaid/internal/ledger"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	NoColor bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the ledger for tampering",
		Long: `Recompute every block fingerprint and check every link, starting at the
genesis block. Stops at the first violation and reports its index and
reason (BadGenesis, IndexGap, BrokenLink, HashMismatch, TimeRegression).

Exit codes:
  0 - ledger valid
  1 - integrity violation found
  2 - command error (bad config)

Example:
  cyberaid verify
  cyberaid verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	a, err := openApp(commandContext(cmd), opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.VerifyIntegrity()
	if err != nil {
		return reportError(f, "failed to verify ledger", err)
	}

	if opts.Format == "json" {
		if res.Valid {
			return f.Success(res)
		}
		return f.FailWith(ExitFailure, ErrCodeIntegrity, res.Err().Error(), res, res.Err())
	}

	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	if opts.NoColor {
		ok.DisableColor()
		bad.DisableColor()
	}

	w := cmd.OutOrStdout()
	if res.Valid {
		ok.Fprintf(w, "✓ Ledger valid (%d blocks)\n", res.Length)
		return nil
	}

	bad.Fprintf(w, "✗ Integrity violation at block %d: %s\n", res.Index, res.Reason)
	if res.Detail != "" {
		fmt.Fprintf(w, "  %s\n", res.Detail)
	}
	fmt.Fprintf(w, "  %s\n", reasonHint(res.Reason))
	return WrapExitError(ExitFailure, "ledger verification failed", res.Err())
}

// reasonHint explains a violation to an operator.
func reasonHint(r ledger.Reason) string {
	switch r {
	case ledger.ReasonHashMismatch:
		return "the block's contents were changed after it was written"
	case ledger.ReasonBrokenLink:
		return "the block no longer follows its predecessor"
	case ledger.ReasonIndexGap:
		return "a block was removed, inserted or reordered"
	case ledger.ReasonBadGenesis:
		return "the genesis block was replaced"
	case ledger.ReasonTimeRegression:
		return "the block is dated before its predecessor"
	default:
		return "unknown violation"
	}
}
