package cli

import (
	"github.com/spf13/cobra"
)

// NewAnchorCommand creates the anchor command.
func NewAnchorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchor <report-id>",
		Short: "Anchor a stored report in the ledger",
		Long: `Append a snapshot of an already-stored report as a new ledger block.

Use this after a submit that exited with code 3, or to anchor the current
state of a report again. Every call appends a new block.

Example:
  cyberaid anchor 0193f1a2-7c1e-7b3a-9a55-2f4f6d1c8e21`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnchor(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runAnchor(opts *RootOptions, reportID string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.workflow.Anchor(ctx, reportID)
	if err != nil {
		return reportError(f, "report not anchored", err)
	}
	return writeOutcome(f, cmd.OutOrStdout(), out)
}
