package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberaid/internal/store"
)

// ReportsResult is the JSON payload of the reports command.
type ReportsResult struct {
	Count      int                  `json:"count"`
	Unanchored int                  `json:"unanchored"`
	Reports    []store.ReportRecord `json:"reports"`
}

// NewReportsCommand creates the reports command.
func NewReportsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List stored reports and their ledger anchors",
		Long: `List every stored report, oldest first, with the ledger block that
anchors it. Reports stored while the ledger was failing show as
"not anchored"; anchor them with "cyberaid anchor <report-id>".

Example:
  cyberaid reports
  cyberaid reports --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReports(rootOpts, cmd)
		},
	}
	return cmd
}

func runReports(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.records.ListReports(ctx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to list reports", err)
	}

	result := ReportsResult{Count: len(reports), Reports: reports}
	for _, r := range reports {
		if !r.Anchored() {
			result.Unanchored++
		}
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	outputReportsText(cmd.OutOrStdout(), result)
	return nil
}

func outputReportsText(w io.Writer, result ReportsResult) {
	fmt.Fprintf(w, "Reports: %d (%d not anchored)\n", result.Count, result.Unanchored)

	for _, r := range result.Reports {
		fmt.Fprintln(w)
		if r.Anchored() {
			fmt.Fprintf(w, "✓ %s\n", r.Fields.ReportID)
		} else {
			fmt.Fprintf(w, "✗ %s\n", r.Fields.ReportID)
		}
		fmt.Fprintf(w, "  %s, %s, %s\n", r.Fields.CrimeType, r.Fields.Place, r.Fields.IncidentDate)
		fmt.Fprintf(w, "  stored  %s\n", r.CreatedAt)
		if r.Anchored() {
			fmt.Fprintf(w, "  block   %d %s\n", r.Anchor.Index, r.Anchor.Hash)
		} else {
			fmt.Fprintln(w, "  block   not anchored")
		}
	}
}
