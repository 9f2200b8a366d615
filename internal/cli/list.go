package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberaid/internal/canon"
	"github.com/roach88/cyberaid/internal/ledger"
	"github.com/roach88/cyberaid/internal/report"
)

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Length int             `json:"length"`
	Blocks []ledger.Record `json:"blocks"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every block in the ledger",
		Long: `Print the ledger in order, genesis first. With --format json the blocks
are emitted in their stored form (index, previous_hash, timestamp, data,
hash).

Example:
  cyberaid list
  cyberaid list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	a, err := openApp(commandContext(cmd), opts, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.service.ListChain()
	if err != nil {
		return reportError(f, "failed to list ledger", err)
	}

	if opts.Format == "json" {
		return f.Success(ListResult{Length: len(records), Blocks: records})
	}
	outputListText(cmd.OutOrStdout(), records, opts.Verbose)
	return nil
}

func outputListText(w io.Writer, records []ledger.Record, verbose bool) {
	fmt.Fprintf(w, "Ledger: %d block(s)\n", len(records))

	for _, r := range records {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%d] %s\n", r.Index, r.Timestamp)
		fmt.Fprintf(w, "  hash  %s\n", r.Hash)
		fmt.Fprintf(w, "  prev  %s\n", r.PreviousHash)
		fmt.Fprintf(w, "  data  %s\n", describePayload(r.Data, verbose))
	}
}

// describePayload summarizes a block payload: the genesis marker, a report
// id and crime type, or the canonical JSON for anything else.
func describePayload(v canon.Value, verbose bool) string {
	if s, ok := v.(canon.String); ok {
		return string(s)
	}
	if !verbose {
		if snap, err := report.FromPayload(v); err == nil {
			return fmt.Sprintf("report %s (%s)", snap.ID(), snap.Fields().CrimeType)
		}
	}
	data, err := canon.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return string(data)
}
