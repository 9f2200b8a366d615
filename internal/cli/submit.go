package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cyberaid/internal/intake"
	"github.com/roach88/cyberaid/internal/report"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	File   string
	Fields report.Fields
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a report and anchor it in the ledger",
		Long: `Store an incident report in the record store, then anchor a snapshot of it
as a new ledger block.

Fields come from --file (YAML or JSON keyed by report_id, name, mobile,
place, incident_date, reporting_date, description, crime_type,
extracted_text) and/or flags; a flag overrides the file. "--file -" reads
stdin. The report id defaults to a new UUIDv7 and the reporting date to
today.

If the report is stored but the ledger write fails, submit exits with
code 3; anchor the report later with "cyberaid anchor <report-id>".

Example:
  cyberaid submit --file report.yaml
  cyberaid submit --name Alice --mobile "+91 98765 43210" --place Pune \
    --incident-date 2025-01-10 --crime-type phishing --description "Fake bank SMS"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.File, "file", "f", "", "report file (YAML or JSON, - for stdin)")
	fl.StringVar(&opts.Fields.ReportID, "id", "", "report id (default: new UUIDv7)")
	fl.StringVar(&opts.Fields.Name, "name", "", "reporter name")
	fl.StringVar(&opts.Fields.Mobile, "mobile", "", "reporter mobile number")
	fl.StringVar(&opts.Fields.Place, "place", "", "place of the incident")
	fl.StringVar(&opts.Fields.IncidentDate, "incident-date", "", "incident date (YYYY-MM-DD)")
	fl.StringVar(&opts.Fields.ReportingDate, "reporting-date", "", "reporting date (YYYY-MM-DD, default today)")
	fl.StringVar(&opts.Fields.Description, "description", "", "what happened")
	fl.StringVar(&opts.Fields.CrimeType, "crime-type", "", "crime category")
	fl.StringVar(&opts.Fields.ExtractedText, "extracted-text", "", "OCR text extracted from evidence")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	fields, err := submittedFields(opts, cmd)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalid, "failed to read report", err)
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.workflow.Submit(ctx, fields)
	if err != nil {
		return reportError(f, "report not submitted", err)
	}
	return writeOutcome(f, cmd.OutOrStdout(), out)
}

// submittedFields merges --file with the field flags that were set.
func submittedFields(opts *SubmitOptions, cmd *cobra.Command) (report.Fields, error) {
	var fields report.Fields
	if opts.File != "" {
		var err error
		if fields, err = readReportFile(opts.File, cmd.InOrStdin()); err != nil {
			return report.Fields{}, err
		}
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	override("id", &fields.ReportID, opts.Fields.ReportID)
	override("name", &fields.Name, opts.Fields.Name)
	override("mobile", &fields.Mobile, opts.Fields.Mobile)
	override("place", &fields.Place, opts.Fields.Place)
	override("incident-date", &fields.IncidentDate, opts.Fields.IncidentDate)
	override("reporting-date", &fields.ReportingDate, opts.Fields.ReportingDate)
	override("description", &fields.Description, opts.Fields.Description)
	override("crime-type", &fields.CrimeType, opts.Fields.CrimeType)
	override("extracted-text", &fields.ExtractedText, opts.Fields.ExtractedText)

	if fields.ReportingDate == "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		fields.ReportingDate = report.Date(now().UTC())
	}
	return fields, nil
}

// readReportFile decodes a YAML (or JSON) report; "-" reads stdin.
func readReportFile(path string, stdin io.Reader) (report.Fields, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return report.Fields{}, err
	}

	var fields report.Fields
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return report.Fields{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return fields, nil
}

// writeOutcome prints a submission or re-anchor outcome. Partial success
// returns an ExitPartial error after printing.
func writeOutcome(f *OutputFormatter, w io.Writer, out intake.Outcome) error {
	if out.Partial() {
		if f.Format == "json" {
			if err := f.Partial(ErrCodeNotAnchored, out, out.Message); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(w, "✗ %s\n", out.Message)
			fmt.Fprintf(w, "  report  %s\n", out.ReportID)
			fmt.Fprintf(w, "  cause   %s\n", out.Cause)
			fmt.Fprintf(w, "  retry with: cyberaid anchor %s\n", out.ReportID)
		}
		return NewExitError(ExitPartial, out.Message)
	}

	if f.Format == "json" {
		return f.Success(out)
	}
	fmt.Fprintf(w, "✓ %s\n", out.Message)
	fmt.Fprintf(w, "  report  %s\n", out.ReportID)
	fmt.Fprintf(w, "  block   %d %s\n", out.Block.Index, out.Block.Hash)
	return nil
}
