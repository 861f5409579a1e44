package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/internal/normalize"
	"github.com/sells-group/track-cli/internal/tracking"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// checkFormat rejects an output format writeRecords cannot render.
func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML, "":
		return nil
	default:
		return eris.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

// writeRecords renders records in the requested format.
func writeRecords(out io.Writer, format string, records []model.NormalizedRecord) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	switch format {
	case formatTable, "":
		formatRecordsTable(out, records)
		return nil
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}
	return nil
}

// formatRecordsTable writes the live table: one header line of column titles
// and one line per record.
func formatRecordsTable(out io.Writer, records []model.NormalizedRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(normalize.Columns, "\t"))
	for _, rec := range records {
		_, _ = fmt.Fprintln(w, strings.Join(normalize.DisplayRow(rec), "\t"))
	}
	_ = w.Flush()
}

// formatShipment writes the single-shipment detail view.
func formatShipment(out io.Writer, rec model.NormalizedRecord, activities []model.Activity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	row := normalize.DisplayRow(rec)
	for i, title := range normalize.Columns {
		v := row[i]
		if v == "" {
			v = "-"
		}
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", title, v)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	if len(activities) == 0 {
		_, _ = fmt.Fprintln(out, normalize.NoActivity)
		return
	}

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tTIME\tACTIVITY\tLOCATION")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t--------")
	for _, a := range activities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Date, a.Time, a.Description, location(a))
	}
	_ = w.Flush()
}

func location(a model.Activity) string {
	switch {
	case a.City != "" && a.Country != "":
		return a.City + ", " + a.Country
	case a.City != "":
		return a.City
	default:
		return a.Country
	}
}

// formatSummary writes the end-of-run summary with any per-item failures.
func formatSummary(out io.Writer, total int, o *tracking.Outcome) {
	var failed []model.TrackingResult
	for _, r := range o.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}

	_, _ = fmt.Fprintf(out, "Tracked %d of %d in %.2fs (%d failed)\n",
		len(o.Results), total, o.Elapsed.Seconds(), len(failed))
	if o.Cancelled {
		_, _ = fmt.Fprintln(out, "Run cancelled; showing partial results.")
	}
	for _, r := range failed {
		_, _ = fmt.Fprintf(out, "  %s: %s (%s)\n", r.Identifier, r.Err, r.Kind)
	}
}
