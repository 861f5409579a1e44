package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/track-cli/internal/export"
	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/internal/normalize"
	"github.com/sells-group/track-cli/internal/tracking"
)

var (
	trackText          string
	trackFile          string
	trackExport        string
	trackFormat        string
	trackDelay         time.Duration
	trackAbortInFlight bool
	trackDryRun        bool
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track a batch of shipments",
	Long:  "Looks up every tracking number in order, printing progress as it goes. Ctrl-C stops the batch; results gathered so far are still printed and exported.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("track"); err != nil {
			return err
		}
		if err := checkFormat(trackFormat); err != nil {
			return err
		}

		ids, err := readIdentifiers(trackText, trackFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		if trackDryRun {
			for _, id := range ids {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		delay := cfg.Batch.Delay()
		if cmd.Flags().Changed("delay") {
			delay = trackDelay
		}

		stderr := cmd.ErrOrStderr()
		client := newCarrierClient(cfg.Carrier)
		out, err := tracking.Run(ctx, ids, client.Track, tracking.Options{
			Delay:         delay,
			AbortInFlight: cfg.Batch.AbortInFlight || trackAbortInFlight,
			OnResult: func(r model.TrackingResult) {
				rec := normalize.Record(r)
				_, _ = fmt.Fprintf(stderr, "%-20s %s\n", r.Identifier, rec.Status)
			},
			OnProgress: func(p model.Progress) {
				_, _ = fmt.Fprintf(stderr, "[%d/%d] %3.0f%%\n", p.Completed, p.Total, p.Fraction*100)
			},
		})
		if err != nil {
			return eris.Wrap(err, "track")
		}

		records := normalize.Records(out.Results)
		if len(records) > 0 {
			if err := writeRecords(cmd.OutOrStdout(), trackFormat, records); err != nil {
				return err
			}
		}
		formatSummary(stderr, len(ids), out)

		if trackExport == "" {
			return nil
		}
		err = export.WriteFile(trackExport, records, export.WithSheetName(cfg.Export.SheetName))
		switch {
		case errors.Is(err, export.ErrNoData):
			_, _ = fmt.Fprintln(stderr, "Nothing to export.")
			return nil
		case err != nil:
			return eris.Wrap(err, "track export")
		}
		zap.L().Info("export written",
			zap.String("path", trackExport),
			zap.Int("records", len(records)),
		)
		_, _ = fmt.Fprintf(stderr, "Exported %d rows to %s\n", len(records), trackExport)
		return nil
	},
}

func init() {
	trackCmd.Flags().StringVar(&trackText, "text", "", "tracking numbers separated by commas or newlines")
	trackCmd.Flags().StringVar(&trackFile, "file", "", "text, csv, xlsx or xls file of tracking numbers (- for stdin)")
	trackCmd.Flags().StringVar(&trackExport, "export", "", "write results to this .xlsx file")
	trackCmd.Flags().StringVar(&trackFormat, "format", formatTable, "output format: table, json or yaml")
	trackCmd.Flags().DurationVar(&trackDelay, "delay", tracking.DefaultDelay, "pause between lookups (default from config)")
	trackCmd.Flags().BoolVar(&trackAbortInFlight, "abort-in-flight", false, "abort the in-progress lookup on cancel")
	trackCmd.Flags().BoolVar(&trackDryRun, "dry-run", false, "print extracted tracking numbers without looking them up")
	rootCmd.AddCommand(trackCmd)
}
