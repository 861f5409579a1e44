package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/track-cli/internal/extract"
	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/internal/normalize"
)

var showCmd = &cobra.Command{
	Use:   "show <tracking-number>",
	Short: "Show one shipment with its scan history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("track"); err != nil {
			return err
		}

		id := strings.TrimSpace(args[0])
		if !extract.Valid(id) {
			return eris.Errorf("show: %q is not a tracking number", id)
		}

		payload, err := newCarrierClient(cfg.Carrier).Track(cmd.Context(), id)
		if err != nil {
			return eris.Wrap(err, "show")
		}
		if payload == nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No tracking data found for %s.\n", id)
			return nil
		}

		rec := normalize.Record(model.TrackingResult{Identifier: id, Payload: payload})
		formatShipment(cmd.OutOrStdout(), rec, normalize.Activities(payload))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
