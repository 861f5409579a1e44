package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	extractText string
	extractFile string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the tracking numbers found in text or a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := readIdentifiers(extractText, extractFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		for _, id := range ids {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractText, "text", "", "tracking numbers separated by commas or newlines")
	extractCmd.Flags().StringVar(&extractFile, "file", "", "text, csv, xlsx or xls file of tracking numbers (- for stdin)")
	rootCmd.AddCommand(extractCmd)
}
