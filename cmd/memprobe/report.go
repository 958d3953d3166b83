package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/pkg/report"
)

func reportCmd() *cobra.Command {
	var (
		htmlOut string
		pdfOut  string
	)

	cmd := &cobra.Command{
		Use:   "report SNAPSHOT_ID",
		Short: "Generate an HTML or PDF report for a snapshot",
		Long: `Render a recorded snapshot: slot table, decoded modules, timings with the
optimized profile and its warnings. PDF output needs Chrome or Chromium.

Examples:
  memprobe report 3 --html snapshot3.html
  memprobe report 3 --pdf snapshot3.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot ID: %s", args[0])
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			gen := report.NewGenerator(database, cfg.Policy())

			if pdfOut != "" {
				if err := gen.QuickPDF(cmd.Context(), id, pdfOut); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", pdfOut)
				if htmlOut == "" {
					return nil
				}
			}

			html, err := gen.GenerateHTML(id)
			if err != nil {
				return err
			}
			if htmlOut == "" {
				fmt.Fprint(cmd.OutOrStdout(), html)
				return nil
			}
			if err := os.WriteFile(htmlOut, []byte(html), 0o600); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", htmlOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlOut, "html", "", "Write the HTML report to this file (default stdout)")
	cmd.Flags().StringVar(&pdfOut, "pdf", "", "Write a PDF report to this file")
	return cmd
}
