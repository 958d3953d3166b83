package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/pkg/db"
)

func historyCmd() *cobra.Command {
	var (
		limit      int
		source     string
		exportCSV  int64
		exportJSON int64
		exportAll  bool
		outFile    string
		deleteID   int64
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and export recorded snapshots",
		Long: `List snapshots recorded by "read --record" and "watch", or export one.

Examples:
  # Last 20 snapshots
  memprobe history

  # Export snapshot 4 as CSV
  memprobe history --export-csv 4 --out snapshot4.csv

  # Export every snapshot
  memprobe history --export-all > history.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			out := cmd.OutOrStdout()
			if outFile != "" && (exportCSV > 0 || exportJSON > 0 || exportAll) {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			switch {
			case deleteID > 0:
				if err := database.DeleteSnapshot(deleteID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted snapshot %d\n", deleteID)
				return nil
			case exportCSV > 0:
				return database.ExportCSV(out, exportCSV)
			case exportJSON > 0:
				return database.ExportJSON(out, exportJSON)
			case exportAll:
				return database.ExportAllCSV(out)
			}

			snaps, err := database.ListSnapshots(db.SnapshotFilter{Source: source, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No snapshots recorded")
				return nil
			}
			printSnapshots(out, snaps)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of snapshots to list")
	cmd.Flags().StringVar(&source, "source", "", "Only list snapshots from this source (hardware, driver, dry-run)")
	cmd.Flags().Int64Var(&exportCSV, "export-csv", 0, "Export snapshot ID as CSV")
	cmd.Flags().Int64Var(&exportJSON, "export-json", 0, "Export snapshot ID as JSON")
	cmd.Flags().BoolVar(&exportAll, "export-all", false, "Export all snapshots as CSV")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the export to this file instead of stdout")
	cmd.Flags().Int64Var(&deleteID, "delete", 0, "Delete snapshot ID")

	return cmd
}
