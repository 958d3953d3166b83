package main

import (
	"fmt"
	"io"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/pkg/timings"
)

func timingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timings",
		Short: "Show current and optimized memory timings",
		Long: `Read the memory controller timings, derive a tighter profile from the
configured optimize policy and list the safety warnings for it.

The optimized profile is advisory. memprobe never writes timings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			current, err := client.Read()
			if err != nil {
				return fmt.Errorf("failed to read timings: %w", err)
			}

			out := cmd.OutOrStdout()
			if !cfg.DryRun {
				printCPUBanner(out)
			}

			policy := cfg.Policy()
			optimized := timings.Optimize(current, policy)
			fmt.Fprintf(out, "%s %s\n", current.Generation(), current.Primary())
			printTimings(out, current, optimized)

			warnings := timings.Validate(current, optimized, policy)
			if len(warnings) == 0 {
				fmt.Fprintln(out, "No warnings")
				return nil
			}
			for _, w := range warnings {
				fmt.Fprintln(out, w.String())
			}
			return nil
		},
	}
}

func printCPUBanner(w io.Writer) {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		return
	}
	fmt.Fprintf(w, "CPU: %s (%s)\n", infos[0].ModelName, infos[0].VendorID)
}
