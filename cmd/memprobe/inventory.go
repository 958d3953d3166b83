package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/pkg/spdreader/wmi"
)

func inventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "List memory slots as reported by the firmware",
		Long: `List populated memory slots from SMBIOS (Win32_PhysicalMemory on Windows).
No bus access is needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := wmi.New()
			if err != nil {
				return err
			}
			slots, err := r.ReadSlots()
			if err != nil {
				return fmt.Errorf("failed to read memory inventory: %w", err)
			}

			out := cmd.OutOrStdout()
			printCPUBanner(out)
			if len(slots) == 0 {
				fmt.Fprintln(out, "No memory modules reported")
				return nil
			}
			printInventory(out, slots)
			return nil
		},
	}
}
