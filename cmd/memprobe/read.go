package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/internal/version"
	"github.com/mscrnt/memprobe/pkg/db"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/spdreader/wmi"
	"github.com/mscrnt/memprobe/pkg/timings"
)

func readCmd() *cobra.Command {
	var (
		save   bool
		record bool
		detail bool
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read and summarize the SPD of every slot",
		Long: `Read the SPD EEPROM at addresses 0x50-0x57 and print a summary per slot.

Examples:
  # Summarize all slots
  memprobe read

  # Decode part number, serial and timings in clocks, and save dimmN.spd files
  memprobe read --detail --save

  # Try it without hardware
  memprobe --dry-run read --record`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, source, err := openClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			acq, err := client.ReadAll()
			if err != nil {
				return fmt.Errorf("failed to read SPD data: %w", err)
			}

			out := cmd.OutOrStdout()
			printSummary(out, acq, platformSlots())
			printSlotErrors(cmd.ErrOrStderr(), acq)

			if detail {
				for _, img := range acq.Valid() {
					m, err := img.Module()
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Slot %d: %v\n", img.Slot, err)
						continue
					}
					printModule(out, img.Slot, m)
				}
			}

			if save {
				if err := saveImages(cmd, acq); err != nil {
					return err
				}
			}

			if record {
				database, err := openDB()
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()

				var rt *timings.RamTimings
				if t, err := client.Read(); err != nil {
					logger.Printf("timings unavailable: %v", err)
				} else {
					rt = &t
				}

				snap, err := database.CreateSnapshot(source, acq, nil, rt, db.JSONData{"version": version.Get().Short()})
				if err != nil {
					return fmt.Errorf("failed to record snapshot: %w", err)
				}
				fmt.Fprintf(out, "Recorded snapshot %d (%s)\n", snap.ID, snap.GetStatus())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save each valid image to the output directory")
	cmd.Flags().BoolVar(&record, "record", false, "Record the pass in the history database")
	cmd.Flags().BoolVar(&detail, "detail", false, "Print the detailed JEDEC decode of each module")

	return cmd
}

func dumpCmd() *cobra.Command {
	var slot int

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Hex dump SPD images",
		Long: `Print a hex and ASCII listing of each valid SPD image, 16 bytes per row.

Examples:
  memprobe dump
  memprobe dump --slot 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if slot < -1 || slot >= spdreader.SlotCount {
				return fmt.Errorf("slot must be between 0 and %d", spdreader.SlotCount-1)
			}

			acq, _, err := acquire()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printed := 0
			for _, img := range acq.Valid() {
				if slot >= 0 && img.Slot != slot {
					continue
				}
				fmt.Fprintf(out, "Slot %d (0x%02X), %d bytes\n", img.Slot, img.Address(), img.Length)
				fmt.Fprint(out, img.Dump())
				fmt.Fprintln(out)
				printed++
			}
			if printed == 0 {
				fmt.Fprintln(out, "No SPD data")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&slot, "slot", -1, "Only dump this slot")
	return cmd
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save each valid SPD image as dimmN.spd",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acq, _, err := acquire()
			if err != nil {
				return err
			}
			printSlotErrors(cmd.ErrOrStderr(), acq)
			return saveImages(cmd, acq)
		},
	}
}

func saveImages(cmd *cobra.Command, acq spdreader.Acquisition) error {
	paths, err := spdreader.PersistAll(cfg.OutputDir, acq)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", p)
	}
	if err != nil {
		return fmt.Errorf("failed to save SPD images: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No valid SPD images to save")
	}
	return nil
}

var artifactPattern = regexp.MustCompile(`^dimm(\d)\.spd$`)

func decodeCmd() *cobra.Command {
	var slot int

	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode saved SPD images",
		Long: `Decode dimmN.spd files written by "read --save" or "save".
The slot is taken from the file name unless --slot is given.

Examples:
  memprobe decode spd/dimm0.spd spd/dimm2.spd
  memprobe decode --slot 1 module.bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var acq spdreader.Acquisition
			for i := range acq.Images {
				acq.Images[i].Slot = i
			}

			out := cmd.OutOrStdout()
			for _, path := range args {
				n := slot
				if n < 0 {
					n = slotFromName(path)
				}
				img, err := spdreader.LoadImage(path, n)
				if err != nil {
					return err
				}
				acq.Images[img.Slot] = img

				m, err := img.Module()
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					continue
				}
				printModule(out, img.Slot, m)
			}

			fmt.Fprintln(out)
			printSummary(out, acq, nil)
			return nil
		},
	}

	cmd.Flags().IntVar(&slot, "slot", -1, "Slot to attribute the images to")
	return cmd
}

func slotFromName(path string) int {
	m := artifactPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// platformSlots returns the firmware slot list, or nil when it is unavailable
// or the bus is simulated.
func platformSlots() []wmi.Slot {
	if cfg.DryRun {
		return nil
	}
	r, err := wmi.New()
	if err != nil {
		return nil
	}
	slots, err := r.ReadSlots()
	if err != nil {
		if verbose {
			logger.Printf("slot labels unavailable: %v", err)
		}
		return nil
	}
	return slots
}
