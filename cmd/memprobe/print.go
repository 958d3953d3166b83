package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mscrnt/memprobe/pkg/db"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/spdreader/parser"
	"github.com/mscrnt/memprobe/pkg/spdreader/wmi"
	"github.com/mscrnt/memprobe/pkg/timings"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// printSummary renders one row per slot. Empty slots are listed so the
// report always accounts for all eight addresses.
func printSummary(w io.Writer, acq spdreader.Acquisition, slots []wmi.Slot) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Slot", "Addr", "Label", "Type", "Size", "Manufacturer", "tCL", "tRCD", "tRP", "tRAS"})

	for i, img := range acq.Images {
		label := ""
		if s, ok := wmi.Lookup(slots, i); ok {
			label = s.Label()
		}
		addr := fmt.Sprintf("0x%02X", spdreader.SlaveAddress(i))

		if !img.Valid {
			status := "empty"
			if acq.Errors[i] != nil {
				status = "error"
			}
			t.AppendRow(table.Row{i, addr, label, status, "", "", "", "", "", ""})
			continue
		}

		s := img.Summary()
		t.AppendRow(table.Row{
			i, addr, label, s.DDRType,
			humanize.IBytes(s.SizeMB << 20),
			manufacturerName(s.Manufacturer),
			s.TCL, s.TRCD, s.TRP, s.TRAS,
		})
	}
	t.Render()
}

func manufacturerName(m parser.Manufacturer) string {
	if m.Specified && m.Name != "" {
		return m.Name
	}
	return m.String()
}

// printSlotErrors lists the reason of every slot that failed mid-read.
func printSlotErrors(w io.Writer, acq spdreader.Acquisition) {
	for i, err := range acq.Errors {
		if err != nil {
			fmt.Fprintf(w, "Slot %d: %v\n", i, err)
		}
	}
}

func printModule(w io.Writer, slot int, m *parser.Module) {
	fmt.Fprintf(w, "\nSlot %d: %s-%d (PC%d-%d)\n", slot, m.Type, m.DataRateMTs, generationNumber(m.Type), m.PCRate)

	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Capacity", fmt.Sprintf("%.0f GB", m.CapacityGB)},
		{"Ranks", m.Ranks},
		{"Bus width", fmt.Sprintf("%d bit", m.DataWidth)},
		{"Manufacturer", m.JEDECManufacturer},
		{"Part number", m.PartNumber},
		{"Serial", m.Serial},
		{"Manufactured", m.ManufacturingDate},
		{"Timings", fmt.Sprintf("%d-%d-%d-%d", m.Timings.CL, m.Timings.RCD, m.Timings.RP, m.Timings.RAS)},
		{"tRC / tRFC", fmt.Sprintf("%d / %d", m.Timings.RC, m.Timings.RFC)},
		{"tRRD_S / tRRD_L / tFAW", fmt.Sprintf("%d / %d / %d", m.Timings.RRDS, m.Timings.RRDL, m.Timings.FAW)},
	})
	t.Render()
}

func generationNumber(kind string) int {
	switch kind {
	case "DDR5", "LPDDR5":
		return 5
	case "DDR3":
		return 3
	default:
		return 4
	}
}

// printTimings renders current and optimized records side by side.
func printTimings(w io.Writer, current, optimized timings.RamTimings) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Timing", "Current", "Optimized"})
	t.AppendRows([]table.Row{
		{"Generation", current.Generation(), optimized.Generation()},
		{"tCL", current.TCL, optimized.TCL},
		{"tRCD", current.TRCD, optimized.TRCD},
		{"tRP", current.TRP, optimized.TRP},
		{"tRAS", current.TRAS, optimized.TRAS},
		{"tRFC", current.TRFC, optimized.TRFC},
		{"tFAW", current.TFAW, optimized.TFAW},
		{"tRCD_RD", current.TRCDRD, optimized.TRCDRD},
		{"tRCD_WR", current.TRCDWR, optimized.TRCDWR},
		{"VDD", volts(current.VDD), volts(optimized.VDD)},
		{"VDDQ", volts(current.VDDQ), volts(optimized.VDDQ)},
		{"VPP", volts(current.VPP), volts(optimized.VPP)},
	})
	t.Render()
}

func volts(v float32) string {
	return fmt.Sprintf("%.3f V", v)
}

func printSnapshots(w io.Writer, snaps []*db.Snapshot) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Taken", "Source", "Valid", "Failed", "Status"})
	for _, s := range snaps {
		t.AppendRow(table.Row{
			s.ID,
			humanize.Time(s.TakenAt),
			s.Source,
			s.ValidSlots,
			s.FailedSlots,
			s.GetStatus(),
		})
	}
	t.Render()
}

func printInventory(w io.Writer, slots []wmi.Slot) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Slot", "Label", "Type", "Size", "Speed", "Manufacturer", "Part", "Serial"})
	for _, s := range slots {
		speed := ""
		if s.SpeedMTs > 0 {
			speed = fmt.Sprintf("%d MT/s", s.SpeedMTs)
		}
		t.AppendRow(table.Row{
			s.Index, s.Label(), s.Type,
			humanize.IBytes(s.CapacityBytes),
			speed, s.Manufacturer, s.PartNumber, s.Serial,
		})
	}
	t.Render()
}
