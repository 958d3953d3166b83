// Package timings handles the memory controller timing record: its wire
// codec, the per-vendor decoders that fill it, and the optimization and
// safety checks run on top of it.
package timings

import (
	"errors"
	"fmt"
)

// RecordSize is the packed size of a RamTimings record on the wire.
const RecordSize = 31

// DDR generations as carried in RamTimings.DDRVersion
const (
	DDR4 = 4
	DDR5 = 5
)

// ErrUnsupportedVendor is returned when no decoder is registered for the CPU vendor.
var ErrUnsupportedVendor = errors.New("unsupported CPU vendor")

// RamTimings is the controller-level timing snapshot. Timings are in memory
// clocks, voltages in volts.
type RamTimings struct {
	DDRVersion uint8   `json:"ddrVersion"`
	TCL        uint16  `json:"tCL"`
	TRCD       uint16  `json:"tRCD"`
	TRP        uint16  `json:"tRP"`
	TRAS       uint16  `json:"tRAS"`
	TRFC       uint32  `json:"tRFC"`
	TFAW       uint16  `json:"tFAW"`
	TRCDRD     uint16  `json:"tRCDRD"`
	TRCDWR     uint16  `json:"tRCDWR"`
	VDD        float32 `json:"vdd"`
	VDDQ       float32 `json:"vddq"`
	VPP        float32 `json:"vpp"`
}

// Generation returns "DDR4", "DDR5" or "DDR?" for unknown versions.
func (t RamTimings) Generation() string {
	switch t.DDRVersion {
	case DDR4:
		return "DDR4"
	case DDR5:
		return "DDR5"
	default:
		return fmt.Sprintf("DDR%d?", t.DDRVersion)
	}
}

// Primary renders the usual CL-RCD-RP-RAS quad.
func (t RamTimings) Primary() string {
	return fmt.Sprintf("%d-%d-%d-%d", t.TCL, t.TRCD, t.TRP, t.TRAS)
}
