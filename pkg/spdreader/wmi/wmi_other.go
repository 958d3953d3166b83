//go:build !windows
// +build !windows

package wmi

import (
	"fmt"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/option"
)

// GHWReader implements Reader from the DMI tables ghw exposes.
type GHWReader struct{}

// New creates a reader for non-Windows platforms
func New() (Reader, error) {
	return &GHWReader{}, nil
}

// ReadSlots lists the memory modules ghw can see. Type and speed are not
// available from this source and are left empty.
func (r *GHWReader) ReadSlots() ([]Slot, error) {
	memInfo, err := ghw.Memory(option.WithDisableTools())
	if err != nil {
		return nil, fmt.Errorf("could not retrieve memory information: %w", err)
	}

	slots := make([]Slot, 0, len(memInfo.Modules))
	for i, m := range memInfo.Modules {
		if m == nil || m.SizeBytes <= 0 {
			continue
		}
		slots = append(slots, Slot{
			Index:         i,
			BankLabel:     cleanString(m.Label),
			DeviceLocator: cleanString(m.Location),
			CapacityBytes: uint64(m.SizeBytes),
			Manufacturer:  cleanString(m.Vendor),
			Serial:        cleanString(m.SerialNumber),
		})
	}
	return slots, nil
}
