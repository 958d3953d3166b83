//go:build windows
// +build windows

package wmi

import (
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

// WMIReader implements Reader via Windows WMI
type WMIReader struct{}

// Win32_PhysicalMemory WMI class
type Win32_PhysicalMemory struct {
	BankLabel            string
	Capacity             uint64
	ConfiguredClockSpeed uint32
	DeviceLocator        string
	Manufacturer         string
	PartNumber           string
	SerialNumber         string
	SMBIOSMemoryType     uint32
	Speed                uint32
}

// New creates a new WMI reader
func New() (Reader, error) {
	return &WMIReader{}, nil
}

// ReadSlots queries Win32_PhysicalMemory. Entries are numbered in the order
// WMI returns them, which follows the SPD slot order on ICH boards.
func (r *WMIReader) ReadSlots() ([]Slot, error) {
	var results []Win32_PhysicalMemory

	q := wmi.CreateQuery(&results, "")
	if err := wmi.Query(q, &results); err != nil {
		return nil, fmt.Errorf("WMI query failed: %w", err)
	}

	slots := make([]Slot, 0, len(results))
	for i, mem := range results {
		// Skip empty slots
		if mem.Capacity == 0 {
			continue
		}

		speed := mem.Speed
		if speed == 0 {
			speed = mem.ConfiguredClockSpeed
		}

		slots = append(slots, Slot{
			Index:         i,
			BankLabel:     cleanString(mem.BankLabel),
			DeviceLocator: cleanString(mem.DeviceLocator),
			Type:          MemoryTypeName(mem.SMBIOSMemoryType),
			CapacityBytes: mem.Capacity,
			SpeedMTs:      int(speed),
			Manufacturer:  cleanString(mem.Manufacturer),
			PartNumber:    cleanString(mem.PartNumber),
			Serial:        cleanString(mem.SerialNumber),
		})
	}

	return slots, nil
}
