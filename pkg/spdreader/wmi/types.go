// Package wmi reports the firmware's view of the memory slots (bank labels,
// locators, capacity) used to annotate SPD reports.
package wmi

import (
	"fmt"
	"strings"
)

// Slot is one populated memory slot as reported by the platform.
type Slot struct {
	Index         int
	BankLabel     string
	DeviceLocator string
	Type          string
	CapacityBytes uint64
	SpeedMTs      int
	Manufacturer  string
	PartNumber    string
	Serial        string
}

// Label returns the locator shown in reports, e.g. "DIMM_A1".
func (s Slot) Label() string {
	switch {
	case s.DeviceLocator != "" && s.BankLabel != "":
		return s.BankLabel + "/" + s.DeviceLocator
	case s.DeviceLocator != "":
		return s.DeviceLocator
	default:
		return s.BankLabel
	}
}

// Reader interface for platform memory inventory
type Reader interface {
	ReadSlots() ([]Slot, error)
}

// Memory type constants from SMBIOS
const (
	SMBIOSMemoryTypeDDR2   = 19
	SMBIOSMemoryTypeDDR3   = 24
	SMBIOSMemoryTypeDDR4   = 26
	SMBIOSMemoryTypeLPDDR  = 28
	SMBIOSMemoryTypeLPDDR2 = 29
	SMBIOSMemoryTypeLPDDR3 = 30
	SMBIOSMemoryTypeLPDDR4 = 31
	SMBIOSMemoryTypeDDR5   = 34
	SMBIOSMemoryTypeLPDDR5 = 35
)

// MemoryTypeName converts an SMBIOS memory type to a readable name.
func MemoryTypeName(smbiosType uint32) string {
	switch smbiosType {
	case 0:
		return ""
	case SMBIOSMemoryTypeDDR2:
		return "DDR2"
	case SMBIOSMemoryTypeDDR3:
		return "DDR3"
	case SMBIOSMemoryTypeDDR4:
		return "DDR4"
	case SMBIOSMemoryTypeDDR5:
		return "DDR5"
	case SMBIOSMemoryTypeLPDDR:
		return "LPDDR"
	case SMBIOSMemoryTypeLPDDR2:
		return "LPDDR2"
	case SMBIOSMemoryTypeLPDDR3:
		return "LPDDR3"
	case SMBIOSMemoryTypeLPDDR4:
		return "LPDDR4"
	case SMBIOSMemoryTypeLPDDR5:
		return "LPDDR5"
	default:
		return fmt.Sprintf("Unknown (%d)", smbiosType)
	}
}

// Lookup returns the slot with the given index, if the platform reported it.
func Lookup(slots []Slot, index int) (Slot, bool) {
	for _, s := range slots {
		if s.Index == index {
			return s, true
		}
	}
	return Slot{}, false
}

// cleanString removes null bytes and trims whitespace
func cleanString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\x00")
	s = strings.TrimSpace(s)
	return s
}
