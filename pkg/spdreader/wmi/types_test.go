package wmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryTypeName(t *testing.T) {
	tests := []struct {
		code uint32
		want string
	}{
		{0, ""},
		{SMBIOSMemoryTypeDDR3, "DDR3"},
		{SMBIOSMemoryTypeDDR4, "DDR4"},
		{SMBIOSMemoryTypeDDR5, "DDR5"},
		{SMBIOSMemoryTypeLPDDR4, "LPDDR4"},
		{99, "Unknown (99)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MemoryTypeName(tt.code))
	}
}

func TestSlotLabel(t *testing.T) {
	assert.Equal(t, "BANK 0/DIMM_A1", Slot{BankLabel: "BANK 0", DeviceLocator: "DIMM_A1"}.Label())
	assert.Equal(t, "DIMM_A1", Slot{DeviceLocator: "DIMM_A1"}.Label())
	assert.Equal(t, "BANK 2", Slot{BankLabel: "BANK 2"}.Label())
	assert.Empty(t, Slot{}.Label())
}

func TestLookup(t *testing.T) {
	slots := []Slot{{Index: 0, DeviceLocator: "A1"}, {Index: 2, DeviceLocator: "B1"}}

	s, ok := Lookup(slots, 2)
	assert.True(t, ok)
	assert.Equal(t, "B1", s.DeviceLocator)

	_, ok = Lookup(slots, 1)
	assert.False(t, ok)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Samsung", cleanString("  Samsung\x00\x00 "))
	assert.Empty(t, cleanString("\x00"))
}
