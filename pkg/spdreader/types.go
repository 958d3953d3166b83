package spdreader

import (
	"github.com/mscrnt/memprobe/pkg/spdreader/parser"
)

// Slot layout and image sizes
const (
	SlotCount         = 8
	FirstSlaveAddress = 0x50
	HeaderSize        = 4
	MaxImageSize      = 512
	LegacyImageSize   = 256

	// DDR4ClassMarker at byte 2 selects a 512 byte transfer.
	DDR4ClassMarker = 0x0C
)

// SpdImage is the raw SPD content of one memory slot.
type SpdImage struct {
	Slot   int                `json:"slot"`
	Data   [MaxImageSize]byte `json:"-"`
	Length int                `json:"length"`
	Valid  bool               `json:"valid"`
}

// SlaveAddress returns the bus address of slot.
func SlaveAddress(slot int) byte {
	return byte(FirstSlaveAddress + slot)
}

// ClassifyLength picks the transfer length from the four header bytes. Only
// the DDR4 marker selects 512 bytes; DDR5's own 0x12 falls into the legacy
// branch.
func ClassifyLength(header [HeaderSize]byte) int {
	if header[2] == DDR4ClassMarker {
		return MaxImageSize
	}
	return LegacyImageSize
}

// Address returns the slave address the image was read from.
func (img SpdImage) Address() byte {
	return SlaveAddress(img.Slot)
}

// Bytes returns a copy of the acquired bytes [0, Length).
func (img SpdImage) Bytes() []byte {
	n := img.Length
	if n < 0 || n > MaxImageSize {
		n = 0
	}
	out := make([]byte, n)
	copy(out, img.Data[:n])
	return out
}

// Summary decodes the fixed field map of the image.
func (img SpdImage) Summary() parser.Summary {
	return parser.Summarize(img.Bytes())
}

// Dump renders the image as a hex + ASCII listing.
func (img SpdImage) Dump() string {
	return parser.Dump(img.Bytes())
}

// Module runs the detailed JEDEC decode.
func (img SpdImage) Module() (*parser.Module, error) {
	return parser.ParseSPD(img.Bytes())
}

// NewImage builds a valid image for slot from raw bytes. data must be 256 or
// 512 bytes long.
func NewImage(slot int, data []byte) (SpdImage, error) {
	if slot < 0 || slot >= SlotCount {
		return SpdImage{}, invalidImagef("slot %d out of range", slot)
	}
	if len(data) != LegacyImageSize && len(data) != MaxImageSize {
		return SpdImage{}, invalidImagef("length %d is not %d or %d", len(data), LegacyImageSize, MaxImageSize)
	}
	img := SpdImage{Slot: slot, Length: len(data), Valid: true}
	copy(img.Data[:], data)
	return img, nil
}
