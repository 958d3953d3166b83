package parser

import "fmt"

// Offsets of the summary field map
const (
	sumTypeOffset     = 2
	sumDensityOffset  = 4
	sumMfgBankOffset  = 320
	sumMfgIDOffset    = 321
	sumTCLOffset      = 18
	sumTRCDOffset     = 20
	sumTRPOffset      = 22
	sumTRASOffset     = 24
	notSpecifiedLabel = "Not specified"
)

// Summarize decodes the fixed field map. Offsets at or past len(data) read as
// zero, so a 256 byte image never reports a manufacturer.
func Summarize(data []byte) Summary {
	s := Summary{
		Length:   len(data),
		TypeCode: at(data, sumTypeOffset),
	}
	s.DDRType = DDRTypeName(s.TypeCode)

	nibbles := at(data, sumDensityOffset)
	s.Banks = int(nibbles&0x07) + 1
	s.Density = int(nibbles >> 3)
	s.SizeMB = (uint64(1) << uint(s.Density)) * uint64(s.Banks) * 256

	if bank := at(data, sumMfgBankOffset); bank != 0 {
		s.Manufacturer = Manufacturer{
			Specified: true,
			Bank:      bank,
			ID:        at(data, sumMfgIDOffset),
		}
		s.Manufacturer.Name = getJEDECManufacturer(s.Manufacturer.Bank, s.Manufacturer.ID)
	}

	s.TCL = le16(data, sumTCLOffset)
	s.TRCD = le16(data, sumTRCDOffset)
	s.TRP = le16(data, sumTRPOffset)
	s.TRAS = le16(data, sumTRASOffset)

	return s
}

// DDRTypeName names the DRAM type byte the way reports show it.
func DDRTypeName(code byte) string {
	switch code {
	case DramTypeDDR4:
		return "DDR4"
	case DramTypeDDR5:
		return "DDR5"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", code)
	}
}

// String renders the ID pair, or "Not specified".
func (m Manufacturer) String() string {
	if !m.Specified {
		return notSpecifiedLabel
	}
	return fmt.Sprintf("JEDEC ID: %d-%d", m.Bank, m.ID)
}

// at returns data[off], or 0 when off is outside the image.
func at(data []byte, off int) byte {
	if off < 0 || off >= len(data) {
		return 0
	}
	return data[off]
}

// le16 reads a little-endian pair; missing bytes read as zero.
func le16(data []byte, off int) uint16 {
	return uint16(at(data, off)) | uint16(at(data, off+1))<<8
}
