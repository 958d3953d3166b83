package parser

import "fmt"

// Common JEDEC manufacturer IDs, keyed by ID code << 8 | continuation byte
var manufacturers = map[uint16]string{
	0x2C80: "Micron",
	0xCE80: "Samsung",
	0xAD80: "SK Hynix",
	0x4F01: "Transcend",
	0x9801: "Kingston",
	0xCB04: "A-DATA",
	0xCD04: "G.Skill",
	0x5105: "Qimonda",
	0x2503: "Kingmax",
	0x9E02: "Corsair",
	0xC180: "Infineon",
	0x9B85: "Crucial",
	0xEF04: "Team Group",
	0x1A85: "Patriot",
	0x3206: "Nanya",
}

// getJEDECManufacturer returns manufacturer name from JEDEC ID. bank is the
// continuation-code byte (first byte of the pair), id the code itself.
func getJEDECManufacturer(bank, id uint8) string {
	if name, ok := manufacturers[uint16(id)<<8|uint16(bank)]; ok {
		return name
	}

	// Check continuation codes
	return fmt.Sprintf("Bank %d, 0x%02X", (bank&0x7F)+1, id&0x7F)
}
