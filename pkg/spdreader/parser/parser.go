package parser

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// SPD byte offsets for DDR4 (JEDEC SPD Annex L)
const (
	SPDBytesUsed    = 0x00 // Number of bytes used / total
	SPDRevision     = 0x01 // SPD Revision
	SPDDramType     = 0x02 // DRAM Device Type
	SPDModuleType   = 0x03 // Module Type
	SPDDensityBanks = 0x04 // SDRAM Density and Banks
	SPDAddressing   = 0x05 // SDRAM Addressing
	SPDModuleOrg    = 0x0C // Module Organization
	SPDPrimaryBus   = 0x0D // Module Memory Bus Width

	// Timing parameters
	SPDTimebases       = 0x11 // Timebases (MTB / FTB)
	SPDMinCycleTime    = 0x12 // Minimum Cycle Time (tCKAVGmin)
	SPDMinCasLatency   = 0x18 // Minimum CAS Latency Time (tAAmin)
	SPDMinRasToCas     = 0x19 // Minimum RAS to CAS Delay Time (tRCDmin)
	SPDMinRasPrecharge = 0x1A // Minimum Row Precharge Delay Time (tRPmin)
	SPDUpperNibbles    = 0x1B // Upper nibbles for tRAS and tRC
	SPDMinActive       = 0x1C // Minimum Active to Precharge Delay Time (tRASmin) LSB
	SPDMinRowCycle     = 0x1D // Minimum Active to Active/Refresh Delay Time (tRCmin) LSB
	SPDMinRfc1         = 0x1E // Minimum Refresh Recovery Delay Time (tRFC1min), 2 bytes
	SPDMinFawMsb       = 0x24 // Upper nibble for tFAW
	SPDMinFaw          = 0x25 // Minimum Four Activate Window Delay Time (tFAWmin) LSB
	SPDMinRrdS         = 0x26 // Minimum Row Active to Row Active Delay Time (tRRD_Smin)
	SPDMinRrdL         = 0x27 // Minimum Row Active to Row Active Delay Time (tRRD_Lmin)

	// Fine offsets (signed, FTB units)
	SPDFineRrdL  = 0x76
	SPDFineRrdS  = 0x77
	SPDFineRc    = 0x78
	SPDFineRp    = 0x79
	SPDFineRcd   = 0x7A
	SPDFineAa    = 0x7B
	SPDFineCkMin = 0x7D

	// Module-specific section
	SPDModuleMfgIDLsb = 0x140 // Module Manufacturer ID Code, LSB
	SPDModuleMfgIDMsb = 0x141 // Module Manufacturer ID Code, MSB
	SPDModuleMfgLoc   = 0x142 // Module Manufacturing Location
	SPDModuleMfgDateY = 0x143 // Module Manufacturing Date Year (BCD)
	SPDModuleMfgDateW = 0x144 // Module Manufacturing Date Week (BCD)
	SPDModuleSerial   = 0x145 // Module Serial Number (4 bytes)
	SPDModulePartNum  = 0x149 // Module Part Number (20 bytes)
	SPDModuleRevCode  = 0x15D // Module Revision Code
)

// SPD byte offsets for DDR5 (JEDEC JESD400-5)
const (
	SPD5Density     = 0x04 // First SDRAM density and package
	SPD5IOWidth     = 0x06 // First SDRAM I/O width
	SPD5MinCycle    = 0x14 // tCKAVGmin, ps, 2 bytes
	SPD5MinAA       = 0x1E // tAAmin, ps
	SPD5MinRCD      = 0x20 // tRCDmin, ps
	SPD5MinRP       = 0x22 // tRPmin, ps
	SPD5MinRAS      = 0x24 // tRASmin, ps
	SPD5MinRC       = 0x26 // tRCmin, ps
	SPD5MinRFC1     = 0x2C // tRFC1min, ns
	SPD5ModuleOrg   = 0xEA // Module organization
	SPD5BusWidth    = 0xEB // Memory channel bus width
	SPD5MfgSection  = 0x200
	SPD5MfgPartNum  = SPD5MfgSection + 9
	SPD5MfgSerial   = SPD5MfgSection + 5
	SPD5MfgSize     = 0x40
	ddr4ModuleBytes = 384
)

// Memory types
const (
	DramTypeDDR3    = 0x0B
	DramTypeDDR4    = 0x0C
	DramTypeDDR4E   = 0x0E
	DramTypeLPDDR4  = 0x10
	DramTypeLPDDR4X = 0x11
	DramTypeDDR5    = 0x12
	DramTypeLPDDR5  = 0x13
)

// ParseSPD parses raw SPD data into a structured format. Fields beyond the
// end of data are treated as absent.
func ParseSPD(data []byte) (*Module, error) {
	if len(data) < 128 {
		return nil, fmt.Errorf("SPD data too short: %d bytes", len(data))
	}

	// Determine memory type
	dramType := data[SPDDramType]
	switch dramType {
	case DramTypeDDR4, DramTypeDDR4E:
		return parseDDR4(data, "DDR4")
	case DramTypeLPDDR4, DramTypeLPDDR4X:
		return parseDDR4(data, "LPDDR4") // Similar structure to DDR4
	case DramTypeDDR5:
		return parseDDR5(data, "DDR5")
	case DramTypeLPDDR5:
		return parseDDR5(data, "LPDDR5")
	default:
		return nil, fmt.Errorf("unsupported memory type: 0x%02X", dramType)
	}
}

// ddr4DieMb maps the density nibble of byte 4 to Mbit per die
var ddr4DieMb = map[byte]int{
	0x0: 256, 0x1: 512, 0x2: 1024, 0x3: 2048, 0x4: 4096,
	0x5: 8192, 0x6: 16384, 0x7: 32768, 0x8: 12288, 0x9: 24576,
}

// parseDDR4 parses DDR4 SPD data
func parseDDR4(data []byte, kind string) (*Module, error) {
	m := &Module{
		Type: kind,
	}

	if tb := data[SPDTimebases]; tb&0x0F != 0 {
		return nil, fmt.Errorf("unsupported DDR4 timebase 0x%02X", tb)
	}
	const mtb = 125 // ps

	dieMb, ok := ddr4DieMb[data[SPDDensityBanks]&0x0F]
	if !ok {
		return nil, fmt.Errorf("unsupported DDR4 density code 0x%02X", data[SPDDensityBanks]&0x0F)
	}

	// Module organization
	moduleOrg := data[SPDModuleOrg]
	ranks := int((moduleOrg>>3)&0x07) + 1
	deviceWidth := 4 << (moduleOrg & 0x07)

	// Bus width
	primaryBusWidth := 8 << (data[SPDPrimaryBus] & 0x07)

	// Capacity = die density / 8 * bus width / device width * ranks
	m.CapacityGB = float64(dieMb) / 8 * float64(primaryBusWidth) / float64(deviceWidth) * float64(ranks) / 1024
	m.Ranks = ranks
	m.DataWidth = primaryBusWidth

	tCK := timeps(data, SPDMinCycleTime, SPDFineCkMin, mtb)
	if tCK <= 0 {
		return nil, fmt.Errorf("invalid DDR4 tCKmin")
	}
	m.BaseFreqMHz = 1000000.0 / float64(tCK)
	m.DataRateMTs = int(2 * m.BaseFreqMHz)
	m.PCRate = m.DataRateMTs * primaryBusWidth / 8

	m.Timings = parseDDR4Timings(data, tCK, mtb)

	// Manufacturer info lives in the module-specific section
	if len(data) >= ddr4ModuleBytes {
		m.JEDECManufacturer = getJEDECManufacturer(data[SPDModuleMfgIDLsb], data[SPDModuleMfgIDMsb])
		m.PartNumber = cleanString(data[SPDModulePartNum : SPDModulePartNum+20])

		serial := binary.BigEndian.Uint32(data[SPDModuleSerial : SPDModuleSerial+4])
		m.Serial = fmt.Sprintf("%08X", serial)

		year := data[SPDModuleMfgDateY]
		week := data[SPDModuleMfgDateW]
		if year != 0 && week != 0 {
			m.ManufacturingDate = fmt.Sprintf("20%02X-W%02X", year, week)
		}
	}

	return m, nil
}

// parseDDR4Timings parses timing parameters from DDR4 SPD
func parseDDR4Timings(data []byte, tCK, mtb int) Timings {
	upper := at(data, SPDUpperNibbles)
	tRAS := (int(upper&0x0F)<<8 | int(at(data, SPDMinActive))) * mtb
	tRC := (int(upper>>4)<<8|int(at(data, SPDMinRowCycle)))*mtb + fine(data, SPDFineRc)
	tRFC1 := int(le16(data, SPDMinRfc1)) * mtb
	tFAW := (int(at(data, SPDMinFawMsb)&0x0F)<<8 | int(at(data, SPDMinFaw))) * mtb

	return Timings{
		CL:   clocks(timeps(data, SPDMinCasLatency, SPDFineAa, mtb), tCK),
		RCD:  clocks(timeps(data, SPDMinRasToCas, SPDFineRcd, mtb), tCK),
		RP:   clocks(timeps(data, SPDMinRasPrecharge, SPDFineRp, mtb), tCK),
		RAS:  clocks(tRAS, tCK),
		RC:   clocks(tRC, tCK),
		RFC:  clocks(tRFC1, tCK),
		RRDS: clocks(timeps(data, SPDMinRrdS, SPDFineRrdS, mtb), tCK),
		RRDL: clocks(timeps(data, SPDMinRrdL, SPDFineRrdL, mtb), tCK),
		FAW:  clocks(tFAW, tCK),
	}
}

var ddr5DieGb = map[byte]int{
	0x01: 4, 0x02: 8, 0x03: 12, 0x04: 16, 0x05: 24, 0x06: 32, 0x07: 48, 0x08: 64,
}

var ddr5DiesPerPackage = map[byte]int{
	0: 1, 2: 2, 3: 4, 4: 8, 5: 16,
}

// parseDDR5 parses DDR5 SPD data
func parseDDR5(data []byte, kind string) (*Module, error) {
	m := &Module{
		Type: kind,
	}

	densityByte := data[SPD5Density]
	dieGb, ok := ddr5DieGb[densityByte&0x1F]
	if !ok {
		return nil, fmt.Errorf("unsupported DDR5 density code 0x%02X", densityByte&0x1F)
	}
	dies := ddr5DiesPerPackage[densityByte>>5]
	if dies == 0 {
		dies = 1
	}
	deviceWidth := 4 << ((data[SPD5IOWidth] >> 5) & 0x03)

	moduleOrg := at(data, SPD5ModuleOrg)
	ranks := int((moduleOrg>>3)&0x07) + 1

	busWidth := at(data, SPD5BusWidth)
	subChannelWidth := 8 << (busWidth & 0x07)
	subChannels := int((busWidth>>5)&0x03) + 1

	m.CapacityGB = float64(subChannels) * float64(subChannelWidth) / float64(deviceWidth) *
		float64(dieGb) / 8 * float64(dies) * float64(ranks)
	m.Ranks = ranks
	m.DataWidth = subChannels * subChannelWidth

	tCK := int(le16(data, SPD5MinCycle))
	if tCK <= 0 {
		return nil, fmt.Errorf("invalid DDR5 tCKAVGmin")
	}
	m.BaseFreqMHz = 1000000.0 / float64(tCK)
	m.DataRateMTs = int(2 * m.BaseFreqMHz)
	m.PCRate = m.DataRateMTs * m.DataWidth / 8

	m.Timings = Timings{
		CL:  clocks(int(le16(data, SPD5MinAA)), tCK),
		RCD: clocks(int(le16(data, SPD5MinRCD)), tCK),
		RP:  clocks(int(le16(data, SPD5MinRP)), tCK),
		RAS: clocks(int(le16(data, SPD5MinRAS)), tCK),
		RC:  clocks(int(le16(data, SPD5MinRC)), tCK),
		RFC: clocks(int(le16(data, SPD5MinRFC1))*1000, tCK),
	}

	// The manufacturing section starts at 512 and is absent from short images
	if len(data) >= SPD5MfgSection+SPD5MfgSize {
		m.JEDECManufacturer = getJEDECManufacturer(data[SPD5MfgSection], data[SPD5MfgSection+1])
		m.PartNumber = cleanString(data[SPD5MfgPartNum : SPD5MfgPartNum+30])
		serial := binary.BigEndian.Uint32(data[SPD5MfgSerial : SPD5MfgSerial+4])
		m.Serial = fmt.Sprintf("%08X", serial)
	}

	return m, nil
}

// timeps combines an MTB count and its signed FTB correction into picoseconds.
func timeps(data []byte, off, fineOff, mtb int) int {
	return int(at(data, off))*mtb + fine(data, fineOff)
}

func fine(data []byte, off int) int {
	return int(int8(at(data, off)))
}

// clocks converts a minimum time to the clock count that satisfies it.
func clocks(ps, tCK int) int {
	if ps <= 0 || tCK <= 0 {
		return 0
	}
	return (ps + tCK - 1) / tCK
}

func cleanString(b []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}
