package spdreader

import "encoding/binary"

// SampleDDR4 returns a 512 byte DDR4-2666 8GB single-rank UDIMM image, used by
// dry runs and tests. serial is folded into the module serial number.
func SampleDDR4(serial uint32) []byte {
	d := make([]byte, MaxImageSize)

	d[0] = 0x23 // 384 bytes used, 512 total
	d[1] = 0x11 // SPD revision 1.1
	d[2] = DDR4ClassMarker
	d[3] = 0x02 // UDIMM
	d[4] = 0x45 // 8Gb per die, 2 bank groups
	d[5] = 0x21
	d[11] = 0x03 // 1.2V
	d[12] = 0x01 // x8, 1 rank
	d[13] = 0x03 // 64-bit bus

	d[17] = 0x00 // MTB 125ps, FTB 1ps
	d[18] = 0x06 // tCKmin 0.75ns
	d[24] = 0x6E // tAAmin 13.75ns
	d[25] = 0x6E // tRCDmin
	d[26] = 0x6E // tRPmin
	d[27] = 0x11 // tRAS/tRC upper nibbles
	d[28] = 0x00 // tRASmin 32ns
	d[29] = 0x6E // tRCmin 45.75ns
	binary.LittleEndian.PutUint16(d[30:], 0x0AF0) // tRFC1 350ns
	binary.LittleEndian.PutUint16(d[32:], 0x0820) // tRFC2 260ns
	binary.LittleEndian.PutUint16(d[34:], 0x0550) // tRFC4 170ns
	d[36] = 0x00
	d[37] = 0xA8 // tFAWmin 21ns
	d[38] = 0x18 // tRRD_Smin 3ns
	d[39] = 0x28 // tRRD_Lmin 5ns

	// module manufacturer (Samsung), location, date
	d[320] = 0x80
	d[321] = 0xCE
	d[322] = 0x01
	d[323] = 0x19 // 2019
	d[324] = 0x24 // week 24
	binary.BigEndian.PutUint32(d[325:], serial)
	copy(d[329:349], "M378A1K43CB2-CTD    ")
	d[349] = 0x00

	// DRAM manufacturer
	d[350] = 0x80
	d[351] = 0xCE

	return d
}

// SampleDDR3 returns a 256 byte DDR3 image; only the header and a few fields
// are populated.
func SampleDDR3() []byte {
	d := make([]byte, LegacyImageSize)
	d[0] = 0x92
	d[1] = 0x13
	d[2] = 0x0B
	d[3] = 0x02
	d[4] = 0x03
	d[18] = 0x69
	d[20] = 0x69
	d[22] = 0x69
	d[117] = 0x80
	d[118] = 0xCE
	return d
}

// SampleBus returns the images a dry run presents: two DDR4 modules in slots
// 0 and 2, nothing else populated.
func SampleBus() map[byte][]byte {
	return map[byte][]byte{
		SlaveAddress(0): SampleDDR4(0x1234ABCD),
		SlaveAddress(2): SampleDDR4(0x1234ABCE),
	}
}
