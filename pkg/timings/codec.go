package timings

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Wire layout, little endian, packed:
// DDRVersion u8 | tCL u16 | tRCD u16 | tRP u16 | tRAS u16 | tRFC u32 |
// tFAW u16 | tRCDRD u16 | tRCDWR u16 | VDD f32 | VDDQ f32 | VPP f32

// MarshalBinary encodes the record in its wire layout.
func (t RamTimings) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	le := binary.LittleEndian

	buf[0] = t.DDRVersion
	le.PutUint16(buf[1:], t.TCL)
	le.PutUint16(buf[3:], t.TRCD)
	le.PutUint16(buf[5:], t.TRP)
	le.PutUint16(buf[7:], t.TRAS)
	le.PutUint32(buf[9:], t.TRFC)
	le.PutUint16(buf[13:], t.TFAW)
	le.PutUint16(buf[15:], t.TRCDRD)
	le.PutUint16(buf[17:], t.TRCDWR)
	le.PutUint32(buf[19:], math.Float32bits(t.VDD))
	le.PutUint32(buf[23:], math.Float32bits(t.VDDQ))
	le.PutUint32(buf[27:], math.Float32bits(t.VPP))

	return buf, nil
}

// UnmarshalBinary decodes a wire record.
func (t *RamTimings) UnmarshalBinary(buf []byte) error {
	if len(buf) != RecordSize {
		return fmt.Errorf("timing record is %d bytes, want %d", len(buf), RecordSize)
	}
	le := binary.LittleEndian

	*t = RamTimings{
		DDRVersion: buf[0],
		TCL:        le.Uint16(buf[1:]),
		TRCD:       le.Uint16(buf[3:]),
		TRP:        le.Uint16(buf[5:]),
		TRAS:       le.Uint16(buf[7:]),
		TRFC:       le.Uint32(buf[9:]),
		TFAW:       le.Uint16(buf[13:]),
		TRCDRD:     le.Uint16(buf[15:]),
		TRCDWR:     le.Uint16(buf[17:]),
		VDD:        math.Float32frombits(le.Uint32(buf[19:])),
		VDDQ:       math.Float32frombits(le.Uint32(buf[23:])),
		VPP:        math.Float32frombits(le.Uint32(buf[27:])),
	}
	return nil
}
