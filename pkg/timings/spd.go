package timings

import (
	"fmt"

	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/spdreader/parser"
)

// Nominal rail voltages per generation
var nominalRails = map[uint8][3]float32{
	DDR4: {1.2, 1.2, 2.5},
	DDR5: {1.1, 1.1, 1.8},
}

// SPDDecoder derives timings from the JEDEC minimums of the first valid SPD
// image. It stands in for the controller register decoders, which run on the
// driver side.
type SPDDecoder struct {
	Reader spdreader.Reader
}

// Name implements Decoder.
func (d *SPDDecoder) Name() string {
	return "spd"
}

// Decode implements Decoder.
func (d *SPDDecoder) Decode() (RamTimings, error) {
	acq, err := d.Reader.ReadAll()
	if err != nil {
		return RamTimings{}, err
	}

	valid := acq.Valid()
	if len(valid) == 0 {
		return RamTimings{}, fmt.Errorf("no valid SPD image")
	}

	m, err := valid[0].Module()
	if err != nil {
		return RamTimings{}, fmt.Errorf("slot %d: %w", valid[0].Slot, err)
	}
	return FromModule(m), nil
}

// FromModule converts a detailed SPD decode into a timing record.
func FromModule(m *parser.Module) RamTimings {
	t := RamTimings{
		TCL:    uint16(m.Timings.CL),
		TRCD:   uint16(m.Timings.RCD),
		TRP:    uint16(m.Timings.RP),
		TRAS:   uint16(m.Timings.RAS),
		TRFC:   uint32(m.Timings.RFC),
		TFAW:   uint16(m.Timings.FAW),
		TRCDRD: uint16(m.Timings.RCD),
		TRCDWR: uint16(m.Timings.RCD),
	}

	switch m.Type {
	case "DDR5", "LPDDR5":
		t.DDRVersion = DDR5
	default:
		t.DDRVersion = DDR4
	}

	rails := nominalRails[t.DDRVersion]
	t.VDD, t.VDDQ, t.VPP = rails[0], rails[1], rails[2]
	return t
}

// RegisterDefaults registers d for both Intel and AMD.
func RegisterDefaults(r *Registry, d Decoder) error {
	for _, vendor := range []string{VendorIntel, VendorAMD} {
		if err := r.Register(vendor, d); err != nil {
			return err
		}
	}
	return nil
}
