package timings

import "math"

// Policy bounds how far Optimize tightens each timing.
type Policy struct {
	// Tighten is the fraction removed from each timing, e.g. 0.05.
	Tighten float64
	// MaxTighten is the largest reduction Validate accepts.
	MaxTighten float64
	// Floor is the smallest value any primary timing may reach.
	Floor uint16
}

// DefaultPolicy trims 5% and flags anything past 10%.
var DefaultPolicy = Policy{
	Tighten:    0.05,
	MaxTighten: 0.10,
	Floor:      8,
}

// Optimize returns a tightened copy of current. Voltages are never raised.
func Optimize(current RamTimings, p Policy) RamTimings {
	opt := current

	opt.TCL = tighten16(current.TCL, p)
	opt.TRCD = tighten16(current.TRCD, p)
	opt.TRP = tighten16(current.TRP, p)
	opt.TRAS = tighten16(current.TRAS, p)
	opt.TFAW = tighten16(current.TFAW, p)
	opt.TRFC = uint32(tighten(uint64(current.TRFC), p))

	if floor := opt.TCL + opt.TRCD; opt.TRAS < floor {
		opt.TRAS = floor
	}

	// tRCDRD/tRCDWR follow tRCD and never drop below it
	opt.TRCDRD = follow(current.TRCDRD, opt.TRCD, p)
	opt.TRCDWR = follow(current.TRCDWR, opt.TRCD, p)

	return opt
}

func tighten(v uint64, p Policy) uint64 {
	if v == 0 {
		return 0
	}
	// rounded so short timings like tCL 19 still move at 5%
	cut := uint64(math.Round(float64(v) * p.Tighten))
	if cut > v {
		cut = v
	}
	out := v - cut
	if out < uint64(p.Floor) {
		if v < uint64(p.Floor) {
			return v
		}
		return uint64(p.Floor)
	}
	return out
}

func tighten16(v uint16, p Policy) uint16 {
	return uint16(tighten(uint64(v), p))
}

func follow(v, trcd uint16, p Policy) uint16 {
	if v == 0 {
		return 0
	}
	out := tighten16(v, p)
	if out < trcd {
		return trcd
	}
	return out
}
