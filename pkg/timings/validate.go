package timings

import "fmt"

// Severity of a validation warning
type Severity int

const (
	SeverityCaution Severity = iota
	SeverityDanger
)

func (s Severity) String() string {
	if s == SeverityDanger {
		return "DANGER"
	}
	return "CAUTION"
}

// Warning is one finding of Validate.
type Warning struct {
	Field    string
	Severity Severity
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s: %s", w.Severity, w.Field, w.Message)
}

// Maximum safe VDD per generation
var maxVDD = map[uint8]float32{
	DDR4: 1.45,
	DDR5: 1.435,
}

// Validate compares an optimized record against the current one and reports
// every relation that would put the system at risk.
func Validate(current, optimized RamTimings, p Policy) []Warning {
	var warnings []Warning
	add := func(field string, sev Severity, format string, args ...interface{}) {
		warnings = append(warnings, Warning{Field: field, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if current.DDRVersion != optimized.DDRVersion {
		add("DDRVersion", SeverityDanger, "generation changed from %s to %s", current.Generation(), optimized.Generation())
	}

	if optimized.TRAS < optimized.TCL+optimized.TRCD {
		add("tRAS", SeverityDanger, "%d is below tCL + tRCD (%d)", optimized.TRAS, optimized.TCL+optimized.TRCD)
	}
	if optimized.TRCDRD != 0 && optimized.TRCDRD < optimized.TRCD {
		add("tRCDRD", SeverityCaution, "%d is below tRCD (%d)", optimized.TRCDRD, optimized.TRCD)
	}
	if optimized.TRCDWR != 0 && optimized.TRCDWR < optimized.TRCD {
		add("tRCDWR", SeverityCaution, "%d is below tRCD (%d)", optimized.TRCDWR, optimized.TRCD)
	}

	fields := []struct {
		name     string
		cur, opt uint64
	}{
		{"tCL", uint64(current.TCL), uint64(optimized.TCL)},
		{"tRCD", uint64(current.TRCD), uint64(optimized.TRCD)},
		{"tRP", uint64(current.TRP), uint64(optimized.TRP)},
		{"tRAS", uint64(current.TRAS), uint64(optimized.TRAS)},
		{"tRFC", uint64(current.TRFC), uint64(optimized.TRFC)},
		{"tFAW", uint64(current.TFAW), uint64(optimized.TFAW)},
	}
	for _, f := range fields {
		if f.cur == 0 {
			continue
		}
		if f.opt == 0 {
			add(f.name, SeverityDanger, "cleared from %d to 0", f.cur)
			continue
		}
		if f.opt < f.cur {
			cut := float64(f.cur-f.opt) / float64(f.cur)
			if cut > p.MaxTighten+1e-9 {
				add(f.name, SeverityCaution, "tightened by %.0f%% (limit %.0f%%)", cut*100, p.MaxTighten*100)
			}
		}
	}

	rails := []struct {
		name     string
		cur, opt float32
	}{
		{"VDD", current.VDD, optimized.VDD},
		{"VDDQ", current.VDDQ, optimized.VDDQ},
		{"VPP", current.VPP, optimized.VPP},
	}
	for _, r := range rails {
		if r.opt > r.cur {
			add(r.name, SeverityCaution, "raised from %.3fV to %.3fV", r.cur, r.opt)
		}
	}
	if limit, ok := maxVDD[optimized.DDRVersion]; ok && optimized.VDD > limit {
		add("VDD", SeverityDanger, "%.3fV exceeds the %s limit of %.3fV", optimized.VDD, optimized.Generation(), limit)
	}

	return warnings
}
