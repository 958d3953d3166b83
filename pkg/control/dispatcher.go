package control

import (
	"fmt"
	"log"

	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// TimingSource supplies the current controller timings.
type TimingSource interface {
	Read() (timings.RamTimings, error)
}

// Dispatcher serves control requests on the privileged side. Buffer sizes
// are checked before any hardware is touched.
type Dispatcher struct {
	Timings TimingSource
	SPD     spdreader.Reader
	Logger  *log.Logger
}

// Handle serves one request and returns the number of bytes written to out.
func (d *Dispatcher) Handle(code uint32, in, out []byte) (int, error) {
	switch code {
	case CodeReadTimings:
		if err := checkBuffers(in, out, timings.RecordSize); err != nil {
			return 0, err
		}
		if d.Timings == nil {
			return 0, fmt.Errorf("%w for %s", ErrNoSource, CodeName(code))
		}
		t, err := d.Timings.Read()
		if err != nil {
			return 0, err
		}
		buf, err := t.MarshalBinary()
		if err != nil {
			return 0, err
		}
		return copy(out, buf), nil

	case CodeReadSPD:
		if err := checkBuffers(in, out, spdreader.ArraySize); err != nil {
			return 0, err
		}
		if d.SPD == nil {
			return 0, fmt.Errorf("%w for %s", ErrNoSource, CodeName(code))
		}
		acq, err := d.SPD.ReadAll()
		if err != nil {
			return 0, err
		}
		if err := acq.Err(); err != nil {
			d.logf("control: %s: %v", CodeName(code), err)
		}
		return copy(out, spdreader.EncodeImages(acq.Images)), nil

	default:
		return 0, fmt.Errorf("%w: 0x%06X", ErrUnsupportedRequest, code)
	}
}

func (d *Dispatcher) logf(format string, args ...interface{}) {
	if d.Logger != nil {
		d.Logger.Printf(format, args...)
	}
}

func checkBuffers(in, out []byte, want int) error {
	if len(in) != 0 {
		return fmt.Errorf("%w: unexpected %d byte input", ErrInvalidBufferSize, len(in))
	}
	if len(out) != want {
		return fmt.Errorf("%w: output is %d bytes, want %d", ErrInvalidBufferSize, len(out), want)
	}
	return nil
}
