package control

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/memprobe/pkg/smbus"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

type staticTimings struct {
	t   timings.RamTimings
	err error
}

func (s staticTimings) Read() (timings.RamTimings, error) { return s.t, s.err }

// countingReader fails the test if the dispatcher reaches hardware.
type countingReader struct {
	spdreader.Reader
	calls int
}

func (c *countingReader) ReadAll() (spdreader.Acquisition, error) {
	c.calls++
	return c.Reader.ReadAll()
}

func newDryAcquirer(bus *smbus.DryBus, resolver smbus.Resolver) *spdreader.Acquirer {
	cfg := smbus.DefaultConfig()
	cfg.Stall = func(time.Duration) {}
	return spdreader.NewAcquirer(smbus.NewSession(bus, resolver, cfg), log.New(io.Discard, "", 0))
}

func sampleTimings() timings.RamTimings {
	return timings.RamTimings{DDRVersion: timings.DDR4, TCL: 16, TRCD: 18, TRP: 18, TRAS: 36, TRFC: 420, TFAW: 26, VDD: 1.35, VDDQ: 1.35, VPP: 2.5}
}

func TestControlCodes(t *testing.T) {
	assert.Equal(t, uint32(0x222000), CodeReadTimings)
	assert.Equal(t, uint32(0x222004), CodeReadSPD)
	assert.Equal(t, "read-spd", CodeName(CodeReadSPD))
	assert.Equal(t, "unknown", CodeName(0x222008))
}

func TestDispatcherReadSPD(t *testing.T) {
	bus := smbus.NewDryBus(spdreader.SampleBus())
	d := &Dispatcher{SPD: newDryAcquirer(bus, bus)}

	out := make([]byte, spdreader.ArraySize)
	n, err := d.Handle(CodeReadSPD, nil, out)
	require.NoError(t, err)
	assert.Equal(t, spdreader.ArraySize, n)

	images, err := spdreader.DecodeImages(out)
	require.NoError(t, err)
	assert.True(t, images[0].Valid)
	assert.False(t, images[1].Valid)
	assert.True(t, images[2].Valid)
	assert.Equal(t, spdreader.MaxImageSize, images[2].Length)
}

func TestDispatcherBufferChecks(t *testing.T) {
	bus := smbus.NewDryBus(spdreader.SampleBus())
	spd := &countingReader{Reader: newDryAcquirer(bus, bus)}
	d := &Dispatcher{SPD: spd, Timings: staticTimings{t: sampleTimings()}}

	tests := []struct {
		name string
		code uint32
		in   []byte
		out  int
	}{
		{"spd output too small", CodeReadSPD, nil, spdreader.ArraySize - 1},
		{"spd output too large", CodeReadSPD, nil, spdreader.ArraySize + 1},
		{"spd with input", CodeReadSPD, []byte{1}, spdreader.ArraySize},
		{"timings output too small", CodeReadTimings, nil, timings.RecordSize - 1},
		{"timings output too large", CodeReadTimings, nil, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := d.Handle(tt.code, tt.in, make([]byte, tt.out))
			assert.ErrorIs(t, err, ErrInvalidBufferSize)
			assert.Zero(t, n)
		})
	}

	assert.Zero(t, spd.calls)
	assert.Empty(t, bus.Accesses())
}

func TestDispatcherUnsupported(t *testing.T) {
	d := &Dispatcher{}
	_, err := d.Handle(0x222008, nil, make([]byte, 16))
	assert.ErrorIs(t, err, ErrUnsupportedRequest)
}

func TestDispatcherNoSource(t *testing.T) {
	d := &Dispatcher{}

	_, err := d.Handle(CodeReadTimings, nil, make([]byte, timings.RecordSize))
	assert.ErrorIs(t, err, ErrNoSource)
	assert.NotErrorIs(t, err, ErrUnsupportedRequest)

	_, err = d.Handle(CodeReadSPD, nil, make([]byte, spdreader.ArraySize))
	assert.ErrorIs(t, err, ErrNoSource)
	assert.NotErrorIs(t, err, ErrUnsupportedRequest)

	// buffer checks still come first
	_, err = d.Handle(CodeReadSPD, nil, make([]byte, 4))
	assert.ErrorIs(t, err, ErrInvalidBufferSize)
}

func TestDispatcherControllerNotFound(t *testing.T) {
	bus := smbus.NewDryBus(spdreader.SampleBus())
	d := &Dispatcher{SPD: newDryAcquirer(bus, smbus.StaticResolver(0))}

	n, err := d.Handle(CodeReadSPD, nil, make([]byte, spdreader.ArraySize))
	assert.ErrorIs(t, err, smbus.ErrControllerNotFound)
	assert.Zero(t, n)
}

func TestDispatcherTimingsError(t *testing.T) {
	d := &Dispatcher{Timings: staticTimings{err: timings.ErrUnsupportedVendor}}
	_, err := d.Handle(CodeReadTimings, nil, make([]byte, timings.RecordSize))
	assert.ErrorIs(t, err, timings.ErrUnsupportedVendor)
}

func TestClientOverLocalDevice(t *testing.T) {
	bus := smbus.NewDryBus(spdreader.SampleBus())
	closed := false
	dev := NewLocalDevice(&Dispatcher{
		SPD:     newDryAcquirer(bus, bus),
		Timings: staticTimings{t: sampleTimings()},
	}, func() error { closed = true; return nil })
	c := NewClient(dev)

	got, err := c.ReadTimings()
	require.NoError(t, err)
	assert.Equal(t, sampleTimings(), got)

	acq, err := c.ReadAll()
	require.NoError(t, err)
	require.Len(t, acq.Valid(), 2)
	assert.Equal(t, spdreader.SampleDDR4(0x1234ABCE), acq.Images[2].Bytes())

	require.NoError(t, c.Close())
	assert.True(t, closed)
}

type shortDevice struct {
	n   int
	err error
}

func (s shortDevice) IoControl(code uint32, in, out []byte) (int, error) { return s.n, s.err }
func (s shortDevice) Close() error                                       { return nil }

func TestClientShortResponse(t *testing.T) {
	c := NewClient(shortDevice{n: timings.RecordSize - 1})
	_, err := c.ReadTimings()
	assert.ErrorIs(t, err, ErrShortResponse)

	c = NewClient(shortDevice{n: 100})
	_, err = c.ReadSPD()
	assert.ErrorIs(t, err, ErrShortResponse)
}

func TestClientDeviceError(t *testing.T) {
	c := NewClient(shortDevice{err: errors.New("access denied")})
	_, err := c.ReadAll()
	assert.ErrorContains(t, err, "read-spd request failed: access denied")
}

func TestClientRejectsCorruptRecords(t *testing.T) {
	// A full-size buffer of 0xFF carries slot 255 in every record
	dev := deviceFunc(func(code uint32, in, out []byte) (int, error) {
		for i := range out {
			out[i] = 0xFF
		}
		return len(out), nil
	})
	_, err := NewClient(dev).ReadSPD()
	assert.ErrorIs(t, err, spdreader.ErrInvalidImage)
}

type deviceFunc func(code uint32, in, out []byte) (int, error)

func (f deviceFunc) IoControl(code uint32, in, out []byte) (int, error) { return f(code, in, out) }
func (f deviceFunc) Close() error                                       { return nil }
