package timings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/memprobe/pkg/spdreader"
)

func sampleTimings() RamTimings {
	return RamTimings{
		DDRVersion: DDR4,
		TCL:        19,
		TRCD:       19,
		TRP:        19,
		TRAS:       43,
		TRFC:       467,
		TFAW:       28,
		TRCDRD:     19,
		TRCDWR:     19,
		VDD:        1.2,
		VDDQ:       1.2,
		VPP:        2.5,
	}
}

type fakeReader struct {
	acq spdreader.Acquisition
	err error
}

func (f *fakeReader) ReadAll() (spdreader.Acquisition, error) { return f.acq, f.err }
func (f *fakeReader) Close() error                            { return nil }

type staticDecoder struct {
	t   RamTimings
	err error
}

func (s staticDecoder) Name() string                { return "static" }
func (s staticDecoder) Decode() (RamTimings, error) { return s.t, s.err }

func TestCodecLayout(t *testing.T) {
	buf, err := sampleTimings().MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, RecordSize)

	assert.Equal(t, byte(DDR4), buf[0])
	assert.Equal(t, []byte{19, 0}, buf[1:3])
	assert.Equal(t, []byte{0xD3, 0x01, 0, 0}, buf[9:13]) // tRFC 467
	assert.Equal(t, []byte{0x9A, 0x99, 0x99, 0x3F}, buf[19:23]) // 1.2f

	var got RamTimings
	require.NoError(t, got.UnmarshalBinary(buf))
	assert.Equal(t, sampleTimings(), got)
}

func TestUnmarshalBinaryWrongSize(t *testing.T) {
	var got RamTimings
	assert.Error(t, got.UnmarshalBinary(make([]byte, RecordSize+1)))
	assert.Error(t, got.UnmarshalBinary(nil))
}

func TestGenerationAndPrimary(t *testing.T) {
	ts := sampleTimings()
	assert.Equal(t, "DDR4", ts.Generation())
	assert.Equal(t, "19-19-19-43", ts.Primary())

	ts.DDRVersion = 5
	assert.Equal(t, "DDR5", ts.Generation())
	ts.DDRVersion = 0
	assert.Equal(t, "DDR0?", ts.Generation())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	d := staticDecoder{t: sampleTimings()}

	require.NoError(t, RegisterDefaults(r, d))
	assert.Equal(t, []string{VendorAMD, VendorIntel}, r.Vendors())

	assert.Error(t, r.Register(VendorIntel, d), "duplicate vendor")
	assert.ErrorContains(t, RegisterDefaults(r, d), "already registered")
	assert.Error(t, r.Register("", d))
	assert.Error(t, r.Register("x", nil))

	got, err := r.Get(VendorAMD)
	require.NoError(t, err)
	assert.Equal(t, "static", got.Name())

	_, err = r.Get("CyrixInstead")
	assert.ErrorIs(t, err, ErrUnsupportedVendor)
}

func TestRegistryRead(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(VendorIntel, staticDecoder{t: sampleTimings()}))

	r.SetVendorFunc(func() (string, error) { return VendorIntel, nil })
	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, sampleTimings(), got)

	r.SetVendorFunc(func() (string, error) { return "HygonGenuine", nil })
	_, err = r.Read()
	assert.ErrorIs(t, err, ErrUnsupportedVendor)

	r.SetVendorFunc(func() (string, error) { return "", errors.New("no cpuinfo") })
	_, err = r.Read()
	assert.ErrorContains(t, err, "no cpuinfo")
}

func TestRegistryReadDecoderError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(VendorAMD, staticDecoder{err: errors.New("smn read failed")}))
	r.SetVendorFunc(func() (string, error) { return VendorAMD, nil })

	_, err := r.Read()
	assert.ErrorContains(t, err, "static decoder: smn read failed")
}

func TestSPDDecoder(t *testing.T) {
	var acq spdreader.Acquisition
	img, err := spdreader.NewImage(2, spdreader.SampleDDR4(1))
	require.NoError(t, err)
	acq.Images[2] = img

	d := &SPDDecoder{Reader: &fakeReader{acq: acq}}
	assert.Equal(t, "spd", d.Name())

	got, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, sampleTimings(), got)
}

func TestSPDDecoderErrors(t *testing.T) {
	d := &SPDDecoder{Reader: &fakeReader{}}
	_, err := d.Decode()
	assert.ErrorContains(t, err, "no valid SPD image")

	d = &SPDDecoder{Reader: &fakeReader{err: errors.New("bus gone")}}
	_, err = d.Decode()
	assert.ErrorContains(t, err, "bus gone")

	var acq spdreader.Acquisition
	acq.Images[0], _ = spdreader.NewImage(0, spdreader.SampleDDR3())
	d = &SPDDecoder{Reader: &fakeReader{acq: acq}}
	_, err = d.Decode()
	assert.ErrorContains(t, err, "slot 0")
}

func TestOptimizeDefault(t *testing.T) {
	cur := sampleTimings()
	opt := Optimize(cur, DefaultPolicy)

	assert.Equal(t, uint16(18), opt.TCL)
	assert.Equal(t, uint16(18), opt.TRCD)
	assert.Equal(t, uint16(18), opt.TRP)
	assert.Equal(t, uint16(18), opt.TRCDRD)
	assert.Equal(t, uint16(41), opt.TRAS)
	assert.Equal(t, uint32(444), opt.TRFC)
	assert.Equal(t, uint16(27), opt.TFAW)
	assert.Equal(t, cur.VDD, opt.VDD)
	assert.Equal(t, cur.VPP, opt.VPP)

	assert.Empty(t, Validate(cur, opt, DefaultPolicy))
}

func TestOptimizeRoundsCut(t *testing.T) {
	p := Policy{Tighten: 0.05, MaxTighten: 0.10, Floor: 8}

	tests := []struct {
		cur, want uint16
	}{
		{19, 18}, // 0.95 rounds up to one clock
		{16, 15},
		{10, 9},
		{9, 9}, // 0.45 rounds down, left alone
		{40, 38},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tighten16(tt.cur, p), "tCL %d", tt.cur)
	}
}

func TestOptimizeKeepsRelations(t *testing.T) {
	cur := RamTimings{DDRVersion: DDR4, TCL: 20, TRCD: 20, TRP: 20, TRAS: 30, TRCDRD: 20, TRCDWR: 21}
	opt := Optimize(cur, Policy{Tighten: 0.1, MaxTighten: 0.1, Floor: 8})

	assert.Equal(t, uint16(18), opt.TCL)
	assert.Equal(t, uint16(18), opt.TRCD)
	assert.Equal(t, uint16(36), opt.TRAS, "tRAS is raised to tCL + tRCD")
	assert.GreaterOrEqual(t, opt.TRCDRD, opt.TRCD)
	assert.GreaterOrEqual(t, opt.TRCDWR, opt.TRCD)
	assert.Zero(t, opt.TRFC)
}

func TestOptimizeFloor(t *testing.T) {
	cur := RamTimings{TCL: 10, TRCD: 6}
	opt := Optimize(cur, Policy{Tighten: 0.5, Floor: 8})

	assert.Equal(t, uint16(8), opt.TCL)
	assert.Equal(t, uint16(6), opt.TRCD, "values already below the floor are left alone")
}

func TestValidate(t *testing.T) {
	cur := sampleTimings()

	t.Run("aggressive policy", func(t *testing.T) {
		p := Policy{Tighten: 0.2, MaxTighten: 0.1, Floor: 8}
		warnings := Validate(cur, Optimize(cur, p), p)
		fields := map[string]bool{}
		for _, w := range warnings {
			fields[w.Field] = true
		}
		assert.True(t, fields["tCL"])
		assert.True(t, fields["tRFC"])
	})

	t.Run("broken relations", func(t *testing.T) {
		opt := cur
		opt.TRAS = 30
		opt.TRCDRD = 10
		warnings := Validate(cur, opt, DefaultPolicy)
		require.NotEmpty(t, warnings)
		assert.Equal(t, "tRAS", warnings[0].Field)
		assert.Equal(t, SeverityDanger, warnings[0].Severity)
		assert.Equal(t, "tRCDRD", warnings[1].Field)
	})

	t.Run("voltage", func(t *testing.T) {
		opt := cur
		opt.VDD = 1.5
		warnings := Validate(cur, opt, DefaultPolicy)
		require.Len(t, warnings, 2)
		assert.Equal(t, "[CAUTION] VDD: raised from 1.200V to 1.500V", warnings[0].String())
		assert.Equal(t, SeverityDanger, warnings[1].Severity)
	})

	t.Run("cleared timing", func(t *testing.T) {
		opt := cur
		opt.TFAW = 0
		warnings := Validate(cur, opt, DefaultPolicy)
		require.Len(t, warnings, 1)
		assert.Equal(t, "tFAW", warnings[0].Field)
	})

	t.Run("generation change", func(t *testing.T) {
		opt := cur
		opt.DDRVersion = DDR5
		warnings := Validate(cur, opt, DefaultPolicy)
		require.NotEmpty(t, warnings)
		assert.Equal(t, "DDRVersion", warnings[0].Field)
	})
}
