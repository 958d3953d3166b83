package smbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noStall(time.Duration) {}

func testConfig() Config {
	return Config{PollInterval: DefaultPollInterval, RetryBudget: DefaultRetryBudget, Stall: noStall}
}

func newTestImage(n int) []byte {
	img := make([]byte, n)
	for i := range img {
		img[i] = byte(i*7 + 3)
	}
	return img
}

func TestReadByteData(t *testing.T) {
	img := newTestImage(256)
	bus := NewDryBus(map[byte][]byte{0x50: img})
	tr := NewTransport(bus, bus.Base(), testConfig())

	for _, off := range []byte{0, 1, 2, 0x80, 0xFF} {
		v, err := tr.ReadByteData(0x50, off)
		require.NoError(t, err)
		assert.Equal(t, img[off], v, "offset 0x%02X", off)
	}
}

func TestReadByteDataRegisterSequence(t *testing.T) {
	bus := NewDryBus(map[byte][]byte{0x52: newTestImage(256)})
	tr := NewTransport(bus, bus.Base(), testConfig())

	_, err := tr.ReadByteData(0x52, 0x12)
	require.NoError(t, err)

	assert.Equal(t, []byte{StatusIntr | StatusError}, bus.Writes(RegStatus))
	assert.Equal(t, []byte{0x52<<1 | ReadBit}, bus.Writes(RegAddress))
	assert.Equal(t, []byte{0x12}, bus.Writes(RegCommand))
	assert.Equal(t, []byte{OpBlockRead}, bus.Writes(RegControl))

	// status clear happens after arbitration and before setup
	acc := bus.Accesses()
	require.NotEmpty(t, acc)
	assert.False(t, acc[0].Write, "first access must be a status poll")
	assert.Equal(t, bus.Base()+RegStatus, acc[0].Port)
	assert.True(t, acc[1].Write)
	assert.Equal(t, bus.Base()+RegStatus, acc[1].Port)
}

func TestReadByteDataStuckBusy(t *testing.T) {
	bus := NewDryBus(map[byte][]byte{0x50: newTestImage(256)})
	bus.StuckBusy = true

	stalls := 0
	cfg := testConfig()
	cfg.Stall = func(d time.Duration) {
		assert.Equal(t, 10*time.Microsecond, d)
		stalls++
	}
	tr := NewTransport(bus, bus.Base(), cfg)

	_, err := tr.ReadByteData(0x50, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusTimeout))

	var be *BusError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "arbitrate", be.Op)

	assert.Equal(t, DefaultRetryBudget, stalls)
	assert.Empty(t, bus.Writes(RegAddress))
	assert.Empty(t, bus.Writes(RegCommand))
	assert.Empty(t, bus.Writes(RegControl))
	assert.Empty(t, bus.Writes(RegStatus))
	assert.Len(t, bus.Accesses(), DefaultRetryBudget)
}

func TestReadByteDataControllerNotFound(t *testing.T) {
	bus := NewDryBus(map[byte][]byte{0x50: newTestImage(256)})
	tr := NewTransport(bus, 0, testConfig())

	for i := 0; i < 3; i++ {
		_, err := tr.ReadByteData(0x50, byte(i))
		require.ErrorIs(t, err, ErrControllerNotFound)
	}
	assert.Empty(t, bus.Accesses())
}

func TestReadByteDataErrorStatus(t *testing.T) {
	bus := NewDryBus(map[byte][]byte{0x50: newTestImage(256)})
	bus.FailAt[0x50] = 4
	tr := NewTransport(bus, bus.Base(), testConfig())

	_, err := tr.ReadByteData(0x50, 3)
	require.NoError(t, err)

	_, err = tr.ReadByteData(0x50, 4)
	require.ErrorIs(t, err, ErrTransaction)
	assert.NotErrorIs(t, err, ErrBusTimeout)

	// error state is cleared by the next transaction's status write
	_, err = tr.ReadByteData(0x50, 5)
	require.NoError(t, err)
}

func TestReadByteDataMissingSlave(t *testing.T) {
	bus := NewDryBus(nil)
	tr := NewTransport(bus, bus.Base(), testConfig())

	_, err := tr.ReadByteData(0x55, 0)
	require.ErrorIs(t, err, ErrTransaction)
}

func TestReadByteDataCompletionTimeout(t *testing.T) {
	bus := NewDryBus(map[byte][]byte{0x50: newTestImage(256)})
	bus.NeverComplete = true
	tr := NewTransport(bus, bus.Base(), testConfig())

	v, err := tr.ReadByteData(0x50, 0)
	require.ErrorIs(t, err, ErrBusTimeout)
	assert.Zero(t, v)

	var be *BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "complete", be.Op)

	// data register is never read without completion
	for _, a := range bus.Accesses() {
		assert.NotEqual(t, bus.Base()+RegData0, a.Port)
	}
}

func TestReadByteDataSlowCompletion(t *testing.T) {
	img := newTestImage(256)
	bus := NewDryBus(map[byte][]byte{0x51: img})
	bus.CompletionPolls = 25
	tr := NewTransport(bus, bus.Base(), testConfig())

	v, err := tr.ReadByteData(0x51, 9)
	require.NoError(t, err)
	assert.Equal(t, img[9], v)
}

func TestReadByteDataCompletionBudgetIsSeparate(t *testing.T) {
	img := newTestImage(256)
	bus := NewDryBus(map[byte][]byte{0x51: img})
	cfg := testConfig()
	cfg.RetryBudget = 5
	tr := NewTransport(bus, bus.Base(), cfg)

	bus.CompletionPolls = 4
	_, err := tr.ReadByteData(0x51, 1)
	require.NoError(t, err)

	bus.CompletionPolls = 5
	_, err = tr.ReadByteData(0x51, 1)
	require.ErrorIs(t, err, ErrBusTimeout)
}

func TestTrace(t *testing.T) {
	bus := NewDryBus(map[byte][]byte{0x50: newTestImage(256)})
	bus.FailAt[0x50] = 1

	var got []Transaction
	cfg := testConfig()
	cfg.Trace = func(tx Transaction) { got = append(got, tx) }
	tr := NewTransport(bus, bus.Base(), cfg)

	_, _ = tr.ReadByteData(0x50, 0)
	_, _ = tr.ReadByteData(0x50, 1)

	require.Len(t, got, 2)
	assert.Equal(t, OutcomeOK, got[0].Outcome)
	assert.Equal(t, OutcomeBusError, got[1].Outcome)
	assert.Equal(t, byte(1), got[1].Offset)
	assert.Equal(t, "bus-error", got[1].Outcome.String())
}

func TestSelectPage(t *testing.T) {
	img := newTestImage(512)
	bus := NewDryBus(map[byte][]byte{0x50: img})
	tr := NewTransport(bus, bus.Base(), testConfig())

	require.NoError(t, tr.SelectPage(1))
	assert.Equal(t, 1, bus.Page())
	assert.Equal(t, []byte{(SetPageAddress + 1) << 1}, bus.Writes(RegAddress)[:1])

	v, err := tr.ReadByteData(0x50, 0x10)
	require.NoError(t, err)
	assert.Equal(t, img[0x110], v)

	require.NoError(t, tr.SelectPage(0))
	v, err = tr.ReadByteData(0x50, 0x10)
	require.NoError(t, err)
	assert.Equal(t, img[0x10], v)

	require.Error(t, tr.SelectPage(2))
}

func TestSelectPageUnsupported(t *testing.T) {
	bus := NewDryBus(nil)
	bus.NoPaging = true
	tr := NewTransport(bus, bus.Base(), testConfig())

	require.ErrorIs(t, tr.SelectPage(1), ErrTransaction)
}
