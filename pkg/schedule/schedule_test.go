package schedule

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/memprobe/pkg/db"
	"github.com/mscrnt/memprobe/pkg/smbus"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func dryReader(resolver smbus.Resolver) spdreader.Reader {
	bus := smbus.NewDryBus(spdreader.SampleBus())
	if resolver == nil {
		resolver = bus
	}
	cfg := smbus.DefaultConfig()
	cfg.Stall = func(time.Duration) {}
	return spdreader.NewAcquirer(smbus.NewSession(bus, resolver, cfg), quietLogger())
}

type staticTimings struct{ err error }

func (s staticTimings) Read() (timings.RamTimings, error) {
	return timings.RamTimings{DDRVersion: timings.DDR4, TCL: 19}, s.err
}

func TestParseExpr(t *testing.T) {
	for _, expr := range []string{"@every 1h", "*/5 * * * *", "0 3 * * 1", "@daily"} {
		_, err := ParseExpr(expr)
		assert.NoError(t, err, expr)
	}

	_, err := ParseExpr("* * * * * *")
	assert.Error(t, err, "seconds field is not accepted")
	_, err = ParseExpr("whenever")
	assert.Error(t, err)
}

func TestRunnerAdd(t *testing.T) {
	r := NewRunner(quietLogger())
	noop := func(context.Context) error { return nil }

	require.NoError(t, r.Add("capture", "@every 1h", noop))
	assert.Error(t, r.Add("capture", "@every 1h", noop), "duplicate")
	assert.Error(t, r.Add("", "@every 1h", noop))
	assert.Error(t, r.Add("other", "bad expr", noop))
	assert.Error(t, r.Add("nil", "@every 1h", nil))

	assert.Len(t, r.ListJobs(), 1)

	r.Remove("capture")
	assert.Empty(t, r.ListJobs())
	r.Remove("capture")
}

func TestRunnerRunNow(t *testing.T) {
	r := NewRunner(quietLogger())
	var calls int32
	require.NoError(t, r.Add("count", "@every 1h", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	require.NoError(t, r.Add("fail", "@every 1h", func(context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, r.Add("panic", "@every 1h", func(context.Context) error {
		panic("bad slot")
	}))

	require.NoError(t, r.RunNow("count"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.EqualError(t, r.RunNow("fail"), "boom")
	assert.ErrorContains(t, r.RunNow("panic"), "panic in job panic: bad slot")
	assert.Error(t, r.RunNow("missing"))
}

func TestRunnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(log.New(&buf, "", 0))
	fired := make(chan struct{}, 1)
	require.NoError(t, r.Add("tick", "@every 1s", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}))

	r.Start()
	assert.False(t, r.Next("tick").IsZero())
	assert.True(t, r.Next("missing").IsZero())

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not fire")
	}

	r.Stop(time.Second)
	assert.Contains(t, buf.String(), "Scheduler started with 1 jobs")
}

func TestCaptureRecordsSnapshot(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "memprobe.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	outDir := t.TempDir()
	c := &Capture{
		Source:    "dry-run",
		Reader:    dryReader(nil),
		Timings:   staticTimings{},
		Store:     store,
		OutputDir: outDir,
		Logger:    quietLogger(),
	}

	snap, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.ValidSlots)

	rt, err := store.GetTimings(snap.ID)
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, uint16(19), rt.TCL)

	assert.FileExists(t, filepath.Join(outDir, "dimm0.spd"))
	assert.FileExists(t, filepath.Join(outDir, "dimm2.spd"))
}

func TestCaptureTimingsFailureIsNotFatal(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "memprobe.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	c := &Capture{Source: "dry-run", Reader: dryReader(nil), Timings: staticTimings{err: timings.ErrUnsupportedVendor}, Store: store}
	snap, err := c.Run(context.Background())
	require.NoError(t, err)

	rt, err := store.GetTimings(snap.ID)
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestCaptureControllerNotFound(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "memprobe.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	c := &Capture{Source: "hardware", Reader: dryReader(smbus.StaticResolver(0)), Store: store}
	snap, err := c.Run(context.Background())
	assert.ErrorIs(t, err, smbus.ErrControllerNotFound)
	require.NotNil(t, snap)
	assert.Equal(t, db.SnapshotStatusFailed, snap.GetStatus())
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Capture{Reader: dryReader(nil)}
	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// without a store nothing is recorded
	snap, err := c.Run(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, snap)
}
