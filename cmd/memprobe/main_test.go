package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mscrnt/memprobe/pkg/cert"
	"github.com/mscrnt/memprobe/pkg/config"
	"github.com/mscrnt/memprobe/pkg/control"
	"github.com/mscrnt/memprobe/pkg/smbus"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

type testEnv struct {
	config string
	output string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		config: filepath.Join(dir, "config.toml"),
		output: filepath.Join(dir, "spd"),
	}
	body := "output_dir = '" + env.output + "'\n" +
		"db_path = '" + filepath.Join(dir, "memprobe.db") + "'\n" +
		"dry_run = true\n"
	require.NoError(t, os.WriteFile(env.config, []byte(body), 0o600))
	return env
}

func (e testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestReadDryRun(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "read", "--detail")

	assert.Contains(t, out, "0x50")
	assert.Contains(t, out, "0x57")
	assert.Contains(t, out, "DDR4")
	assert.Contains(t, out, "Samsung")
	assert.Contains(t, out, "empty")
	assert.Contains(t, out, "DDR4-2666")
	assert.Contains(t, out, "M378A1K43CB2-CTD")
	assert.Contains(t, out, "1234ABCD")
}

func TestSaveAndDecode(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "save")
	assert.Contains(t, out, "dimm0.spd")
	assert.Contains(t, out, "dimm2.spd")

	info, err := os.Stat(filepath.Join(env.output, "dimm2.spd"))
	require.NoError(t, err)
	assert.EqualValues(t, 512, info.Size())
	assert.NoFileExists(t, filepath.Join(env.output, "dimm1.spd"))

	out = env.run(t, "decode", filepath.Join(env.output, "dimm2.spd"))
	assert.Contains(t, out, "Slot 2: DDR4-2666")
	assert.Contains(t, out, "1234ABCE")
}

func TestDumpSlot(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "dump", "--slot", "0")

	assert.Contains(t, out, "Slot 0 (0x50), 512 bytes")
	assert.NotContains(t, out, "Slot 2")
	assert.Contains(t, out, "M378A1K")
}

func TestDumpEmptySlot(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "dump", "--slot", "5")
	assert.Contains(t, out, "No SPD data")
}

func TestTimingsDryRun(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "timings")

	assert.Contains(t, out, "DDR4 19-19-19-43")
	// StyleLight upper-cases the header row
	assert.Contains(t, out, "OPTIMIZED")
	assert.Regexp(t, `tCL\s+│\s+19\s+│\s+18\s+│`, out)
	assert.Contains(t, out, "1.200 V")
}

func TestRecordAndHistory(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "read", "--record")
	assert.Contains(t, out, "Recorded snapshot 1 (complete)")

	out = env.run(t, "history")
	assert.Contains(t, out, "dry-run")
	assert.Contains(t, out, "complete")

	out = env.run(t, "history", "--export-csv", "1")
	assert.Contains(t, out, "Snapshot ID")
}

func TestHistoryEmpty(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "history")
	assert.Contains(t, out, "No snapshots recorded")
}

func TestSlotFromName(t *testing.T) {
	assert.Equal(t, 3, slotFromName("/tmp/spd/dimm3.spd"))
	assert.Equal(t, 0, slotFromName("module.bin"))
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "version")
	assert.Contains(t, out, "memprobe")
}

func TestReportCommand(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "read", "--record")

	out := filepath.Join(t.TempDir(), "report.html")
	env.run(t, "report", "1", "--html", out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Memory Snapshot #1")
	assert.Contains(t, string(data), "M378A1K43CB2-CTD")
}

func TestCertLifecycle(t *testing.T) {
	cert.CAKeyBits = 2048
	env := newTestEnv(t)
	dir := filepath.Join(t.TempDir(), "certs")

	out := env.run(t, "cert", "init", "--dir", dir)
	assert.Contains(t, out, "ca.pem")

	out = env.run(t, "cert", "issue-client", "--dir", dir, "--name", "ops")
	assert.Contains(t, out, "client-ops.pem")

	out = env.run(t, "cert", "verify", "--dir", dir, filepath.Join(dir, "client-ops.pem"))
	assert.Contains(t, out, "Status: VALID")
	assert.Contains(t, out, "Role: client")
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("bench-01", 2223)
	require.NoError(t, err)
	assert.Equal(t, "bench-01", host)
	assert.Equal(t, 2223, port)

	host, port, err = splitHostPort("10.0.0.12:9000", 2223)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.12", host)
	assert.Equal(t, 9000, port)

	_, _, err = splitHostPort("bench-01:http", 2223)
	assert.Error(t, err)
}

func TestLocalDevice(t *testing.T) {
	savedCfg, savedLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = savedCfg, savedLogger })
	cfg = config.Default()
	logger = log.New(io.Discard, "", 0)

	bus := smbus.NewDryBus(spdreader.SampleBus())
	dev, err := localDevice(bus, bus, sourceDryRun, func() (string, error) { return timings.VendorAMD, nil })
	require.NoError(t, err)

	client := control.NewClient(dev)
	defer client.Close()

	rt, err := client.ReadTimings()
	require.NoError(t, err, "both vendors get the SPD decoder")
	assert.Equal(t, "19-19-19-43", rt.Primary())

	acq, err := client.ReadAll()
	require.NoError(t, err)
	assert.Len(t, acq.Valid(), 2)
}
