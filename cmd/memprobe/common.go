package main

import (
	"fmt"
	"runtime"

	"github.com/mscrnt/memprobe/pkg/agent"
	"github.com/mscrnt/memprobe/pkg/control"
	"github.com/mscrnt/memprobe/pkg/db"
	"github.com/mscrnt/memprobe/pkg/smbus"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// Snapshot sources
const (
	sourceDryRun   = "dry-run"
	sourceHardware = "hardware"
	sourceDriver   = "driver"
	sourceRemote   = "remote"
)

// openClient connects to whatever serves control requests.
func openClient() (*control.Client, string, error) {
	dev, source, err := openDevice(true)
	if err != nil {
		return nil, "", err
	}
	return control.NewClient(dev), source, nil
}

// openDevice picks the request path: a remote agent, the simulated bus in
// dry-run mode, the Windows driver, or an in-process dispatcher over
// /dev/port elsewhere.
func openDevice(allowRemote bool) (control.Device, string, error) {
	if allowRemote && cfg.Remote.Host != "" {
		dev, err := agent.NewClient(cfg.Remote.Addr(), cfg.Remote.Credentials())
		if err != nil {
			return nil, "", err
		}
		logger.Printf("using agent at %s", cfg.Remote.Addr())
		return dev, sourceRemote + ":" + cfg.Remote.Host, nil
	}

	if cfg.DryRun {
		bus := smbus.NewDryBus(spdreader.SampleBus())
		dev, err := localDevice(bus, bus, sourceDryRun, func() (string, error) { return timings.VendorIntel, nil })
		return dev, sourceDryRun, err
	}

	if runtime.GOOS == "windows" {
		dev, err := control.OpenDevice(cfg.DevicePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", cfg.DevicePath, err)
		}
		return dev, sourceDriver, nil
	}

	bus, err := smbus.OpenPortBus(cfg.Bus.PortDevice)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open port device: %w", err)
	}
	var resolver smbus.Resolver = smbus.DefaultResolver()
	if cfg.Bus.BaseAddress != 0 {
		resolver = smbus.StaticResolver(cfg.Bus.BaseAddress)
	}
	dev, err := localDevice(bus, resolver, sourceHardware, nil)
	return dev, sourceHardware, err
}

func localDevice(hw smbus.HardwareBus, resolver smbus.Resolver, source string, vendor func() (string, error)) (control.Device, error) {
	busCfg := cfg.SMBus()
	if verbose {
		busCfg.Trace = func(tx smbus.Transaction) {
			op := "read"
			if tx.Write {
				op = "write"
			}
			logger.Printf("smbus: %s slave 0x%02X offset 0x%02X value 0x%02X: %s", op, tx.Slave, tx.Offset, tx.Value, tx.Outcome)
		}
	}

	acquirer := spdreader.NewAcquirer(smbus.NewSession(hw, resolver, busCfg), logger)

	registry := timings.NewRegistry()
	if err := timings.RegisterDefaults(registry, &timings.SPDDecoder{Reader: acquirer}); err != nil {
		_ = acquirer.Close()
		return nil, fmt.Errorf("failed to register timing decoders: %w", err)
	}
	if vendor != nil {
		registry.SetVendorFunc(vendor)
	}

	logger.Printf("using %s bus", source)
	return control.NewLocalDevice(&control.Dispatcher{
		Timings: registry,
		SPD:     acquirer,
		Logger:  logger,
	}, acquirer.Close), nil
}

// acquire runs one pass and returns the images with the per-slot reasons.
func acquire() (spdreader.Acquisition, string, error) {
	client, source, err := openClient()
	if err != nil {
		return spdreader.Acquisition{}, "", err
	}
	defer func() { _ = client.Close() }()

	acq, err := client.ReadAll()
	if err != nil {
		return acq, source, fmt.Errorf("failed to read SPD data: %w", err)
	}
	return acq, source, nil
}

func openDB() (*db.DB, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
