//go:build linux
// +build linux

package smbus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/option"
)

// PCIResolver locates the SMBus host controller by walking the PCI bus for a
// serial-bus/SMBus class device and reading its I/O BAR from sysfs.
type PCIResolver struct {
	// Chroot roots both the PCI walk and the config-space read. Empty means /.
	Chroot string
}

// Resolve returns the I/O base of the first Intel SMBus controller found.
func (r PCIResolver) Resolve() (uint16, error) {
	chroot := r.Chroot
	if chroot == "" {
		chroot = "/"
	}

	// class and vendor IDs come from each device's modalias, so an empty or
	// stale pci.ids only costs the human-readable names
	pcis, err := ghw.PCI(option.WithChroot(chroot), option.WithDisableTools(), option.WithNullAlerter())
	if err != nil {
		return 0, fmt.Errorf("could not retrieve PCI information: %w", err)
	}

	root := filepath.Join(chroot, "sys", "bus", "pci", "devices")

	for _, dev := range pcis.Devices {
		if dev == nil || dev.Class == nil || dev.Subclass == nil || dev.Vendor == nil {
			continue
		}
		if !strings.EqualFold(dev.Class.ID, pciClassSerialBus) || !strings.EqualFold(dev.Subclass.ID, pciSubclassSMBus) {
			continue
		}
		if !strings.EqualFold(dev.Vendor.ID, pciVendorIntel) {
			// AMD FCH exposes the SMBus base through PM registers, not a BAR
			continue
		}

		config, err := os.ReadFile(filepath.Join(root, dev.Address, "config"))
		if err != nil {
			return 0, fmt.Errorf("failed to read PCI config of %s: %w", dev.Address, err)
		}
		if len(config) < pciSMBusBAR+4 {
			return 0, fmt.Errorf("short PCI config for %s: %d bytes", dev.Address, len(config))
		}
		if base := decodeIOBAR(config[pciSMBusBAR : pciSMBusBAR+4]); base != 0 {
			return base, nil
		}
	}

	return 0, ErrControllerNotFound
}

// DefaultResolver returns the platform resolver.
func DefaultResolver() Resolver {
	return PCIResolver{}
}
