package timings

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPU vendor IDs as reported by CPUID leaf 0
const (
	VendorIntel = "GenuineIntel"
	VendorAMD   = "AuthenticAMD"
)

// Decoder reads the current timings from one vendor's memory controller.
type Decoder interface {
	Name() string
	Decode() (RamTimings, error)
}

// Registry maps CPU vendor IDs to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
	vendorID func() (string, error)
}

// NewRegistry creates an empty registry that detects the vendor via gopsutil.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
		vendorID: HostVendorID,
	}
}

// Register adds a decoder for vendor. A vendor has at most one decoder.
func (r *Registry) Register(vendor string, d Decoder) error {
	if d == nil {
		return fmt.Errorf("decoder cannot be nil")
	}
	if vendor == "" {
		return fmt.Errorf("vendor cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[vendor]; exists {
		return fmt.Errorf("decoder for %q already registered", vendor)
	}

	r.decoders[vendor] = d
	return nil
}

// Get retrieves the decoder for vendor.
func (r *Registry) Get(vendor string) (Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.decoders[vendor]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVendor, vendor)
	}
	return d, nil
}

// Vendors returns the registered vendor IDs in sorted order.
func (r *Registry) Vendors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vendors := make([]string, 0, len(r.decoders))
	for v := range r.decoders {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	return vendors
}

// Detect picks the decoder for the host CPU vendor.
func (r *Registry) Detect() (Decoder, error) {
	vendor, err := r.vendorID()
	if err != nil {
		return nil, fmt.Errorf("failed to detect CPU vendor: %w", err)
	}
	return r.Get(vendor)
}

// Read detects the vendor and decodes the current timings.
func (r *Registry) Read() (RamTimings, error) {
	d, err := r.Detect()
	if err != nil {
		return RamTimings{}, err
	}
	t, err := d.Decode()
	if err != nil {
		return RamTimings{}, fmt.Errorf("%s decoder: %w", d.Name(), err)
	}
	return t, nil
}

// SetVendorFunc overrides vendor detection.
func (r *Registry) SetVendorFunc(fn func() (string, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendorID = fn
}

// HostVendorID returns the vendor ID of the first CPU.
func HostVendorID() (string, error) {
	info, err := cpu.Info()
	if err != nil {
		return "", err
	}
	if len(info) == 0 {
		return "", fmt.Errorf("no CPU information available")
	}
	return info[0].VendorID, nil
}
