package smbus

import (
	"fmt"
	"sync"
)

// DefaultDryBase is the I/O base DryBus answers on unless told otherwise.
const DefaultDryBase = 0x0400

// PortAccess is one recorded register access on a DryBus.
type PortAccess struct {
	Port  uint16
	Value byte
	Write bool
}

// DryBus simulates an ICH-style SMBus controller with SPD EEPROMs attached.
// No hardware I/O is performed. Failure injection fields may be set before use.
type DryBus struct {
	mu   sync.Mutex
	base uint16

	images map[byte][]byte
	page   int

	status  byte
	address byte
	command byte
	data    byte
	control byte
	pending int

	// StuckBusy keeps the busy bit set forever.
	StuckBusy bool
	// NeverComplete starts transactions that never raise intr or error.
	NeverComplete bool
	// CompletionPolls is how many status reads a transaction stays busy.
	CompletionPolls int
	// FailAt makes the transaction for slave at the given offset flag an error.
	FailAt map[byte]int
	// NoPaging makes set-page writes fail, as on legacy-only buses.
	NoPaging bool

	accesses []PortAccess
}

// NewDryBus creates a simulated bus. images maps slave address to EEPROM
// contents; images longer than 256 bytes are paged like DDR4 parts.
func NewDryBus(images map[byte][]byte) *DryBus {
	d := &DryBus{
		base:   DefaultDryBase,
		images: make(map[byte][]byte, len(images)),
		FailAt: make(map[byte]int),
	}
	for addr, img := range images {
		d.images[addr] = append([]byte(nil), img...)
	}
	return d
}

// Base returns the simulated controller base address.
func (d *DryBus) Base() uint16 {
	return d.base
}

// Resolve implements Resolver for the simulated controller.
func (d *DryBus) Resolve() (uint16, error) {
	return d.base, nil
}

// Page returns the currently selected EEPROM page.
func (d *DryBus) Page() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

// Accesses returns a copy of every register access so far.
func (d *DryBus) Accesses() []PortAccess {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PortAccess(nil), d.accesses...)
}

// Writes returns the recorded writes to the register at offset reg.
func (d *DryBus) Writes(reg uint16) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []byte
	for _, a := range d.accesses {
		if a.Write && a.Port == d.base+reg {
			out = append(out, a.Value)
		}
	}
	return out
}

// ResetAccesses clears the access log.
func (d *DryBus) ResetAccesses() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accesses = nil
}

// ReadPort implements HardwareBus.
func (d *DryBus) ReadPort(port uint16) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	reg, err := d.register(port)
	if err != nil {
		return 0, err
	}

	var value byte
	switch reg {
	case RegStatus:
		value = d.readStatus()
	case RegCommand:
		value = d.command
	case RegAddress:
		value = d.address
	case RegData0:
		value = d.data
	}
	d.accesses = append(d.accesses, PortAccess{Port: port, Value: value})
	return value, nil
}

// WritePort implements HardwareBus.
func (d *DryBus) WritePort(port uint16, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	reg, err := d.register(port)
	if err != nil {
		return err
	}
	d.accesses = append(d.accesses, PortAccess{Port: port, Value: value, Write: true})

	switch reg {
	case RegStatus:
		d.status &^= value & (StatusIntr | StatusError)
	case RegAddress:
		d.address = value
	case RegCommand:
		d.command = value
	case RegControl:
		d.start(value)
	}
	return nil
}

// Close implements HardwareBus.
func (d *DryBus) Close() error {
	return nil
}

func (d *DryBus) register(port uint16) (uint16, error) {
	if port < d.base || port > d.base+RegData1 {
		return 0, fmt.Errorf("dry bus: port 0x%04X outside controller window", port)
	}
	return port - d.base, nil
}

func (d *DryBus) readStatus() byte {
	if d.StuckBusy {
		return d.status | StatusBusy
	}
	if d.status&StatusBusy != 0 {
		if d.pending > 0 {
			d.pending--
			return d.status
		}
		if d.NeverComplete {
			d.status &^= StatusBusy
			return d.status
		}
		d.finish()
	}
	return d.status
}

func (d *DryBus) start(op byte) {
	d.status |= StatusBusy
	d.pending = d.CompletionPolls
	d.data = 0
	d.control = op
}

// finish completes the in-flight transaction.
func (d *DryBus) finish() {
	d.status &^= StatusBusy
	slave := d.address >> 1
	read := d.address&ReadBit != 0

	if !read {
		if d.control != OpByteData || d.NoPaging || (slave != SetPageAddress && slave != SetPageAddress+1) {
			d.status |= StatusError
			return
		}
		d.page = int(slave - SetPageAddress)
		d.status |= StatusIntr
		return
	}

	if d.control != OpBlockRead {
		d.status |= StatusError
		return
	}
	img, ok := d.images[slave]
	offset := d.page*256 + int(d.command)
	if !ok || offset >= len(img) {
		d.status |= StatusError
		return
	}
	if at, fail := d.FailAt[slave]; fail && at == offset {
		d.status |= StatusError
		return
	}
	d.data = img[offset]
	d.status |= StatusIntr
}
