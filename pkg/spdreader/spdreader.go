package spdreader

import (
	"fmt"
	"log"
	"sync"

	"go.uber.org/multierr"

	"github.com/mscrnt/memprobe/pkg/smbus"
)

// Reader interface for SPD reading implementations
type Reader interface {
	ReadAll() (Acquisition, error)
	Close() error
}

// Acquisition is the result of one pass over all slots. Images are always in
// slot order; Errors holds the reason each invalid slot failed.
type Acquisition struct {
	Images [SlotCount]SpdImage
	Errors [SlotCount]error
}

// Valid returns the valid images in slot order.
func (a Acquisition) Valid() []SpdImage {
	var out []SpdImage
	for _, img := range a.Images {
		if img.Valid {
			out = append(out, img)
		}
	}
	return out
}

// Err combines the per-slot failures, or returns nil when every slot was read.
func (a Acquisition) Err() error {
	var err error
	for i, e := range a.Errors {
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("slot %d (0x%02X): %w", i, SlaveAddress(i), e))
		}
	}
	return err
}

func newAcquisition() Acquisition {
	var a Acquisition
	for i := range a.Images {
		a.Images[i].Slot = i
	}
	return a
}

// Acquirer reads SPD images over a bus session. One pass runs at a time.
type Acquirer struct {
	mu      sync.Mutex
	session *smbus.Session
	logger  *log.Logger
}

var _ Reader = (*Acquirer)(nil)

// NewAcquirer creates an acquirer that owns session.
func NewAcquirer(session *smbus.Session, logger *log.Logger) *Acquirer {
	if logger == nil {
		logger = log.Default()
	}
	return &Acquirer{
		session: session,
		logger:  logger,
	}
}

// ReadAll implements Reader.
func (a *Acquirer) ReadAll() (Acquisition, error) {
	return a.AcquireAll()
}

// AcquireAll reads every slot from 0x50 to 0x57. A slot that fails is
// reported as invalid data; only an unresolved controller fails the pass.
func (a *Acquirer) AcquireAll() (Acquisition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acq := newAcquisition()

	tr, err := a.session.Transport()
	if err != nil {
		return acq, fmt.Errorf("failed to resolve SMBus controller: %w", err)
	}

	p := &pass{tr: tr, logger: a.logger}
	for slot := 0; slot < SlotCount; slot++ {
		acq.Images[slot], acq.Errors[slot] = p.readSlot(slot)
	}
	p.restorePage()

	return acq, nil
}

// Close releases the bus session.
func (a *Acquirer) Close() error {
	return a.session.Close()
}

// pass tracks bus state across the slots of one acquisition. The EEPROM page
// is shared by every device on the bus and starts out as page 0. A rejected
// page switch leaves the previous page selected.
type pass struct {
	tr     *smbus.Transport
	logger *log.Logger
	page   int
}

func (p *pass) readSlot(slot int) (SpdImage, error) {
	img := SpdImage{Slot: slot}
	addr := SlaveAddress(slot)

	if err := p.setPage(0); err != nil {
		return img, fmt.Errorf("failed to select page 0: %w", err)
	}

	var header [HeaderSize]byte
	for off := range header {
		b, err := p.tr.ReadByteData(addr, byte(off))
		if err != nil {
			return img, fmt.Errorf("no SPD header: %w", err)
		}
		header[off] = b
	}

	img.Length = ClassifyLength(header)

	for off := 0; off < img.Length; off++ {
		if err := p.setPage(off / 256); err != nil {
			img.Data = [MaxImageSize]byte{}
			p.logger.Printf("SPD slot %d: page switch failed at offset 0x%03X: %v", slot, off, err)
			return img, fmt.Errorf("failed to select page %d: %w", off/256, err)
		}
		b, err := p.tr.ReadByteData(addr, byte(off%256))
		if err != nil {
			img.Data = [MaxImageSize]byte{}
			p.logger.Printf("SPD slot %d: read aborted at offset 0x%03X: %v", slot, off, err)
			return img, fmt.Errorf("read failed at offset 0x%03X: %w", off, err)
		}
		img.Data[off] = b
	}

	img.Valid = true
	return img, nil
}

func (p *pass) setPage(page int) error {
	if p.page == page {
		return nil
	}
	if err := p.tr.SelectPage(page); err != nil {
		return err
	}
	p.page = page
	return nil
}

// restorePage leaves the bus on page 0 for whoever uses it next.
func (p *pass) restorePage() {
	if p.page == 0 {
		return
	}
	if err := p.setPage(0); err != nil {
		p.logger.Printf("SPD: failed to restore page 0: %v", err)
	}
}
