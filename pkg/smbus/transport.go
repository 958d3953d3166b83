package smbus

import (
	"errors"
	"fmt"
	"time"
)

// Outcome is how a single bus transaction ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimeout
	OutcomeBusError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "bus-error"
	}
}

// Transaction records one protocol exchange. It only lives for the duration
// of the Trace callback.
type Transaction struct {
	Slave   byte
	Offset  byte
	Value   byte
	Write   bool
	Outcome Outcome
	Err     error
}

// Config tunes the polling loops of a Transport.
type Config struct {
	PollInterval time.Duration
	RetryBudget  int

	// Stall waits between status polls. Defaults to time.Sleep.
	Stall func(time.Duration)

	// Trace, when set, is called once per transaction.
	Trace func(Transaction)
}

// DefaultConfig returns the 10µs x 1000 polling policy.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		RetryBudget:  DefaultRetryBudget,
		Stall:        time.Sleep,
	}
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RetryBudget <= 0 {
		c.RetryBudget = DefaultRetryBudget
	}
	if c.Stall == nil {
		c.Stall = time.Sleep
	}
	return c
}

// Transport performs byte reads against a host controller at a fixed base.
// It is not safe for concurrent use; callers serialize whole passes.
type Transport struct {
	hw   HardwareBus
	base uint16
	cfg  Config
}

// NewTransport creates a transport for the controller at base. A zero base is
// accepted; every call on it then fails with ErrControllerNotFound.
func NewTransport(hw HardwareBus, base uint16, cfg Config) *Transport {
	return &Transport{
		hw:   hw,
		base: base,
		cfg:  cfg.withDefaults(),
	}
}

// Base returns the controller I/O base address.
func (t *Transport) Base() uint16 {
	return t.base
}

// ReadByteData reads the byte at offset from the device at slave.
func (t *Transport) ReadByteData(slave, offset byte) (byte, error) {
	value, err := t.readByteData(slave, offset)
	t.trace(Transaction{Slave: slave, Offset: offset, Value: value}, err)
	return value, err
}

// SelectPage switches the 256-byte page of every EEPROM on the bus by
// addressing the JEDEC SPA0 (page 0) or SPA1 (page 1) set-page address.
func (t *Transport) SelectPage(page int) error {
	if page < 0 || page > 1 {
		return fmt.Errorf("invalid SPD page %d", page)
	}
	slave := byte(SetPageAddress + page)
	err := t.writeQuick(slave)
	t.trace(Transaction{Slave: slave, Write: true}, err)
	return err
}

func (t *Transport) readByteData(slave, offset byte) (byte, error) {
	if err := t.begin(slave, offset, slave<<1|ReadBit, OpBlockRead); err != nil {
		return 0, err
	}

	value, err := t.hw.ReadPort(t.base + RegData0)
	if err != nil {
		return 0, t.ioError(slave, offset, err)
	}
	return value, nil
}

func (t *Transport) writeQuick(slave byte) error {
	return t.begin(slave, 0, slave<<1, OpByteData)
}

// begin runs the shared part of the protocol: arbitration, status clear,
// setup, start and completion. It returns nil only once the controller has
// flagged completion without error.
func (t *Transport) begin(slave, offset, address, op byte) error {
	if t.base == 0 {
		return &BusError{Op: "resolve", Slave: slave, Offset: offset, Err: ErrControllerNotFound}
	}

	if _, err := t.poll(func(status byte) bool { return status&StatusBusy == 0 }); err != nil {
		return t.wrap("arbitrate", slave, offset, err)
	}

	writes := []struct {
		reg   uint16
		value byte
	}{
		{RegStatus, StatusIntr | StatusError},
		{RegAddress, address},
		{RegCommand, offset},
		{RegControl, op},
	}
	for _, w := range writes {
		if err := t.hw.WritePort(t.base+w.reg, w.value); err != nil {
			return t.ioError(slave, offset, err)
		}
	}

	status, err := t.poll(func(status byte) bool { return status&(StatusIntr|StatusError) != 0 })
	if err != nil {
		return t.wrap("complete", slave, offset, err)
	}
	if status&StatusError != 0 || status&StatusIntr == 0 {
		return &BusError{Op: "complete", Slave: slave, Offset: offset,
			Err: fmt.Errorf("%w: status 0x%02X", ErrTransaction, status)}
	}
	return nil
}

// poll reads the status register until done reports true, stalling between
// reads, for at most RetryBudget reads.
func (t *Transport) poll(done func(status byte) bool) (byte, error) {
	var status byte
	for i := 0; i < t.cfg.RetryBudget; i++ {
		s, err := t.hw.ReadPort(t.base + RegStatus)
		if err != nil {
			return 0, err
		}
		status = s
		if done(status) {
			return status, nil
		}
		t.cfg.Stall(t.cfg.PollInterval)
	}
	return status, ErrBusTimeout
}

func (t *Transport) wrap(op string, slave, offset byte, err error) error {
	if errors.Is(err, ErrBusTimeout) {
		return &BusError{Op: op, Slave: slave, Offset: offset, Err: ErrBusTimeout}
	}
	return t.ioError(slave, offset, err)
}

func (t *Transport) ioError(slave, offset byte, err error) error {
	return &BusError{Op: "io", Slave: slave, Offset: offset, Err: fmt.Errorf("%w: %w", ErrTransaction, err)}
}

func (t *Transport) trace(tx Transaction, err error) {
	if t.cfg.Trace == nil {
		return
	}
	tx.Err = err
	switch {
	case err == nil:
		tx.Outcome = OutcomeOK
	case errors.Is(err, ErrBusTimeout):
		tx.Outcome = OutcomeTimeout
	default:
		tx.Outcome = OutcomeBusError
	}
	t.cfg.Trace(tx)
}
