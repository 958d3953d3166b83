package smbus

import (
	"errors"
	"fmt"
)

var (
	// ErrControllerNotFound means the host controller base address is unresolved.
	ErrControllerNotFound = errors.New("smbus controller not found")

	// ErrBusTimeout means a polling loop spent its whole retry budget.
	ErrBusTimeout = errors.New("smbus timeout")

	// ErrTransaction means the controller flagged an error or never signalled completion.
	ErrTransaction = errors.New("smbus transaction error")
)

// BusError describes a failed byte read.
type BusError struct {
	Op     string // "resolve", "arbitrate", "complete", "io"
	Slave  byte
	Offset byte
	Err    error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("smbus %s slave 0x%02X offset 0x%02X: %v", e.Op, e.Slave, e.Offset, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
