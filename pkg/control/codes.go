// Package control is the request/response boundary between the privileged
// hardware side and user-space consumers. Requests are identified by a
// Windows-style control code and carry fixed-size packed records.
package control

import "errors"

// Control code fields
const (
	FileDeviceUnknown = 0x22
	MethodBuffered    = 0
	FileAnyAccess     = 0
)

// CtlCode builds a control code the way the Windows CTL_CODE macro does.
func CtlCode(deviceType, function, method, access uint32) uint32 {
	return deviceType<<16 | access<<14 | function<<2 | method
}

var (
	// CodeReadTimings returns one timings.RamTimings record.
	CodeReadTimings = CtlCode(FileDeviceUnknown, 0x800, MethodBuffered, FileAnyAccess)
	// CodeReadSPD returns the eight SPD image records.
	CodeReadSPD = CtlCode(FileDeviceUnknown, 0x801, MethodBuffered, FileAnyAccess)
)

// DefaultDevicePath is the device the driver exposes.
const DefaultDevicePath = `\\.\HardwareMonitor`

var (
	// ErrInvalidBufferSize is returned when a request's buffers do not match
	// the record size of its code exactly.
	ErrInvalidBufferSize = errors.New("invalid buffer size")
	// ErrUnsupportedRequest is returned for unknown control codes.
	ErrUnsupportedRequest = errors.New("unsupported request")
	// ErrNoSource is returned when a known code has no source wired to the
	// dispatcher.
	ErrNoSource = errors.New("no data source")
	// ErrShortResponse is returned by the client when the device reports
	// fewer bytes than the record size.
	ErrShortResponse = errors.New("short response")
)

// CodeName names a control code for logs.
func CodeName(code uint32) string {
	switch code {
	case CodeReadTimings:
		return "read-timings"
	case CodeReadSPD:
		return "read-spd"
	default:
		return "unknown"
	}
}
