//go:build windows
// +build windows

package control

import (
	"errors"

	"golang.org/x/sys/windows"
)

// WindowsDevice talks to the driver through DeviceIoControl.
type WindowsDevice struct {
	Path   string
	handle windows.Handle
}

// OpenDevice opens the driver's device object.
func OpenDevice(path string) (Device, error) {
	if len(path) == 0 {
		return nil, errors.New("path cannot be empty")
	}
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, err
	}

	return &WindowsDevice{
		Path:   path,
		handle: h,
	}, nil
}

// IoControl implements Device.
func (d *WindowsDevice) IoControl(code uint32, in, out []byte) (int, error) {
	var inPtr, outPtr *byte
	if len(in) > 0 {
		inPtr = &in[0]
	}
	if len(out) > 0 {
		outPtr = &out[0]
	}

	outBufWritten := uint32(0)
	err := windows.DeviceIoControl(
		d.handle,
		code,
		inPtr,
		uint32(len(in)),
		outPtr,
		uint32(len(out)),
		&outBufWritten,
		nil,
	)
	if err != nil {
		return 0, err
	}
	return int(outBufWritten), nil
}

// Close implements Device.
func (d *WindowsDevice) Close() error {
	return windows.CloseHandle(d.handle)
}
