//go:build !windows
// +build !windows

package control

import "errors"

// ErrDeviceUnsupported is returned when no driver device exists on this platform.
var ErrDeviceUnsupported = errors.New("driver device is only available on Windows")

// OpenDevice is not supported on this platform; use a LocalDevice.
func OpenDevice(path string) (Device, error) {
	return nil, ErrDeviceUnsupported
}
