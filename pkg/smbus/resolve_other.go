//go:build !linux
// +build !linux

package smbus

// DefaultResolver returns a resolver that never finds a controller. On these
// platforms the bus is reached through the kernel driver instead.
func DefaultResolver() Resolver {
	return StaticResolver(0)
}
