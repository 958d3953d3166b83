package smbus

import (
	"fmt"
	"sync"
)

// Resolver finds the I/O base address of the host controller.
type Resolver interface {
	Resolve() (uint16, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() (uint16, error)

// Resolve calls f.
func (f ResolverFunc) Resolve() (uint16, error) {
	return f()
}

// StaticResolver always resolves to the same base address.
type StaticResolver uint16

// Resolve returns the fixed base.
func (s StaticResolver) Resolve() (uint16, error) {
	return uint16(s), nil
}

// Session owns the hardware handle and the resolved controller base for the
// lifetime of the process. A zero base is never cached: the next call
// resolves again.
type Session struct {
	mu       sync.Mutex
	hw       HardwareBus
	resolver Resolver
	cfg      Config
	base     uint16
}

// NewSession creates a session. Resolution is deferred to the first Transport call.
func NewSession(hw HardwareBus, resolver Resolver, cfg Config) *Session {
	return &Session{
		hw:       hw,
		resolver: resolver,
		cfg:      cfg,
	}
}

// Transport returns a transport bound to the resolved base, resolving it
// first when nothing valid is cached.
func (s *Session) Transport() (*Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base == 0 {
		base, err := s.resolver.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrControllerNotFound, err)
		}
		if base == 0 {
			return nil, ErrControllerNotFound
		}
		s.base = base
	}
	return NewTransport(s.hw, s.base, s.cfg), nil
}

// Base returns the cached base address, or 0 when unresolved.
func (s *Session) Base() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Close releases the hardware handle.
func (s *Session) Close() error {
	return s.hw.Close()
}
