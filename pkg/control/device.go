package control

// Device carries control requests to whatever serves them.
type Device interface {
	IoControl(code uint32, in, out []byte) (int, error)
	Close() error
}

// LocalDevice serves requests in-process through a Dispatcher.
type LocalDevice struct {
	Dispatcher *Dispatcher
	closer     func() error
}

// NewLocalDevice creates an in-process device. closer, if not nil, runs on Close.
func NewLocalDevice(d *Dispatcher, closer func() error) *LocalDevice {
	return &LocalDevice{Dispatcher: d, closer: closer}
}

// IoControl implements Device.
func (l *LocalDevice) IoControl(code uint32, in, out []byte) (int, error) {
	return l.Dispatcher.Handle(code, in, out)
}

// Close implements Device.
func (l *LocalDevice) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}
