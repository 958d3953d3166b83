package control

import (
	"fmt"

	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// Client issues control requests on the user side.
type Client struct {
	dev Device
}

var _ spdreader.Reader = (*Client)(nil)

// NewClient creates a client over dev. The client owns dev.
func NewClient(dev Device) *Client {
	return &Client{dev: dev}
}

// ReadTimings requests the current controller timings.
func (c *Client) ReadTimings() (timings.RamTimings, error) {
	var t timings.RamTimings
	buf, err := c.request(CodeReadTimings, timings.RecordSize)
	if err != nil {
		return t, err
	}
	if err := t.UnmarshalBinary(buf); err != nil {
		return t, err
	}
	return t, nil
}

// ReadSPD requests the SPD images of all eight slots.
func (c *Client) ReadSPD() ([spdreader.SlotCount]spdreader.SpdImage, error) {
	buf, err := c.request(CodeReadSPD, spdreader.ArraySize)
	if err != nil {
		return [spdreader.SlotCount]spdreader.SpdImage{}, err
	}
	return spdreader.DecodeImages(buf)
}

// ReadAll implements spdreader.Reader. Per-slot reasons do not cross the
// boundary, so Errors is left empty.
func (c *Client) ReadAll() (spdreader.Acquisition, error) {
	var acq spdreader.Acquisition
	images, err := c.ReadSPD()
	if err != nil {
		return acq, err
	}
	acq.Images = images
	return acq, nil
}

// Read implements TimingSource, so a client can feed another dispatcher.
func (c *Client) Read() (timings.RamTimings, error) {
	return c.ReadTimings()
}

// Close releases the device.
func (c *Client) Close() error {
	return c.dev.Close()
}

func (c *Client) request(code uint32, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := c.dev.IoControl(code, nil, out)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", CodeName(code), err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: %s returned %d bytes, want %d", ErrShortResponse, CodeName(code), n, size)
	}
	return out, nil
}
