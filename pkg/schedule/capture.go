package schedule

import (
	"context"
	"fmt"
	"log"

	"github.com/mscrnt/memprobe/pkg/db"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// TimingSource supplies controller timings for a capture; it may be nil.
type TimingSource interface {
	Read() (timings.RamTimings, error)
}

// Capture reads all slots and records a snapshot.
type Capture struct {
	Source    string
	Reader    spdreader.Reader
	Timings   TimingSource
	Store     *db.DB
	OutputDir string
	Logger    *log.Logger
}

// Job returns the capture as a schedulable job.
func (c *Capture) Job() Job {
	return func(ctx context.Context) error {
		_, err := c.Run(ctx)
		return err
	}
}

// Run performs one capture. A pass that fails to resolve the controller is
// still recorded, then reported as an error.
func (c *Capture) Run(ctx context.Context) (*db.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acq, passErr := c.Reader.ReadAll()

	var rt *timings.RamTimings
	if c.Timings != nil && passErr == nil {
		t, err := c.Timings.Read()
		if err != nil {
			c.logf("capture: timings unavailable: %v", err)
		} else {
			rt = &t
		}
	}

	if c.OutputDir != "" && passErr == nil {
		if _, err := spdreader.PersistAll(c.OutputDir, acq); err != nil {
			c.logf("capture: failed to persist images: %v", err)
		}
	}

	var snap *db.Snapshot
	if c.Store != nil {
		var err error
		snap, err = c.Store.CreateSnapshot(c.Source, acq, passErr, rt, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to record snapshot: %w", err)
		}
		c.logf("capture: snapshot %d recorded (%d valid slots)", snap.ID, snap.ValidSlots)
	}

	return snap, passErr
}

func (c *Capture) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
