package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is one recorded acquisition pass
type Snapshot struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	TakenAt    time.Time `json:"taken_at"`
	ValidSlots int       `json:"valid_slots"`
	// FailedSlots counts slots whose header was read but whose body was not.
	FailedSlots int       `json:"failed_slots"`
	Error      string    `json:"error,omitempty"`
	Metadata   JSONData  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ImageRecord is one slot of a snapshot
type ImageRecord struct {
	ID           int64  `json:"id"`
	SnapshotID   int64  `json:"snapshot_id"`
	Slot         int    `json:"slot"`
	Length       int    `json:"length"`
	Valid        bool   `json:"valid"`
	Data         []byte `json:"-"`
	DDRType      string `json:"ddr_type,omitempty"`
	SizeMB       uint64 `json:"size_mb,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JSONData is a custom type for storing JSON in SQLite
type JSONData map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONData) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONData) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into JSONData", value)
	}

	return json.Unmarshal(data, j)
}

// SnapshotStatus summarizes how a pass went
type SnapshotStatus string

const (
	SnapshotStatusComplete SnapshotStatus = "complete"
	SnapshotStatusPartial  SnapshotStatus = "partial"
	SnapshotStatusEmpty    SnapshotStatus = "empty"
	SnapshotStatusFailed   SnapshotStatus = "failed"
)

// GetStatus returns the status of a snapshot. Empty slots do not count as
// failures.
func (s *Snapshot) GetStatus() SnapshotStatus {
	switch {
	case s.Error != "":
		return SnapshotStatusFailed
	case s.FailedSlots > 0:
		return SnapshotStatusPartial
	case s.ValidSlots == 0:
		return SnapshotStatusEmpty
	default:
		return SnapshotStatusComplete
	}
}

// SnapshotFilter represents filters for querying snapshots
type SnapshotFilter struct {
	Source string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// ExportFormat represents the format for exporting data
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)
