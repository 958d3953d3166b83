package db

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

var csvHeaders = []string{
	"Snapshot ID", "Source", "Taken At", "Status", "Slot", "Address",
	"Valid", "Length", "DDR Type", "Size (MB)", "Manufacturer", "Error",
}

// ExportCSV exports the slots of one snapshot to CSV format
func (db *DB) ExportCSV(w io.Writer, snapshotID int64) error {
	snap, err := db.GetSnapshot(snapshotID)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if err := db.writeSnapshotRows(csvWriter, snap); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportAllCSV exports every snapshot to CSV format
func (db *DB) ExportAllCSV(w io.Writer) error {
	snaps, err := db.ListSnapshots(SnapshotFilter{})
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, snap := range snaps {
		if err := db.writeSnapshotRows(csvWriter, snap); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (db *DB) writeSnapshotRows(csvWriter *csv.Writer, snap *Snapshot) error {
	records, err := db.GetImageRecords(snap.ID)
	if err != nil {
		return fmt.Errorf("failed to get images for snapshot %d: %w", snap.ID, err)
	}

	for _, rec := range records {
		row := []string{
			strconv.FormatInt(snap.ID, 10),
			snap.Source,
			snap.TakenAt.Format("2006-01-02 15:04:05"),
			string(snap.GetStatus()),
			strconv.Itoa(rec.Slot),
			fmt.Sprintf("0x%02X", 0x50+rec.Slot),
			strconv.FormatBool(rec.Valid),
			strconv.Itoa(rec.Length),
			rec.DDRType,
			"",
			rec.Manufacturer,
			rec.Error,
		}
		if rec.Valid {
			row[9] = strconv.FormatUint(rec.SizeMB, 10)
		}

		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// ExportJSON exports a snapshot with its slots and timings to JSON format
func (db *DB) ExportJSON(w io.Writer, snapshotID int64) error {
	snap, err := db.GetSnapshot(snapshotID)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	records, err := db.GetImageRecords(snapshotID)
	if err != nil {
		return fmt.Errorf("failed to get images: %w", err)
	}

	t, err := db.GetTimings(snapshotID)
	if err != nil {
		return err
	}

	export := struct {
		Snapshot *Snapshot      `json:"snapshot"`
		Status   SnapshotStatus `json:"status"`
		Images   []*ImageRecord `json:"images"`
		Timings  interface{}    `json:"timings,omitempty"`
	}{
		Snapshot: snap,
		Status:   snap.GetStatus(),
		Images:   records,
	}
	if t != nil {
		export.Timings = t
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
