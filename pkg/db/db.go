package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// ErrNotFound is returned when a snapshot does not exist
var ErrNotFound = errors.New("snapshot not found")

// DB wraps the SQL database connection
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database
func Open(path string) (*DB, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate creates or updates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		valid_slots INTEGER DEFAULT 0,
		failed_slots INTEGER DEFAULT 0,
		error TEXT,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS spd_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id INTEGER NOT NULL,
		slot INTEGER NOT NULL,
		length INTEGER NOT NULL,
		valid BOOLEAN DEFAULT 0,
		data BLOB,
		ddr_type TEXT,
		size_mb INTEGER,
		manufacturer TEXT,
		error TEXT,
		UNIQUE (snapshot_id, slot),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS timings (
		snapshot_id INTEGER PRIMARY KEY,
		ddr_version INTEGER NOT NULL,
		tcl INTEGER, trcd INTEGER, trp INTEGER, tras INTEGER,
		trfc INTEGER, tfaw INTEGER, trcdrd INTEGER, trcdwr INTEGER,
		vdd REAL, vddq REAL, vpp REAL,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source);
	CREATE INDEX IF NOT EXISTS idx_spd_images_snapshot ON spd_images(snapshot_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// CreateSnapshot records an acquisition and, when t is not nil, the timings
// read alongside it. passErr is the pass-level failure, if any.
func (db *DB) CreateSnapshot(source string, acq spdreader.Acquisition, passErr error, t *timings.RamTimings, meta JSONData) (*Snapshot, error) {
	snap := &Snapshot{
		Source:    source,
		TakenAt:   time.Now(),
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
	if passErr != nil {
		snap.Error = passErr.Error()
	}
	for _, img := range acq.Images {
		switch {
		case img.Valid:
			snap.ValidSlots++
		case img.Length > 0:
			snap.FailedSlots++
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Only rollback if we haven't committed
		_ = tx.Rollback()
	}()

	result, err := tx.Exec(
		`INSERT INTO snapshots (source, taken_at, valid_slots, failed_slots, error, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Source, snap.TakenAt, snap.ValidSlots, snap.FailedSlots, snap.Error, snap.Metadata, snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	snap.ID = id

	stmt, err := tx.Prepare(
		`INSERT INTO spd_images (snapshot_id, slot, length, valid, data, ddr_type, size_mb, manufacturer, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, img := range acq.Images {
		rec := newImageRecord(i, img, acq.Errors[i])
		if _, err := stmt.Exec(id, rec.Slot, rec.Length, rec.Valid, rec.Data, rec.DDRType, rec.SizeMB, rec.Manufacturer, rec.Error); err != nil {
			return nil, fmt.Errorf("failed to insert slot %d: %w", i, err)
		}
	}

	if t != nil {
		_, err := tx.Exec(
			`INSERT INTO timings (snapshot_id, ddr_version, tcl, trcd, trp, tras, trfc, tfaw, trcdrd, trcdwr, vdd, vddq, vpp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.DDRVersion, t.TCL, t.TRCD, t.TRP, t.TRAS, t.TRFC, t.TFAW, t.TRCDRD, t.TRCDWR, t.VDD, t.VDDQ, t.VPP,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert timings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return snap, nil
}

func newImageRecord(slot int, img spdreader.SpdImage, slotErr error) ImageRecord {
	rec := ImageRecord{
		Slot:   slot,
		Length: img.Length,
		Valid:  img.Valid,
	}
	if slotErr != nil {
		rec.Error = slotErr.Error()
	}
	if img.Valid {
		rec.Data = img.Bytes()
		s := img.Summary()
		rec.DDRType = s.DDRType
		rec.SizeMB = s.SizeMB
		rec.Manufacturer = s.Manufacturer.String()
	}
	return rec
}

// GetSnapshot retrieves a snapshot by ID
func (db *DB) GetSnapshot(id int64) (*Snapshot, error) {
	snap := &Snapshot{}
	var errText sql.NullString
	err := db.conn.QueryRow(
		`SELECT id, source, taken_at, valid_slots, failed_slots, error, metadata, created_at
		 FROM snapshots WHERE id = ?`,
		id,
	).Scan(
		&snap.ID, &snap.Source, &snap.TakenAt, &snap.ValidSlots, &snap.FailedSlots,
		&errText, &snap.Metadata, &snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	snap.Error = errText.String
	return snap, nil
}

// ListSnapshots retrieves snapshots based on filters, newest first
func (db *DB) ListSnapshots(filter SnapshotFilter) ([]*Snapshot, error) {
	query := `SELECT id, source, taken_at, valid_slots, failed_slots, error, metadata, created_at
	          FROM snapshots WHERE 1=1`
	args := []interface{}{}

	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}

	if filter.Since != nil {
		query += " AND taken_at >= ?"
		args = append(args, filter.Since)
	}

	if filter.Until != nil {
		query += " AND taken_at <= ?"
		args = append(args, filter.Until)
	}

	query += " ORDER BY taken_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var errText sql.NullString
		err := rows.Scan(
			&snap.ID, &snap.Source, &snap.TakenAt, &snap.ValidSlots, &snap.FailedSlots,
			&errText, &snap.Metadata, &snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Error = errText.String
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// GetImageRecords retrieves the per-slot rows of a snapshot in slot order
func (db *DB) GetImageRecords(snapshotID int64) ([]*ImageRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, snapshot_id, slot, length, valid, data, ddr_type, size_mb, manufacturer, error
		 FROM spd_images WHERE snapshot_id = ? ORDER BY slot`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*ImageRecord
	for rows.Next() {
		rec := &ImageRecord{}
		var ddrType, manufacturer, errText sql.NullString
		var sizeMB sql.NullInt64
		err := rows.Scan(
			&rec.ID, &rec.SnapshotID, &rec.Slot, &rec.Length, &rec.Valid,
			&rec.Data, &ddrType, &sizeMB, &manufacturer, &errText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		rec.DDRType = ddrType.String
		rec.SizeMB = uint64(sizeMB.Int64)
		rec.Manufacturer = manufacturer.String
		rec.Error = errText.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetImages rebuilds the valid SPD images of a snapshot
func (db *DB) GetImages(snapshotID int64) ([]spdreader.SpdImage, error) {
	records, err := db.GetImageRecords(snapshotID)
	if err != nil {
		return nil, err
	}

	var images []spdreader.SpdImage
	for _, rec := range records {
		if !rec.Valid {
			continue
		}
		img, err := spdreader.NewImage(rec.Slot, rec.Data)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d slot %d: %w", snapshotID, rec.Slot, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// GetTimings retrieves the timings recorded with a snapshot, or nil when none were
func (db *DB) GetTimings(snapshotID int64) (*timings.RamTimings, error) {
	t := &timings.RamTimings{}
	err := db.conn.QueryRow(
		`SELECT ddr_version, tcl, trcd, trp, tras, trfc, tfaw, trcdrd, trcdwr, vdd, vddq, vpp
		 FROM timings WHERE snapshot_id = ?`,
		snapshotID,
	).Scan(
		&t.DDRVersion, &t.TCL, &t.TRCD, &t.TRP, &t.TRAS, &t.TRFC,
		&t.TFAW, &t.TRCDRD, &t.TRCDWR, &t.VDD, &t.VDDQ, &t.VPP,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timings: %w", err)
	}
	return t, nil
}

// DeleteSnapshot removes a snapshot and its slots
func (db *DB) DeleteSnapshot(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}
