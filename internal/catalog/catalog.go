// Package catalog persists one enumeration pass of the bus so devices and
// method signatures can be inspected without a live host. SQLite via
// modernc.org/sqlite (pure Go, no CGO).
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oc2wire/oc2wire/internal/protocol"
)

// Store is an offline snapshot of the device catalog.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writes (SQLite is single-writer)
}

// Open opens or creates the catalog database at path and runs schema
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Single connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			scanned_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS device_types (
			device_id TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			type_name TEXT NOT NULL,
			PRIMARY KEY (device_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_types_name ON device_types(type_name)`,
		`CREATE TABLE IF NOT EXISTS methods (
			device_id TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			parameters TEXT NOT NULL,
			return_type TEXT NOT NULL,
			description TEXT,
			return_value_description TEXT,
			PRIMARY KEY (device_id, position)
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// ReplaceSnapshot replaces the whole catalog with one fresh enumeration
// pass. Device order and per-device method order are preserved.
func (s *Store) ReplaceSnapshot(ctx context.Context, devices []protocol.DeviceDescriptor, methods map[protocol.DeviceID][]protocol.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"methods", "device_types", "devices"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	now := time.Now().UTC()
	for i, d := range devices {
		id := d.DeviceID.String()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO devices (device_id, position, scanned_at) VALUES (?, ?, ?)",
			id, i, now); err != nil {
			return fmt.Errorf("inserting device %s: %w", id, err)
		}
		for j, name := range d.TypeNames {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO device_types (device_id, position, type_name) VALUES (?, ?, ?)",
				id, j, name); err != nil {
				return fmt.Errorf("inserting type %s: %w", name, err)
			}
		}
		for j, m := range methods[d.DeviceID] {
			params, err := json.Marshal(m.Parameters)
			if err != nil {
				return fmt.Errorf("encoding parameters of %s: %w", m.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO methods
				 (device_id, position, name, parameters, return_type, description, return_value_description)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, j, m.Name, string(params), m.ReturnType, m.Description, m.ReturnValueDescription); err != nil {
				return fmt.Errorf("inserting method %s: %w", m.Name, err)
			}
		}
	}

	return tx.Commit()
}

// Devices returns the snapshot's devices in scan order.
func (s *Store) Devices(ctx context.Context) ([]protocol.DeviceDescriptor, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT device_id FROM devices ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []protocol.DeviceDescriptor
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		d, err := s.device(ctx, id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *Store) device(ctx context.Context, id string) (*protocol.DeviceDescriptor, error) {
	deviceID, err := protocol.ParseDeviceID(id)
	if err != nil {
		return nil, fmt.Errorf("catalog holds invalid device id %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT type_name FROM device_types WHERE device_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("querying types of %s: %w", id, err)
	}
	defer rows.Close()

	d := &protocol.DeviceDescriptor{DeviceID: deviceID}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		d.TypeNames = append(d.TypeNames, name)
	}
	return d, rows.Err()
}

// Methods returns the snapshot's method descriptors for one device, in scan
// order. An unknown device yields an empty slice.
func (s *Store) Methods(ctx context.Context, device protocol.DeviceID) ([]protocol.Method, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, parameters, return_type, description, return_value_description
		 FROM methods WHERE device_id = ? ORDER BY position`, device.String())
	if err != nil {
		return nil, fmt.Errorf("querying methods: %w", err)
	}
	defer rows.Close()

	var methods []protocol.Method
	for rows.Next() {
		var m protocol.Method
		var params string
		if err := rows.Scan(&m.Name, &params, &m.ReturnType, &m.Description, &m.ReturnValueDescription); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &m.Parameters); err != nil {
			return nil, fmt.Errorf("catalog holds invalid parameters for %s: %w", m.Name, err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// FindByType returns the devices whose type names include typeName, in scan
// order.
func (s *Store) FindByType(ctx context.Context, typeName string) ([]protocol.DeviceDescriptor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.device_id FROM devices d
		 JOIN device_types t ON t.device_id = d.device_id
		 WHERE t.type_name = ? ORDER BY d.position`, typeName)
	if err != nil {
		return nil, fmt.Errorf("querying by type: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	devices := make([]protocol.DeviceDescriptor, 0, len(ids))
	for _, id := range ids {
		d, err := s.device(ctx, id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, nil
}

// ScannedAt returns when the snapshot was taken, or the zero time for an
// empty catalog.
func (s *Store) ScannedAt(ctx context.Context) (time.Time, error) {
	// Selects the column, not MAX(...): sqlite reports no decltype for an
	// expression column, so the driver would hand back a raw string.
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT scanned_at FROM devices ORDER BY scanned_at DESC LIMIT 1").Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying scan time: %w", err)
	}
	return ts, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
