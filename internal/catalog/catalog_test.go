package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oc2wire/oc2wire/internal/protocol"
)

var (
	robotID  = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
	cameraID = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshot(t *testing.T, s *Store) {
	t.Helper()
	desc := "move the robot"
	devices := []protocol.DeviceDescriptor{
		{DeviceID: robotID, TypeNames: []string{"turtle", "inventory"}},
		{DeviceID: cameraID, TypeNames: []string{"camera"}},
	}
	methods := map[protocol.DeviceID][]protocol.Method{
		robotID: {
			{Name: "move", Parameters: []protocol.Parameter{{Type: "string"}, {Type: "int"}},
				ReturnType: "boolean", Description: &desc},
			{Name: "slots", Parameters: []protocol.Parameter{}, ReturnType: "int"},
		},
	}
	if err := s.ReplaceSnapshot(context.Background(), devices, methods); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	snapshot(t, s)

	devices, err := s.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}
	if devices[0].DeviceID != robotID {
		t.Errorf("devices[0] = %s, scan order lost", devices[0].DeviceID)
	}
	if got := devices[0].TypeNames; len(got) != 2 || got[0] != "turtle" || got[1] != "inventory" {
		t.Errorf("TypeNames = %v", got)
	}

	methods, err := s.Methods(context.Background(), robotID)
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	if len(methods) != 2 || methods[0].Name != "move" || methods[1].Name != "slots" {
		t.Fatalf("methods = %+v", methods)
	}
	m := methods[0]
	if len(m.Parameters) != 2 || m.Parameters[0].Type != "string" || m.Parameters[1].Type != "int" {
		t.Errorf("parameters = %v, order lost", m.Parameters)
	}
	if m.Description == nil || *m.Description != "move the robot" {
		t.Errorf("Description = %v", m.Description)
	}
	if methods[1].Description != nil {
		t.Errorf("slots Description = %v, want nil", methods[1].Description)
	}
}

func TestMethodsUnknownDevice(t *testing.T) {
	s := openTestStore(t)
	snapshot(t, s)

	methods, err := s.Methods(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	if len(methods) != 0 {
		t.Errorf("methods = %v, want empty", methods)
	}
}

func TestFindByType(t *testing.T) {
	s := openTestStore(t)
	snapshot(t, s)

	devices, err := s.FindByType(context.Background(), "camera")
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != cameraID {
		t.Fatalf("devices = %+v", devices)
	}

	devices, err = s.FindByType(context.Background(), "radar")
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("devices = %+v, want none", devices)
	}
}

func TestReplaceSnapshotDropsStaleRows(t *testing.T) {
	s := openTestStore(t)
	snapshot(t, s)

	replacement := []protocol.DeviceDescriptor{
		{DeviceID: cameraID, TypeNames: []string{"camera"}},
	}
	if err := s.ReplaceSnapshot(context.Background(), replacement, nil); err != nil {
		t.Fatalf("ReplaceSnapshot: %v", err)
	}

	devices, err := s.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != cameraID {
		t.Fatalf("devices = %+v, stale rows survived", devices)
	}
	methods, err := s.Methods(context.Background(), robotID)
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	if len(methods) != 0 {
		t.Errorf("methods = %+v, stale rows survived", methods)
	}
}

func TestScannedAt(t *testing.T) {
	s := openTestStore(t)

	ts, err := s.ScannedAt(context.Background())
	if err != nil {
		t.Fatalf("ScannedAt: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("ScannedAt on empty catalog = %v, want zero", ts)
	}

	before := time.Now().Add(-time.Minute)
	snapshot(t, s)
	ts, err = s.ScannedAt(context.Background())
	if err != nil {
		t.Fatalf("ScannedAt: %v", err)
	}
	if ts.IsZero() {
		t.Error("ScannedAt after snapshot is zero")
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Minute)) {
		t.Errorf("ScannedAt = %v, not the snapshot time", ts)
	}
}
