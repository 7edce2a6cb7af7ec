package sink

import (
	"path/filepath"
	"testing"
)

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.db")

	s, err := OpenSQLite(path, "ranges")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	for _, e := range sampleEntries() {
		if err := s.Write(e); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ranges`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}

	var start, end string
	err = db.QueryRow(`SELECT start_code, end_code FROM ranges WHERE record_id = ?`, "rec-1").Scan(&start, &end)
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if start != "43003016" || end != "43003016" {
		t.Errorf("codes = %q..%q", start, end)
	}
}

func TestSQLiteSinkAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.db")

	for run := 0; run < 2; run++ {
		s, err := OpenSQLite(path, "ranges")
		if err != nil {
			t.Fatalf("OpenSQLite() run %d error = %v", run, err)
		}
		e := sampleEntries()[0]
		e.RunID = []string{"run-a", "run-b"}[run]
		if err := s.Write(e); err != nil {
			t.Fatalf("Write() run %d error = %v", run, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() run %d error = %v", run, err)
		}
	}

	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var runs int
	if err := db.QueryRow(`SELECT COUNT(DISTINCT run_id) FROM ranges`).Scan(&runs); err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Errorf("distinct runs = %d, want 2", runs)
	}
}

func TestSQLiteSinkRejectsBadTableName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.db")

	bad := []string{"", "my table", "ranges; DROP TABLE x", "1ranges"}
	for _, table := range bad {
		if _, err := OpenSQLite(path, table); err == nil {
			t.Errorf("OpenSQLite(table=%q) = nil error, want error", table)
		}
	}
}

func TestDriverInfo(t *testing.T) {
	info := GetDriverInfo()
	if info.DriverName != DriverName() {
		t.Errorf("DriverName mismatch: %q vs %q", info.DriverName, DriverName())
	}
	if info.IsCGO != IsCGO() {
		t.Errorf("IsCGO mismatch")
	}
	switch info.DriverType {
	case "purego", "cgo":
	default:
		t.Errorf("DriverType = %q", info.DriverType)
	}
}
