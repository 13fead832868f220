package scheduler_test

import (
	"os"
	"path/filepath"
	"testing"

	"calstore/src-server/scheduler"
	"calstore/src-server/utils"
)

func TestSnapshotCopiesCommittedDocument(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "events.json")
	backupDir := filepath.Join(dir, "backups")
	t.Setenv("DATA_FILE", dataFile)
	t.Setenv("BACKUP_DIR", backupDir)
	as := utils.NewAppState()

	// nothing committed yet: snapshot is a no-op, not an error
	if err := scheduler.Snapshot(as); err != nil {
		t.Fatal(err)
	}

	if _, err := as.Store.Load(); err != nil { // commits the seed document
		t.Fatal(err)
	}
	if err := scheduler.Snapshot(as); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatal("expected exactly one backup, got", len(entries))
	}

	original, err := os.ReadFile(dataFile)
	if err != nil {
		t.Fatal(err)
	}
	copied, err := os.ReadFile(filepath.Join(backupDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if string(original) != string(copied) {
		t.Error("backup must be a byte-identical copy of the committed document")
	}
}

func TestSnapshotPrunesOldestPastKeep(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"events-20250101T000000Z.json",
		"events-20250102T000000Z.json",
		"unrelated.txt",
	} {
		if err := os.WriteFile(filepath.Join(backupDir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("DATA_FILE", filepath.Join(dir, "events.json"))
	t.Setenv("BACKUP_DIR", backupDir)
	t.Setenv("BACKUP_KEEP", "2")
	as := utils.NewAppState()

	if _, err := as.Store.Load(); err != nil {
		t.Fatal(err)
	}
	// a fresh snapshot makes 3 copies; keep=2 drops the oldest
	if err := scheduler.Snapshot(as); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool)
	snapshots := 0
	for _, entry := range entries {
		got[entry.Name()] = true
		if filepath.Ext(entry.Name()) == ".json" {
			snapshots++
		}
	}
	if snapshots != 2 {
		t.Error("expected 2 snapshots after prune, got", snapshots, got)
	}
	if got["events-20250101T000000Z.json"] {
		t.Error("oldest snapshot should have been pruned")
	}
	if !got["events-20250102T000000Z.json"] {
		t.Error("newer snapshot must survive:", got)
	}
	if !got["unrelated.txt"] {
		t.Error("prune must only touch its own snapshots")
	}
}
