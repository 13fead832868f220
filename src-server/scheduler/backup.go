package scheduler

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"calstore/src-server/utils"

	"github.com/robfig/cron/v3"
)

// Periodic snapshots of the event document. Reading the live file straight
// off disk is safe: saves only ever land via atomic rename, so the copy is
// always a complete document.
func Backup(as *utils.AppState) {
	spec := as.Config.GetBackupCron()
	if spec == "" {
		slog.Info("scheduled backups disabled")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := Snapshot(as); err != nil {
			slog.Error("backup failed", "error", err)
		}
	}); err != nil {
		slog.Error("invalid BACKUP_CRON", "spec", spec, "error", err)
		return
	}
	c.Start()
	slog.Info("scheduled backups enabled", "spec", spec, "dir", as.Config.GetBackupDir())

	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		<-*gracefulShutdownCh
		<-c.Stop().Done()
	}()
}

// Snapshot copies the committed document into the backup dir and prunes the
// oldest copies past BACKUP_KEEP.
func Snapshot(as *utils.AppState) error {
	data, err := os.ReadFile(as.Config.GetDataFile())
	if errors.Is(err, os.ErrNotExist) {
		return nil // nothing committed yet
	}
	if err != nil {
		return err
	}

	dir := as.Config.GetBackupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := "events-" + time.Now().UTC().Format("20060102T150405Z") + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return err
	}
	return prune(dir, as.Config.GetBackupKeep())
}

// Keep the newest `keep` snapshots; the timestamped names sort
// chronologically.
func prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for len(names) > keep {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
