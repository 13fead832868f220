package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	port          string
	dataFile      string
	lockTimeout   time.Duration
	allowedOrigin string

	backupDir  string
	backupCron string
	backupKeep int
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),

		dataFile: func() string {
			dataFile := os.Getenv("DATA_FILE")
			if dataFile == "" {
				dataFile = "./data/events.json"
			}
			slog.Debug("env", "DATA_FILE", dataFile)
			return filepath.Clean(dataFile)
		}(),
		lockTimeout: func() time.Duration {
			lockTimeout := os.Getenv("LOCK_TIMEOUT")
			if lockTimeout == "" {
				lockTimeout = "5s"
			}
			duration, err := time.ParseDuration(lockTimeout)
			if err != nil {
				slog.Error("invalid LOCK_TIMEOUT", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "LOCK_TIMEOUT", lockTimeout, "duration", duration)
			return duration
		}(),
		allowedOrigin: func() string {
			allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
			if allowedOrigin == "" {
				allowedOrigin = "*"
			}
			slog.Debug("env", "ALLOWED_ORIGIN", allowedOrigin)
			return allowedOrigin
		}(),

		backupDir: func() string {
			backupDir := os.Getenv("BACKUP_DIR")
			if backupDir == "" {
				backupDir = "./data/backups"
			}
			slog.Debug("env", "BACKUP_DIR", backupDir)
			return filepath.Clean(backupDir)
		}(),
		backupCron: func() string {
			// empty disables the backup job
			backupCron := os.Getenv("BACKUP_CRON")
			slog.Debug("env", "BACKUP_CRON", backupCron)
			return backupCron
		}(),
		backupKeep: func() int {
			backupKeep := os.Getenv("BACKUP_KEEP")
			if backupKeep == "" {
				backupKeep = "24"
			}
			keep, err := strconv.Atoi(backupKeep)
			if err != nil || keep < 1 {
				slog.Error("invalid BACKUP_KEEP", "value", backupKeep)
				os.Exit(1)
			}
			slog.Debug("env", "BACKUP_KEEP", keep)
			return keep
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATA_FILE env, the path of the persisted event collection
func (c *Config) GetDataFile() string {
	return c.dataFile
}

// Get LOCK_TIMEOUT env, how long a mutation waits for the writer lock
func (c *Config) GetLockTimeout() time.Duration {
	return c.lockTimeout
}

// Get ALLOWED_ORIGIN env
func (c *Config) GetAllowedOrigin() string {
	return c.allowedOrigin
}

// Get BACKUP_DIR env
func (c *Config) GetBackupDir() string {
	return c.backupDir
}

// Get BACKUP_CRON env, blank means no scheduled backups
func (c *Config) GetBackupCron() string {
	return c.backupCron
}

// Get BACKUP_KEEP env, how many backup snapshots to retain
func (c *Config) GetBackupKeep() int {
	return c.backupKeep
}
