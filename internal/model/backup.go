package model

import "time"

// BackupInfo describes one archive in the backup directory.
type BackupInfo struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupManifest is stored as manifest.json inside every archive.
type BackupManifest struct {
	CreatedAt time.Time      `json:"created_at"`
	Database  string         `json:"database"`
	Tables    map[string]int `json:"tables"`
}
