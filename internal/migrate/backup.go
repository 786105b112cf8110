package migrate

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Backup copies the database file to a sibling path carrying a timestamp
// and returns that path. Run before any mutation; a copy failure aborts
// the whole migration. The copy is byte-for-byte, valid only while no
// other process holds an open write transaction.
func Backup(dbPath string) (string, error) {
	backupPath := fmt.Sprintf("%s.backup-%s", dbPath, time.Now().Format("20060102150405"))

	src, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}
