package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
	"go.uber.org/zap"
)

const lockFileName = ".lock"

// lockInfo is the payload of a store's advisory lock file. It exists so
// a second opener can tell a live holder from a crashed one.
type lockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

func (l lockInfo) holder() string {
	return fmt.Sprintf("pid %d on %s since %s", l.PID, l.Hostname, l.AcquiredAt.Format(time.RFC3339))
}

// acquireLock claims the store directory for this process. A lock held by
// a process that is no longer alive on this host is treated as stale and
// replaced; a lock from another host cannot be probed and is honored.
func acquireLock(dir string, logger *zap.Logger) error {
	path := filepath.Join(dir, lockFileName)
	hostname, _ := os.Hostname()
	info := lockInfo{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
	payload, err := json.Marshal(info)
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode lock info").WithCause(err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		defer f.Close()
		if _, err := f.Write(payload); err != nil {
			os.Remove(path)
			return pkgerrors.NewIOError("write lock file", err)
		}
		return nil
	}
	if !os.IsExist(err) {
		return pkgerrors.NewIOError("create lock file", err)
	}

	existing, readErr := readLockInfo(path)
	if readErr != nil {
		// Unreadable lock files come from interrupted acquisitions; take over.
		logger.Warn("Replacing unreadable lock file",
			zap.String("path", path),
			zap.Error(readErr),
		)
		return replaceLock(path, payload)
	}

	if existing.Hostname == hostname && !processAlive(existing.PID) {
		logger.Warn("Replacing stale lock from dead process",
			zap.String("path", path),
			zap.Int("pid", existing.PID),
			zap.Time("acquiredAt", existing.AcquiredAt),
		)
		return replaceLock(path, payload)
	}

	return pkgerrors.NewAlreadyOpenError(dir, existing.holder())
}

// releaseLock removes the lock file if this process owns it.
func releaseLock(dir string, logger *zap.Logger) {
	path := filepath.Join(dir, lockFileName)
	existing, err := readLockInfo(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read lock file on release", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if existing.PID != os.Getpid() {
		logger.Warn("Lock file not held by this process, leaving in place",
			zap.String("path", path),
			zap.Int("heldBy", existing.PID),
		)
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove lock file", zap.String("path", path), zap.Error(err))
	}
}

func readLockInfo(path string) (lockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lockInfo{}, err
	}
	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return lockInfo{}, fmt.Errorf("failed to decode lock file %s: %w", path, err)
	}
	if info.PID <= 0 {
		return lockInfo{}, fmt.Errorf("lock file %s has no pid", path)
	}
	return info, nil
}

func replaceLock(path string, payload []byte) error {
	if err := writeFileAtomic(path, payload); err != nil {
		return pkgerrors.NewIOError("replace lock file", err)
	}
	return nil
}

// processAlive probes a pid with signal 0. A permission error still means
// the process exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
