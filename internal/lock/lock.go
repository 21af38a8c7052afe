// Package lock implements the single-process guard spec.md §6 requires:
// a file at "<db_path>.lock" containing "pid\tunix_seconds\n". A live PID
// refuses acquisition; a dead one is treated as stale and overwritten.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

func nowUnixSec() int64 { return time.Now().Unix() }

// FileLock is held for the lifetime of one collect-new run.
type FileLock struct {
	path string
	pid  int
}

func lockPath(dbPath string) string { return dbPath + ".lock" }

// TryAcquire attempts to take the lock for dbPath. ok is false when another
// live process already holds it; no error is returned in that case.
func TryAcquire(dbPath string) (*FileLock, bool, error) {
	path := lockPath(dbPath)
	pid := os.Getpid()

	if raw, err := os.ReadFile(path); err == nil {
		if oldPID, ok := parsePID(string(raw)); ok && pidAlive(oldPID) {
			return nil, false, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, false, errors.Wrap(err, "read lock file")
	}

	content := fmt.Sprintf("%d\t%d\n", pid, nowUnixSec())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, false, errors.Wrap(err, "write lock file")
	}
	return &FileLock{path: path, pid: pid}, true, nil
}

// Release removes the lock file, but only if it still names this process —
// a lock stolen by a newer stale-overwrite must not be deleted out from
// under its rightful owner.
func (l *FileLock) Release() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read lock file")
	}
	if pid, ok := parsePID(string(raw)); !ok || pid != l.pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove lock file")
	}
	return nil
}

func parsePID(raw string) (int, bool) {
	fields := strings.SplitN(strings.TrimSpace(raw), "\t", 2)
	if len(fields) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}

// pidAlive checks liveness the Unix way: signal 0 delivers no signal but
// still validates the target exists and is reachable.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
