package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	pidFilePermissions = 0o644
	pidDirPermissions  = 0o700
)

// serverInfo is what a running server records in its PID file: the process
// id on the first line and the listen address on the second.
type serverInfo struct {
	PID    int
	Listen string
}

// pidLock is a PID file held under an exclusive flock. The lock keeps two
// servers from sharing one project database.
type pidLock struct {
	path string
	f    *os.File
}

// acquirePIDFile creates path, locks it without blocking, and records the
// current process and listen address.
func acquirePIDFile(path, listen string) (*pidLock, error) {
	if path == "" {
		return nil, errors.New("server.pid_file is empty and no data directory is available")
	}

	if err := os.MkdirAll(filepath.Dir(path), pidDirPermissions); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if info, readErr := readPIDFile(path); readErr == nil {
			return nil, fmt.Errorf("server already running (PID %d on %s)", info.PID, info.Listen)
		}

		return nil, fmt.Errorf("server already running (could not lock %s)", path)
	}

	if err := writeServerInfo(f, serverInfo{PID: os.Getpid(), Listen: listen}); err != nil {
		f.Close()
		return nil, err
	}

	return &pidLock{path: path, f: f}, nil
}

func writeServerInfo(f *os.File, info serverInfo) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := f.WriteAt([]byte(fmt.Sprintf("%d\n%s\n", info.PID, info.Listen)), 0); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing PID file: %w", err)
	}

	return nil
}

// Release removes the PID file and drops the lock.
func (l *pidLock) Release() {
	os.Remove(l.path)
	l.f.Close()
}

// readPIDFile parses a PID file. Files without a listen line are accepted.
func readPIDFile(path string) (serverInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return serverInfo{}, fmt.Errorf("reading PID file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)

	var info serverInfo

	if sc.Scan() {
		info.PID, err = strconv.Atoi(strings.TrimSpace(sc.Text()))
	}

	if err != nil || info.PID <= 0 {
		return serverInfo{}, fmt.Errorf("invalid PID in %s", path)
	}

	if sc.Scan() {
		info.Listen = strings.TrimSpace(sc.Text())
	}

	return info, nil
}

// signalServer delivers sig to the server recorded at pidPath. A PID file
// whose process is gone is removed.
func signalServer(pidPath string, sig syscall.Signal) (serverInfo, error) {
	info, err := readPIDFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return serverInfo{}, fmt.Errorf("no running server found (no PID file at %s)", pidPath)
		}

		return serverInfo{}, err
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return serverInfo{}, fmt.Errorf("finding process %d: %w", info.PID, err)
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)

		return serverInfo{}, fmt.Errorf("server (PID %d) is not running (stale PID file removed)", info.PID)
	}

	if err := proc.Signal(sig); err != nil {
		return serverInfo{}, fmt.Errorf("sending %s to server (PID %d): %w", sig, info.PID, err)
	}

	return info, nil
}
