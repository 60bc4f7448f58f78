//go:build windows

package process

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// Isolate starts the command in a new process group.
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// KillProcessGroup kills a process and all its children using taskkill.
// /F = force kill, /T = terminate child processes (tree kill).
func KillProcessGroup(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	return run("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid))
}

// KillByName force-kills every process started from the named image.
func KillByName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	return run("taskkill", "/F", "/IM", name)
}
