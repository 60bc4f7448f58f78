//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Isolate places the command in a new process group so that the whole
// renderer tree can be signalled through the negative PID.
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// KillByName sends SIGKILL to every process whose executable name matches
// exactly. Unrelated instances of the same binary are terminated too.
func KillByName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return run("pkill", "-KILL", "-x", name)
}
