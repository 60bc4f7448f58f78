package process

// Notes:
// - KillProcessGroup: only invalid PIDs are exercised here; real group kills
//   are covered by the supervisor tests, which own the processes they kill.
// - KillByName: name validation only here. The supervisor tests kill a
//   uniquely named script from a temp dir, so nothing else can match.

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// TestKillProcessGroup - Invalid PID Handling
// ---------------------------------------------------------------------------

func TestKillProcessGroup_InvalidPID(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1} {
		if err := KillProcessGroup(pid); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("KillProcessGroup(%d) = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestKillProcessGroup_NonExistentPID(t *testing.T) {
	t.Parallel()

	// Must not panic; the error value is platform dependent.
	_ = KillProcessGroup(999999999)
}

// ---------------------------------------------------------------------------
// TestValidateName - Kill-by-name Guard
// ---------------------------------------------------------------------------

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain binary", "wk2img", false},
		{"with dash", "wk2img-gtk", false},
		{"empty", "", true},
		{"absolute path", "/usr/bin/wk2img", true},
		{"relative path", "bin/wk2img", true},
		{"glob", "wk*", true},
		{"regex anchor", "^wk2img$", true},
		{"space", "wk 2img", true},
		{"null byte", "wk\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateName(tt.input)
			if tt.wantErr && !errors.Is(err, ErrInvalidName) {
				t.Errorf("validateName(%q) = %v, want ErrInvalidName", tt.input, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateName(%q) unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestKillByName_RejectsInvalidName(t *testing.T) {
	t.Parallel()

	if err := KillByName("../wk2img"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("KillByName() = %v, want ErrInvalidName", err)
	}
}
