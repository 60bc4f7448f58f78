package main

// Notes:
// - runMain: we test command dispatch and exit codes for usage errors,
//   help and version. Commands with side effects are covered by their own
//   test files.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunMain - Command dispatch
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no args", nil, ExitUsage, "", "Usage: planprint"},
		{"unknown command", []string{"convert"}, ExitUsage, "", `unknown command "convert"`},
		{"version", []string{"version"}, ExitSuccess, "planprint " + Version, ""},
		{"version flag", []string{"--version"}, ExitSuccess, "planprint ", ""},
		{"help", []string{"help"}, ExitSuccess, "Commands:", ""},
		{"help flag", []string{"-h"}, ExitSuccess, "Commands:", ""},
		{"serve help", []string{"serve", "--help"}, ExitSuccess, "", "planprint serve"},
		{"capture help", []string{"capture", "--help"}, ExitSuccess, "", "planprint capture"},
		{"bad flag", []string{"serve", "--no-such-flag"}, ExitUsage, "", "unknown flag"},
		{"stray serve argument", []string{"serve", "now"}, ExitUsage, "", "unexpected arguments"},
		{"invalid config value", []string{"serve", "--kill-mode", "all"}, ExitUsage, "", "renderer.killMode"},
		{"capture without url", []string{"capture"}, ExitUsage, "", "invalid capture URL"},
		{"doctor bad flag", []string{"doctor", "--nope"}, ExitUsage, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv(nil)
			code := runMain(tt.args, env)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestServe_PrintConfigMasksSecrets(t *testing.T) {
	t.Parallel()

	env, stdout, stderr := testEnv(map[string]string{
		"PLANPRINT_JWT_SECRET": testSecret,
		"PLANPRINT_ADDR":       ":9191",
	})
	code := runMain([]string{"serve", "--print-config", "--pool-size", "2"}, env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}

	out := stdout.String()
	if strings.Contains(out, testSecret) {
		t.Error("--print-config leaked the JWT secret")
	}
	for _, want := range []string{":9191", "poolSize: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}
}
