package main

// Notes:
// - runToken: we test through runMain: minted tokens verify against the
//   same secret, a missing secret or subject is a usage error, and the
//   default TTL comes from the configuration.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"strings"
	"testing"

	"github.com/alnah/go-planprint/internal/auth"
)

// ---------------------------------------------------------------------------
// TestRunToken - Token issuance
// ---------------------------------------------------------------------------

func TestRunToken(t *testing.T) {
	t.Parallel()

	t.Run("mints a verifiable token", func(t *testing.T) {
		t.Parallel()

		env, stdout, stderr := testEnv(map[string]string{"PLANPRINT_JWT_SECRET": testSecret})
		code := runMain([]string{"token", "-s", "u1", "-r", "planner", "-v"}, env)
		if code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
		}

		svc, err := auth.NewService(testSecret, "")
		if err != nil {
			t.Fatal(err)
		}
		p, err := svc.Verify(strings.TrimSpace(stdout.String()))
		if err != nil {
			t.Fatalf("Verify() = %v", err)
		}
		if p.Subject != "u1" || !p.HasRole("planner") {
			t.Errorf("principal = %+v", p)
		}
		if !strings.Contains(stderr.String(), "expires") {
			t.Errorf("stderr = %q, want expiry with --verbose", stderr.String())
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Parallel()

		env, stdout, stderr := testEnv(nil)
		if code := runMain([]string{"token", "-s", "u1"}, env); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout = %q, want empty", stdout.String())
		}
		if !strings.Contains(stderr.String(), "signing secret") {
			t.Errorf("stderr = %q", stderr.String())
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(map[string]string{"PLANPRINT_JWT_SECRET": testSecret})
		if code := runMain([]string{"token"}, env); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})

	t.Run("weak secret", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(map[string]string{"PLANPRINT_JWT_SECRET": "short"})
		if code := runMain([]string{"token", "-s", "u1"}, env); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})
}
