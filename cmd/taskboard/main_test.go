package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/taskboard/internal/api"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "backend:\n" +
		"  driver: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "data", "taskboard.db") + "\n" +
		"server:\n" +
		"  jwt_secret: cli-secret\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "token", "--user", "bob", "--email", "bob@example.com")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims := &api.Claims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	})
	if err != nil {
		t.Fatalf("parsing minted token: %v", err)
	}
	if claims.UserID != "bob" || claims.Email != "bob@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestUserAndInboxCommands(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	if _, err := run(t, "--config", cfg, "user", "add", "--id", "bob", "--email", "bob@example.com"); err != nil {
		t.Fatalf("user add: %v", err)
	}

	out, err := run(t, "--config", cfg, "read-all", "--user", "bob")
	if err != nil {
		t.Fatalf("read-all: %v", err)
	}
	if !strings.Contains(out, "marked 0 notifications") {
		t.Errorf("read-all output = %q", out)
	}

	out, err = run(t, "--config", cfg, "clear", "--user", "bob", "--yes")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "deleted 0 notifications") {
		t.Errorf("clear output = %q", out)
	}

	out, err = run(t, "--config", cfg, "digest", "--user", "bob")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if !strings.Contains(out, "no unread notifications") {
		t.Errorf("digest output = %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  driver: oracle\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", path, "token", "--user", "bob"); err == nil {
		t.Fatal("expected config validation error")
	}
}
