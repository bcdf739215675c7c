package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"novastudio/internal/config"
	"novastudio/internal/preflight"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("Data directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for writable dir, got %+v", result)
	}

	result = preflight.CheckDirectoryAccess("Data directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatalf("expected failure for missing dir, got %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckFreeSpace("Free space", dir, 1); !result.Passed {
		t.Fatalf("expected pass for tiny requirement, got %+v", result)
	}
	if result := preflight.CheckFreeSpace("Free space", dir, ^uint64(0)); result.Passed {
		t.Fatalf("expected failure for absurd requirement, got %+v", result)
	}
}

func TestCheckNtfy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if result := preflight.CheckNtfy(context.Background(), server.URL); !result.Passed {
		t.Fatalf("expected pass for reachable topic, got %+v", result)
	}
	if result := preflight.CheckNtfy(context.Background(), "not a url"); result.Passed {
		t.Fatalf("expected failure for malformed topic, got %+v", result)
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")

	// Directories missing: everything should fail.
	results := preflight.RunAll(context.Background(), &cfg)
	if len(preflight.Failures(results)) == 0 {
		t.Fatal("expected failures for missing directories")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results = preflight.RunAll(context.Background(), &cfg)
	if failed := preflight.Failures(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, failures: %+v", failed)
	}
}
