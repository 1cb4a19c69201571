package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sitewatch-hq/sitewatch/pkg/cli"
)

func writeSOP(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sop.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write SOP file: %v", err)
	}
	return path
}

func TestValidateProcedureValidFile(t *testing.T) {
	validateFlags.sopPath = writeSOP(t, `
task_name: Drywall Installation
steps:
  - id: 1
    action: Measure and mark the wall
    expected_time: 60
  - id: 2
    action: Cut the drywall sheet
    expected_time: 120
`)
	validateFlags.format = "text"

	if err := validateProcedure(nil, nil); err != nil {
		t.Errorf("validateProcedure() with valid file returned error: %v", err)
	}
}

func TestValidateProcedureInvalidFile(t *testing.T) {
	// Duplicate step IDs make the procedure invalid.
	validateFlags.sopPath = writeSOP(t, `
task_name: Drywall Installation
steps:
  - id: 1
    action: Measure and mark the wall
    expected_time: 60
  - id: 1
    action: Cut the drywall sheet
    expected_time: 120
`)
	validateFlags.format = "text"

	err := validateProcedure(nil, nil)
	if err == nil {
		t.Fatal("validateProcedure() with invalid file should return error")
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("error = %v, want ExitError with code 1", err)
	}
}

func TestValidateProcedureNonexistentFile(t *testing.T) {
	validateFlags.sopPath = filepath.Join(t.TempDir(), "missing.yaml")
	validateFlags.format = "text"

	if err := validateProcedure(nil, nil); err == nil {
		t.Error("validateProcedure() with missing file should return error")
	}
}

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q", versionCmd.Use)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"run": false, "validate": false, "report": false, "watch": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
