package config

import (
	"os"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := Load()
	if cfg.TelemetryAsked || cfg.TelemetryOptedIn || cfg.NumWorkers != 0 {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	want := &Config{
		NumWorkers:       8,
		TerminateAt:      6,
		CountDivisor:     8192,
		PreferGPU:        true,
		TelemetryAsked:   true,
		TelemetryOptedIn: true,
	}
	if err := Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load()
	if *got != *want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	// Save valid config once so the directory exists, then corrupt it.
	if err := Save(&Config{NumWorkers: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := path()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if err := os.WriteFile(p, []byte("not json"), 0600); err != nil {
		t.Fatalf("corrupt config: %v", err)
	}
	cfg := Load()
	if cfg.NumWorkers != 0 {
		t.Fatalf("expected zero-value config after corrupt file, got %+v", cfg)
	}
}
