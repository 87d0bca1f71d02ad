package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandem.json")
	settings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if settings.HandshakeBound() != 5*time.Second {
		t.Fatalf("default handshake bound wrong: %v", settings.HandshakeBound())
	}
	if settings.PollInterval() != 100*time.Millisecond {
		t.Fatalf("default poll interval wrong: %v", settings.PollInterval())
	}
}

func TestLoadFilePartialFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandem.json")
	if err := os.WriteFile(path, []byte(`{"fps": 60}`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	settings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if settings.FPS != 60 {
		t.Fatalf("explicit value lost: %d", settings.FPS)
	}
	if settings.SocketPath == "" || settings.HandshakeBoundMs != 5000 {
		t.Fatalf("defaults not applied: %+v", settings)
	}
}

func TestLoadFileBadJSONFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandem.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	settings, err := LoadFile(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if settings == nil || settings.FPS != Defaults().FPS {
		t.Fatalf("expected defaults on parse failure, got %+v", settings)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tandem.json")
	want := Defaults()
	want.FPS = 24
	want.JournalPath = "/tmp/journal.db"
	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.FPS != 24 || got.JournalPath != "/tmp/journal.db" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
