package config

import "testing"

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.Port == 0 {
		t.Fatal("expected nonzero default port")
	}
	if cfg.InputDeviceID != -1 || cfg.OutputDeviceID != -1 {
		t.Fatal("expected default device IDs to signal 'unset' as -1")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Username = "ada"
	cfg.LastRoomToken = "tok-123"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load()
	if got.Username != "ada" || got.LastRoomToken != "tok-123" {
		t.Fatalf("Load() = %+v, want Username=ada LastRoomToken=tok-123", got)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	got := Load()
	want := Default()
	if got != want {
		t.Fatalf("Load() with no file = %+v, want default %+v", got, want)
	}
}
