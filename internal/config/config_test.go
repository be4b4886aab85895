package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport.Addr == "" {
		t.Fatal("expected a default transport address")
	}
	if cfg.Transport.MaxHeaders <= 0 {
		t.Fatal("expected a positive default for MaxHeaders")
	}
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	os.Setenv("EMBERD_ADDR", "0.0.0.0:9999")
	defer os.Unsetenv("EMBERD_ADDR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport.Addr != "0.0.0.0:9999" {
		t.Fatalf("expected env override to apply, got %q", cfg.Transport.Addr)
	}
}

func TestSplitNonEmpty(t *testing.T) {
	got := splitNonEmpty("a,b,,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
