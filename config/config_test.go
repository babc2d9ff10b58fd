package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Unmarshal()
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.Addr != Default().Addr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, Default().Addr)
	}
	if cfg.NumChannels != Default().NumChannels {
		t.Errorf("NumChannels = %d, want %d", cfg.NumChannels, Default().NumChannels)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "transrecsrv.yml")
	body := "Addr: \":9999\"\nNumChannels: 8\n"
	if err := os.WriteFile(fname, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Load(fname); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Unmarshal()
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	if cfg.NumChannels != 8 {
		t.Errorf("NumChannels = %d, want 8", cfg.NumChannels)
	}
}

func TestDecodeSimOptions(t *testing.T) {
	cfg := Default()
	cfg.NumChannels = 3
	cfg.Simulation["NoiseAmplitude"] = 0.25
	cfg.Simulation["OverflowAfterBursts"] = 5
	cfg.Simulation["WarmupDelay"] = "50ms"

	opts, err := DecodeSimOptions(cfg)
	if err != nil {
		t.Fatalf("DecodeSimOptions: %v", err)
	}
	if opts.NumChannels != 3 {
		t.Errorf("NumChannels = %d, want 3", opts.NumChannels)
	}
	if opts.NoiseAmplitude != 0.25 {
		t.Errorf("NoiseAmplitude = %v, want 0.25", opts.NoiseAmplitude)
	}
	if opts.OverflowAfterBursts != 5 {
		t.Errorf("OverflowAfterBursts = %d, want 5", opts.OverflowAfterBursts)
	}
	if opts.WarmupDelay != 50*time.Millisecond {
		t.Errorf("WarmupDelay = %v, want 50ms", opts.WarmupDelay)
	}
}
