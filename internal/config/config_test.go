package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RTSPPort != 8554 {
		t.Errorf("RTSPPort = %d, want 8554", cfg.RTSPPort)
	}
	if cfg.RulesFile != "/etc/udev/rules.d/89-usb-mics.rules" {
		t.Errorf("RulesFile = %q", cfg.RulesFile)
	}
	if cfg.StaggerDelay.Std() != 2*time.Second {
		t.Errorf("StaggerDelay = %v", cfg.StaggerDelay)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
rtsp_host: streambox.local
rtsp_port: 9554
stagger_delay: 500ms
denylist_extra:
  - dummyloop
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RTSPHost != "streambox.local" || cfg.RTSPPort != 9554 {
		t.Errorf("rtsp = %s:%d", cfg.RTSPHost, cfg.RTSPPort)
	}
	if cfg.StaggerDelay.Std() != 500*time.Millisecond {
		t.Errorf("StaggerDelay = %v, want 500ms", cfg.StaggerDelay)
	}
	if len(cfg.DenylistExtra) != 1 || cfg.DenylistExtra[0] != "dummyloop" {
		t.Errorf("DenylistExtra = %v", cfg.DenylistExtra)
	}
	// untouched keys keep defaults
	if cfg.FFmpegBin != "ffmpeg" {
		t.Errorf("FFmpegBin = %q", cfg.FFmpegBin)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("MICSTREAMER_RTSP_HOST", "envhost")
	t.Setenv("MICSTREAMER_STAGGER_DELAY", "3s")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RTSPHost != "envhost" {
		t.Errorf("RTSPHost = %q, want env override", cfg.RTSPHost)
	}
	if cfg.StaggerDelay.Std() != 3*time.Second {
		t.Errorf("StaggerDelay = %v, want 3s", cfg.StaggerDelay)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("rtsp_port: 70000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted an out-of-range port")
	}
}
