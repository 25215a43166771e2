package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Viewport.Width != 600 || cfg.Viewport.Height != 800 {
		t.Errorf("default viewport = %dx%d, want 600x800", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if !cfg.Layout.HyphenEnabled {
		t.Error("expected hyphenation to default to enabled")
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
library:
  cache_root: /tmp/papyrus-cache
viewport:
  width: 1024
  height: 768
fonts:
  size_px: 20
  default_font_id: 1
  faces: []
layout:
  line_compression: 0.95
  paragraph_align: left
  use_greedy_line_breaking: true
  hyphenation_enabled: false
  indent_level: 2
  paragraph_spacing: "full"
images:
  enabled: false
  resize: stretch
  tiny_image_policy: below-20
  cover_width: 600
  cover_height: 800
logging:
  console:
    level: debug
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Viewport.Width != 1024 || cfg.Viewport.Height != 768 {
		t.Errorf("Viewport = %dx%d, want 1024x768", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if cfg.Layout.ParagraphAlign != ParagraphAlignmentLeft {
		t.Errorf("ParagraphAlign = %v, want left", cfg.Layout.ParagraphAlign)
	}
	if cfg.Layout.HyphenEnabled {
		t.Error("expected hyphenation to be disabled by the file")
	}
	if cfg.Layout.IndentLevel != 2 {
		t.Errorf("IndentLevel = %d, want 2", cfg.Layout.IndentLevel)
	}
	if cfg.Layout.ParagraphSpacing != SpacingLevelFull {
		t.Errorf("ParagraphSpacing = %v, want full", cfg.Layout.ParagraphSpacing)
	}
	if cfg.Images.Enabled {
		t.Error("expected images to be disabled by the file")
	}
	if cfg.Images.Resize != ImageResizeStretch {
		t.Errorf("Resize = %v, want stretch", cfg.Images.Resize)
	}
	if cfg.Images.TinyPolicy != TinyImageDimensionBelow20 {
		t.Errorf("TinyPolicy = %v, want below-20", cfg.Images.TinyPolicy)
	}
}

func TestLoadConfiguration_UnknownFieldRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("version: 1\nbogus_field: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfiguration(configPath); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestLoadConfiguration_MissingFileErrors(t *testing.T) {
	if _, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestPrepareProducesValidTemplate(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty prepared configuration")
	}
}

func TestDumpRoundTrips(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty dumped configuration")
	}
}
