package types

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStyleValidationFontSizeBoundaries(t *testing.T) {
	cfg := DefaultStyleConfig()

	cases := []struct {
		size   int
		wantOK bool
	}{
		{7, false},
		{8, true},
		{14, true},
		{36, true},
		{37, false},
		{0, false},
		{-1, false},
	}
	for _, tc := range cases {
		err := cfg.Validate("Helvetica", tc.size)
		if tc.wantOK && err != nil {
			t.Fatalf("size %d: unexpected error %v", tc.size, err)
		}
		if !tc.wantOK {
			if !errors.Is(err, ErrInvalidStyle) {
				t.Fatalf("size %d: want ErrInvalidStyle, got %v", tc.size, err)
			}
		}
	}
}

func TestStyleValidationFontAllowList(t *testing.T) {
	cfg := DefaultStyleConfig()

	if err := cfg.Validate("Times", 12); err != nil {
		t.Fatalf("Times: %v", err)
	}
	// allow-list check is case-insensitive
	if err := cfg.Validate("helvetica", 12); err != nil {
		t.Fatalf("lowercase helvetica: %v", err)
	}
	if err := cfg.Validate("  Courier ", 12); err != nil {
		t.Fatalf("padded Courier: %v", err)
	}

	if err := cfg.Validate("Wingdings", 12); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("Wingdings: want ErrInvalidStyle, got %v", err)
	}
	if err := cfg.Validate("", 12); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("empty font: want ErrInvalidStyle, got %v", err)
	}
}

func TestLoadStyleConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	raw := []byte("allowed_fonts:\n  - Georgia\n  - Courier\ndefault_font_name: Georgia\ndefault_font_size: 12\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadStyleConfig(path)
	if err != nil {
		t.Fatalf("LoadStyleConfig: %v", err)
	}
	if !cfg.FontAllowed("Georgia") {
		t.Fatalf("Georgia should be allowed")
	}
	if cfg.FontAllowed("Helvetica") {
		t.Fatalf("Helvetica should not be allowed by the override")
	}
	styles := cfg.DefaultStyles()
	if styles.FontName != "Georgia" || styles.FontSize != 12 {
		t.Fatalf("defaults = %+v", styles)
	}
}

func TestLoadStyleConfigFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	if err := os.WriteFile(path, []byte("default_font_size: 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadStyleConfig(path)
	if err != nil {
		t.Fatalf("LoadStyleConfig: %v", err)
	}
	if !cfg.FontAllowed("Helvetica") {
		t.Fatalf("default fonts should backfill an empty allow-list")
	}
	if cfg.DefaultStyles().FontSize != 10 {
		t.Fatalf("explicit size lost: %+v", cfg.DefaultStyles())
	}
}

func TestLoadStyleConfigRejectsBadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	raw := []byte("allowed_fonts:\n  - Georgia\ndefault_font_name: Georgia\ndefault_font_size: 72\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadStyleConfig(path); err == nil {
		t.Fatalf("expected error for out-of-range default size")
	}
}

func TestSceneInRange(t *testing.T) {
	s := &StorybookSession{Scenes: []Scene{{Text: "a"}, {Text: "b"}}}
	if !s.SceneInRange(0) || !s.SceneInRange(1) {
		t.Fatalf("valid indices rejected")
	}
	if s.SceneInRange(2) || s.SceneInRange(-1) {
		t.Fatalf("invalid indices accepted")
	}
}
