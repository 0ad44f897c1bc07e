package types

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinFontSize = 8
	MaxFontSize = 36
)

// StyleConfig is the allow-list of fonts a storybook may be set in. The
// defaults cover the core PDF fonts; deployments can override the list with
// a YAML file (see LoadStyleConfig).
type StyleConfig struct {
	AllowedFonts    []string `yaml:"allowed_fonts"`
	DefaultFontName string   `yaml:"default_font_name"`
	DefaultFontSize int      `yaml:"default_font_size"`

	fontSet map[string]struct{}
}

func DefaultStyleConfig() *StyleConfig {
	cfg := &StyleConfig{
		AllowedFonts:    []string{"Helvetica", "Times", "Courier", "Arial"},
		DefaultFontName: "Helvetica",
		DefaultFontSize: 14,
	}
	cfg.buildFontSet()
	return cfg
}

// LoadStyleConfig reads a YAML style config from path, falling back to the
// defaults for any field the file leaves empty.
func LoadStyleConfig(path string) (*StyleConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read style config: %w", err)
	}
	cfg := &StyleConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse style config: %w", err)
	}
	def := DefaultStyleConfig()
	if len(cfg.AllowedFonts) == 0 {
		cfg.AllowedFonts = def.AllowedFonts
	}
	if strings.TrimSpace(cfg.DefaultFontName) == "" {
		cfg.DefaultFontName = def.DefaultFontName
	}
	if cfg.DefaultFontSize == 0 {
		cfg.DefaultFontSize = def.DefaultFontSize
	}
	cfg.buildFontSet()
	if err := cfg.Validate(cfg.DefaultFontName, cfg.DefaultFontSize); err != nil {
		return nil, fmt.Errorf("style config defaults: %w", err)
	}
	return cfg, nil
}

func (c *StyleConfig) buildFontSet() {
	c.fontSet = make(map[string]struct{}, len(c.AllowedFonts))
	for _, f := range c.AllowedFonts {
		c.fontSet[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
}

func (c *StyleConfig) FontAllowed(name string) bool {
	if c.fontSet == nil {
		c.buildFontSet()
	}
	_, ok := c.fontSet[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Validate checks a font name/size pair against the allow-list and the
// [MinFontSize, MaxFontSize] range. Both bounds are inclusive.
func (c *StyleConfig) Validate(fontName string, fontSize int) error {
	if !c.FontAllowed(fontName) {
		return fmt.Errorf("%w: font %q is not in the allowed set", ErrInvalidStyle, fontName)
	}
	if fontSize < MinFontSize || fontSize > MaxFontSize {
		return fmt.Errorf("%w: font size %d outside [%d,%d]", ErrInvalidStyle, fontSize, MinFontSize, MaxFontSize)
	}
	return nil
}

func (c *StyleConfig) DefaultStyles() Styles {
	return Styles{FontName: c.DefaultFontName, FontSize: c.DefaultFontSize}
}
