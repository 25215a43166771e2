package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type TemplateFieldName string

type (
	// LibraryConfig locates the on-disk cache root every paginated document
	// lives under (§4.4, §6.2): a sub-directory per document, named by
	// internal/cachepath, holding its section caches, progress.bin and
	// anchor index.
	LibraryConfig struct {
		CacheRoot string `yaml:"cache_root" sanitize:"path_clean" validate:"required"`
	}

	// ViewportConfig is the page box every section is laid out against (§3
	// Render configuration, §4.2).
	ViewportConfig struct {
		Width  int `yaml:"width" validate:"min=100"`
		Height int `yaml:"height" validate:"min=100"`
	}

	// FontFaceConfig names the on-disk font files backing one font family,
	// registered with the text-metrics collaborator under an integer font
	// id the layout engine threads through its Config (§3 Glyph run, §7).
	FontFaceConfig struct {
		ID         int    `yaml:"id" validate:"required"`
		Regular    string `yaml:"regular" sanitize:"assure_file_access" validate:"required"`
		Bold       string `yaml:"bold,omitempty" sanitize:"assure_file_access"`
		Italic     string `yaml:"italic,omitempty" sanitize:"assure_file_access"`
		BoldItalic string `yaml:"bold_italic,omitempty" sanitize:"assure_file_access"`
		Grayscale  bool   `yaml:"grayscale"`
	}

	// FontsConfig bundles every registered family plus the single render
	// size all of them are measured at.
	FontsConfig struct {
		SizePx      float64          `yaml:"size_px" validate:"min=6"`
		DefaultFont int              `yaml:"default_font_id"`
		Faces       []FontFaceConfig `yaml:"faces" validate:"dive"`
	}

	// LayoutConfig is the subset of render configuration that shapes how
	// text flows into lines and pages (§4.2, §4.3).
	LayoutConfig struct {
		LineCompression  float64            `yaml:"line_compression" validate:"gte=0.5,lte=1.5"`
		ParagraphAlign   ParagraphAlignment `yaml:"paragraph_align"`
		UseGreedy        bool               `yaml:"use_greedy_line_breaking"`
		HyphenEnabled    bool               `yaml:"hyphenation_enabled"`
		IndentLevel      int                `yaml:"indent_level" validate:"gte=1,lte=3"`
		ParagraphSpacing SpacingLevel       `yaml:"paragraph_spacing"`
	}

	// ImagesConfig controls whether and how inline and cover images are
	// decoded, resized and cached (§4.3.2, §6.3).
	ImagesConfig struct {
		Enabled     bool            `yaml:"enabled"`
		Resize      ImageResizeMode `yaml:"resize"`
		TinyPolicy  TinyImagePolicy `yaml:"tiny_image_policy"`
		CoverWidth  int             `yaml:"cover_width" validate:"gte=0"`
		CoverHeight int             `yaml:"cover_height" validate:"gte=0"`
	}

	// StyleConfig names the stylesheet the CSS resolver collaborator loads
	// for every document (§4.3.1, §6.3).
	StyleConfig struct {
		StylesheetPath string `yaml:"stylesheet_path,omitempty" sanitize:"assure_file_access"`
	}

	// LimitsConfig carries the abort thresholds C3 checks between batches
	// (§4.3.4, §4.3.6).
	LimitsConfig struct {
		MaxParseTime time.Duration `yaml:"max_parse_time"`
		MinFreeHeap  int64         `yaml:"min_free_heap_bytes" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Library   LibraryConfig  `yaml:"library"`
		Viewport  ViewportConfig `yaml:"viewport"`
		Fonts     FontsConfig    `yaml:"fonts"`
		Layout    LayoutConfig   `yaml:"layout"`
		Images    ImagesConfig   `yaml:"images"`
		Style     StyleConfig    `yaml:"style"`
		Limits    LimitsConfig   `yaml:"limits"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	StylesheetPathFieldName TemplateFieldName = "stylesheet_path"
	CacheRootFieldName      TemplateFieldName = "cache_root"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(StylesheetPathFieldName)),
	gencfg.WithDoNotExpandField(string(CacheRootFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
