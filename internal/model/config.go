package model

import "time"

// Config is the full runtime configuration, loaded from defaults,
// the config file, LINEAGE_* environment variables and flags.
type Config struct {
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Duplicates DuplicateConfig  `yaml:"duplicates" mapstructure:"duplicates"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	OCR        EngineConfig     `yaml:"ocr" mapstructure:"ocr"`
	Vision     EngineConfig     `yaml:"vision" mapstructure:"vision"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig locates the lineage database
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MatchConfig holds every tunable used when scoring evidence against persons.
//
// A candidate name is compared with each person's full name. When both the
// given name and surname components clear ComponentGate, a weighted component
// score may beat the full-name ratio. Scores under PromisingScore fall back to
// a discounted surname-only match. Known birth and death years found in the
// same text add their boosts before the result is capped at 1.0.
type MatchConfig struct {
	FilenameThreshold     float64 `yaml:"filename_threshold" mapstructure:"filename_threshold"`
	TextThreshold         float64 `yaml:"text_threshold" mapstructure:"text_threshold"`
	GivenWeight           float64 `yaml:"given_weight" mapstructure:"given_weight"`
	SurnameWeight         float64 `yaml:"surname_weight" mapstructure:"surname_weight"`
	ComponentGate         float64 `yaml:"component_gate" mapstructure:"component_gate"`
	PromisingScore        float64 `yaml:"promising_score" mapstructure:"promising_score"`
	SurnameOnlyGate       float64 `yaml:"surname_only_gate" mapstructure:"surname_only_gate"`
	SurnameOnlyWeight     float64 `yaml:"surname_only_weight" mapstructure:"surname_only_weight"`
	BirthYearBoost        float64 `yaml:"birth_year_boost" mapstructure:"birth_year_boost"`
	DeathYearBoost        float64 `yaml:"death_year_boost" mapstructure:"death_year_boost"`
	MaxMatchesPerDocument int     `yaml:"max_matches_per_document" mapstructure:"max_matches_per_document"`
	MinTextLength         int     `yaml:"min_text_length" mapstructure:"min_text_length"` // Shorter OCR/vision text yields no names
	SnippetLength         int     `yaml:"snippet_length" mapstructure:"snippet_length"`
}

// ThresholdFor returns the acceptance threshold for a source.
func (c MatchConfig) ThresholdFor(source Source) float64 {
	if source == SourceFilename {
		return c.FilenameThreshold
	}
	return c.TextThreshold
}

// DuplicateConfig controls duplicate candidate detection
type DuplicateConfig struct {
	YearWindow      int `yaml:"year_window" mapstructure:"year_window"`             // Known birth years further apart are never paired
	CloseYearWindow int `yaml:"close_year_window" mapstructure:"close_year_window"` // Years this close earn the close-year points
	SameYearPoints  int `yaml:"same_year_points" mapstructure:"same_year_points"`
	CloseYearPoints int `yaml:"close_year_points" mapstructure:"close_year_points"`
	SurnamePoints   int `yaml:"surname_points" mapstructure:"surname_points"`
	GivenPoints     int `yaml:"given_points" mapstructure:"given_points"`
	PlacePoints     int `yaml:"place_points" mapstructure:"place_points"`
	MaxCandidates   int `yaml:"max_candidates" mapstructure:"max_candidates"`
	MinVariantTotal int `yaml:"min_variant_total" mapstructure:"min_variant_total"` // Surname groups below this are not reported
}

// ConfidenceConfig controls the document bonus and tier boundaries
type ConfidenceConfig struct {
	VerifiedBonus   int `yaml:"verified_bonus" mapstructure:"verified_bonus"`
	UnverifiedBonus int `yaml:"unverified_bonus" mapstructure:"unverified_bonus"`
	MaxBonus        int `yaml:"max_bonus" mapstructure:"max_bonus"`
	HighTier        int `yaml:"high_tier" mapstructure:"high_tier"`
	MediumTier      int `yaml:"medium_tier" mapstructure:"medium_tier"`
	LowTier         int `yaml:"low_tier" mapstructure:"low_tier"`
}

// ScanConfig controls document discovery and batch behaviour
type ScanConfig struct {
	RawDir           string        `yaml:"raw_dir" mapstructure:"raw_dir"`
	Extensions       []string      `yaml:"extensions" mapstructure:"extensions"`
	SkipDirs         []string      `yaml:"skip_dirs" mapstructure:"skip_dirs"`
	FilenameEvery    int           `yaml:"filename_checkpoint_every" mapstructure:"filename_checkpoint_every"`
	OCREvery         int           `yaml:"ocr_checkpoint_every" mapstructure:"ocr_checkpoint_every"`
	VisionEvery      int           `yaml:"vision_checkpoint_every" mapstructure:"vision_checkpoint_every"`
	MaxDuration      time.Duration `yaml:"max_duration" mapstructure:"max_duration"` // 0 means no limit
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	Rescan           bool          `yaml:"rescan" mapstructure:"rescan"`
}

// EngineConfig configures one transcription backend
type EngineConfig struct {
	Engine            string  `yaml:"engine" mapstructure:"engine"` // tesseract, ollama, openai, or "" to disable
	Model             string  `yaml:"model,omitempty" mapstructure:"model"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Command           string  `yaml:"command,omitempty" mapstructure:"command"`   // Binary for CLI engines
	Language          string  `yaml:"language,omitempty" mapstructure:"language"` // OCR language code
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"`             // seconds
	MaxImagePx        int     `yaml:"max_image_px,omitempty" mapstructure:"max_image_px"`
	MaxTokens         int     `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Prompt            string  `yaml:"prompt,omitempty" mapstructure:"prompt"` // Overrides the built-in prompt
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the transcription cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultMatchConfig returns the scoring defaults
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		FilenameThreshold:     0.82,
		TextThreshold:         0.78,
		GivenWeight:           0.4,
		SurnameWeight:         0.6,
		ComponentGate:         0.7,
		PromisingScore:        0.5,
		SurnameOnlyGate:       0.9,
		SurnameOnlyWeight:     0.45,
		BirthYearBoost:        0.12,
		DeathYearBoost:        0.08,
		MaxMatchesPerDocument: 5,
		MinTextLength:         10,
		SnippetLength:         200,
	}
}

// DefaultDuplicateConfig returns the duplicate detection defaults
func DefaultDuplicateConfig() DuplicateConfig {
	return DuplicateConfig{
		YearWindow:      5,
		CloseYearWindow: 2,
		SameYearPoints:  3,
		CloseYearPoints: 2,
		SurnamePoints:   2,
		GivenPoints:     2,
		PlacePoints:     2,
		MaxCandidates:   100,
		MinVariantTotal: 3,
	}
}

// DefaultConfidenceConfig returns the confidence aggregation defaults
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		VerifiedBonus:   5,
		UnverifiedBonus: 2,
		MaxBonus:        15,
		HighTier:        80,
		MediumTier:      50,
		LowTier:         20,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "lineage.db",
		},
		Match:      DefaultMatchConfig(),
		Duplicates: DefaultDuplicateConfig(),
		Confidence: DefaultConfidenceConfig(),
		Scan: ScanConfig{
			RawDir:           "raw",
			Extensions:       []string{".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff", ".bmp", ".webp", ".pdf", ".doc", ".docx"},
			SkipDirs:         []string{"thumbs", "Data and Bkups"},
			FilenameEvery:    200,
			OCREvery:         50,
			VisionEvery:      5,
			MaxDuration:      0,
			FailureThreshold: 3,
		},
		OCR: EngineConfig{
			Engine:   "tesseract",
			Command:  "tesseract",
			Language: "eng",
			Timeout:  120,
		},
		Vision: EngineConfig{
			Engine:            "ollama",
			Model:             "minicpm-v:latest",
			BaseURL:           "http://localhost:11434",
			Timeout:           180,
			MaxImagePx:        1800,
			MaxTokens:         800,
			RequestsPerSecond: 1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".lineage-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
