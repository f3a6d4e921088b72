// Package config defines the service configuration and its translation into
// recognizer and library settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/recognizer"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// PluginDir holds output plugin directories.
	PluginDir string `koanf:"plugin_dir"`

	// CameraEnabled runs the live camera pipeline next to the HTTP server.
	CameraEnabled bool `koanf:"camera_enabled"`
	CameraID      int  `koanf:"camera_id"`
	FrameWidth    int  `koanf:"frame_width"`
	FrameHeight   int  `koanf:"frame_height"`

	// ChangeThreshold is the percentage of changed pixels that wakes the
	// camera pipeline from idle.
	ChangeThreshold float64 `koanf:"change_threshold"`

	// Practice starts the camera session as a drill over these letters.
	Practice string `koanf:"practice"`

	// StaticDir serves the web UI. Empty searches the usual locations.
	StaticDir string `koanf:"static_dir"`

	// DetectorScript overrides the MediaPipe service script location.
	DetectorScript string `koanf:"detector_script"`

	// Alphabet restricts recognition to these letters, e.g. "ABCJ" or "A,B,C,J".
	// Empty means every letter.
	Alphabet string `koanf:"alphabet"`

	AcceptThreshold  float64 `koanf:"accept_threshold"`
	TieEpsilon       float64 `koanf:"tie_epsilon"`
	HysteresisFrames int     `koanf:"hysteresis_frames"`
	HysteresisMinMS  int     `koanf:"hysteresis_min_ms"`
	ResetTimeoutMS   int     `koanf:"reset_timeout_ms"`
	MotionHoldMS     int     `koanf:"motion_hold_ms"`
	ConfidenceDecay  float64 `koanf:"confidence_decay"`

	ToleranceFactor  float64 `koanf:"tolerance_factor"`
	TriggerThreshold float64 `koanf:"trigger_threshold"`
	CooldownMS       int     `koanf:"cooldown_ms"`
	MinSamples       int     `koanf:"min_samples"`

	// MotionDurations overrides the expected duration (ms) per motion letter.
	MotionDurations map[string]int `koanf:"motion_durations"`

	// Hints overrides the practice hint per letter.
	Hints map[string]string `koanf:"hints"`

	// OutputPlugin, when set, receives every new letter with OutputAction.
	OutputPlugin string `koanf:"output_plugin"`
	OutputAction string `koanf:"output_action"`
}

// New creates a Config with defaults.
func New() *Config {
	dataDir := ".fingerspell"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".fingerspell")
	}

	def := recognizer.DefaultConfig()
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		DBPath:           filepath.Join(dataDir, "fingerspell.db"),
		PluginDir:        filepath.Join(dataDir, "plugins"),
		ChangeThreshold:  1.0,
		FrameWidth:       640,
		FrameHeight:      480,
		AcceptThreshold:  def.AcceptThreshold,
		TieEpsilon:       def.TieEpsilon,
		HysteresisFrames: def.HysteresisFrames,
		HysteresisMinMS:  int(def.HysteresisMinDuration.Milliseconds()),
		ResetTimeoutMS:   int(def.ResetTimeout.Milliseconds()),
		MotionHoldMS:     int(def.MotionHold.Milliseconds()),
		ConfidenceDecay:  def.ConfidenceDecay,
		ToleranceFactor:  def.Tracker.ToleranceFactor,
		TriggerThreshold: def.Tracker.TriggerThreshold,
		CooldownMS:       int(def.Tracker.Cooldown.Milliseconds()),
		MinSamples:       def.Tracker.MinSamples,
		MotionDurations:  map[string]int{},
		Hints:            map[string]string{},
		OutputAction:     "type",
	}
}

// Letters parses Alphabet. Commas and whitespace are ignored.
func (c *Config) Letters() []string {
	var out []string
	for _, r := range c.Alphabet {
		if r == ',' || unicode.IsSpace(r) {
			continue
		}
		out = append(out, strings.ToUpper(string(r)))
	}
	return out
}

// RecognizerConfig translates the thresholds into recognizer settings.
func (c *Config) RecognizerConfig() recognizer.Config {
	return recognizer.Config{
		AcceptThreshold:       c.AcceptThreshold,
		TieEpsilon:            c.TieEpsilon,
		HysteresisFrames:      c.HysteresisFrames,
		HysteresisMinDuration: ms(c.HysteresisMinMS),
		ResetTimeout:          ms(c.ResetTimeoutMS),
		MotionHold:            ms(c.MotionHoldMS),
		ConfidenceDecay:       c.ConfidenceDecay,
		Tracker: gesture.TrackerConfig{
			ToleranceFactor:  c.ToleranceFactor,
			TriggerThreshold: c.TriggerThreshold,
			AcceptThreshold:  c.AcceptThreshold,
			Cooldown:         ms(c.CooldownMS),
			MinSamples:       c.MinSamples,
		},
	}
}

// LibraryOptions translates the alphabet, durations and hints into library options.
func (c *Config) LibraryOptions() []gesture.LibraryOption {
	var opts []gesture.LibraryOption
	if letters := c.Letters(); len(letters) > 0 {
		opts = append(opts, gesture.WithAlphabet(letters...))
	}
	for letter, d := range c.MotionDurations {
		opts = append(opts, gesture.WithMotionDuration(letter, ms(d)))
	}
	for letter, hint := range c.Hints {
		opts = append(opts, gesture.WithHint(letter, hint))
	}
	return opts
}

// Library builds the ASL library with the configured options.
func (c *Config) Library() (*gesture.Library, error) {
	lib, err := gesture.NewASLLibrary(c.LibraryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return lib, nil
}

// Validate checks the configuration as a whole, including the library it describes.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("%w: frame size must be positive", ErrInvalidConfig)
	}
	if c.ChangeThreshold <= 0 || c.ChangeThreshold > 100 {
		return fmt.Errorf("%w: change_threshold must be in (0, 100]", ErrInvalidConfig)
	}
	for letter, d := range c.MotionDurations {
		if d <= 0 {
			return fmt.Errorf("%w: motion duration for %s must be positive", ErrInvalidConfig, letter)
		}
	}
	if c.OutputPlugin != "" && c.OutputAction == "" {
		return fmt.Errorf("%w: output_action required with output_plugin", ErrInvalidConfig)
	}
	if err := c.RecognizerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	lib, err := c.Library()
	if err != nil {
		return err
	}
	if c.Practice != "" {
		if _, err := practice.New(lib, c.Practice); err != nil {
			return fmt.Errorf("%w: practice: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
