// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Inspector() InspectorConfig
	Scheduler() SchedulerConfig
	Prefs() PrefsConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserViewport(width, height int)

	// Inspector Setters
	SetInspectorMaxElements(int)
	SetInspectorMaxGapSegments(int)
	SetInspectorMinLabelThickness(float64)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	InspectorCfg InspectorConfig `mapstructure:"inspector" yaml:"inspector"`
	SchedulerCfg SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	PrefsCfg     PrefsConfig     `mapstructure:"prefs" yaml:"prefs"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Inspector() InspectorConfig { return c.InspectorCfg }
func (c *Config) Scheduler() SchedulerConfig { return c.SchedulerCfg }
func (c *Config) Prefs() PrefsConfig         { return c.PrefsCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserViewport(width, height int) {
	c.BrowserCfg.ViewportWidth = width
	c.BrowserCfg.ViewportHeight = height
}

func (c *Config) SetInspectorMaxElements(n int)    { c.InspectorCfg.MaxElements = n }
func (c *Config) SetInspectorMaxGapSegments(n int) { c.InspectorCfg.MaxGapSegments = n }
func (c *Config) SetInspectorMinLabelThickness(px float64) {
	c.InspectorCfg.MinLabelThicknessPx = px
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance hosting the inspected page.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	DisableCache      bool          `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// InspectorConfig carries the geometry engine's tunables.
type InspectorConfig struct {
	MinLabelThicknessPx     float64       `mapstructure:"min_label_thickness_px" yaml:"min_label_thickness_px"`
	MaxElements             int           `mapstructure:"max_elements" yaml:"max_elements"`
	MaxGapSegments          int           `mapstructure:"max_gap_segments" yaml:"max_gap_segments"`
	RowGroupingEpsilonPx    float64       `mapstructure:"row_grouping_epsilon_px" yaml:"row_grouping_epsilon_px"`
	ColumnGroupingEpsilonPx float64       `mapstructure:"column_grouping_epsilon_px" yaml:"column_grouping_epsilon_px"`
	NoticeDuration          time.Duration `mapstructure:"notice_duration" yaml:"notice_duration"`
	// UIPrefix marks ids and classes that belong to the inspector's own nodes.
	UIPrefix string `mapstructure:"ui_prefix" yaml:"ui_prefix"`
}

// SchedulerConfig tunes recomputation coalescing.
type SchedulerConfig struct {
	FrameInterval  time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	ResizeDebounce time.Duration `mapstructure:"resize_debounce" yaml:"resize_debounce"`
}

// PrefsConfig locates the persisted toggle state and its first-run values.
type PrefsConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	SweepMode  bool   `mapstructure:"sweep_mode" yaml:"sweep_mode"`
	ShowLegend bool   `mapstructure:"show_legend" yaml:"show_legend"`
}

// NewDefaultConfig creates a configuration populated with the defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal the defaults into the config struct.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "boxlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.post_load_wait", "500ms")

	// -- Inspector --
	v.SetDefault("inspector.min_label_thickness_px", 12.0)
	v.SetDefault("inspector.max_elements", 300)
	v.SetDefault("inspector.max_gap_segments", 600)
	v.SetDefault("inspector.row_grouping_epsilon_px", 6.0)
	v.SetDefault("inspector.column_grouping_epsilon_px", 6.0)
	v.SetDefault("inspector.notice_duration", "1400ms")
	v.SetDefault("inspector.ui_prefix", "bl-")

	// -- Scheduler --
	v.SetDefault("scheduler.frame_interval", "16ms")
	v.SetDefault("scheduler.resize_debounce", "100ms")

	// -- Prefs --
	v.SetDefault("prefs.path", "~/.boxlens/state.json")
	v.SetDefault("prefs.enabled", true)
	v.SetDefault("prefs.sweep_mode", false)
	v.SetDefault("prefs.show_legend", true)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.ViewportWidth <= 0 || c.BrowserCfg.ViewportHeight <= 0 {
		return fmt.Errorf("browser.viewport_width and browser.viewport_height must be positive integers")
	}
	if err := c.InspectorCfg.Validate(); err != nil {
		return fmt.Errorf("inspector configuration invalid: %w", err)
	}
	if c.SchedulerCfg.FrameInterval <= 0 {
		return fmt.Errorf("scheduler.frame_interval must be a positive duration")
	}
	if c.SchedulerCfg.ResizeDebounce < 0 {
		return fmt.Errorf("scheduler.resize_debounce must not be negative")
	}
	return nil
}

// Validate checks the inspector tunables.
func (i *InspectorConfig) Validate() error {
	if i.MaxElements <= 0 {
		return fmt.Errorf("max_elements must be a positive integer")
	}
	if i.MaxGapSegments <= 0 {
		return fmt.Errorf("max_gap_segments must be a positive integer")
	}
	if i.MinLabelThicknessPx < 0 {
		return fmt.Errorf("min_label_thickness_px must not be negative")
	}
	if i.RowGroupingEpsilonPx < 0 || i.ColumnGroupingEpsilonPx < 0 {
		return fmt.Errorf("grouping epsilons must not be negative")
	}
	if strings.TrimSpace(i.UIPrefix) == "" {
		return fmt.Errorf("ui_prefix is required so the inspector can skip its own nodes")
	}
	return nil
}
