// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < scenario < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/logflow/loggen/internal/model"
	"github.com/logflow/loggen/pkg/catalog"
	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/generator"
	"github.com/logflow/loggen/pkg/sink"
	"github.com/logflow/loggen/pkg/storage/s3"
	"github.com/logflow/loggen/pkg/telemetry"
)

// DateLayout is the layout of configured start and end dates.
const DateLayout = "2006-01-02"

// Config holds all loggen configuration.
type Config struct {
	Version int `yaml:"version"`

	Generation GenerationConfig `yaml:"generation"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// GenerationConfig controls the timeline generator. Pointer fields
// distinguish an explicit zero from "not set".
type GenerationConfig struct {
	Seed int64 `yaml:"seed"` // 0 = random

	StartDate string `yaml:"start_date"` // YYYY-MM-DD, empty = today
	EndDate   string `yaml:"end_date"`
	Days      int    `yaml:"days"` // window length when end_date is empty

	Cases int `yaml:"cases"`

	MinCaseGap int  `yaml:"min_case_gap"` // seconds
	MaxCaseGap int  `yaml:"max_case_gap"`
	Jitter     *int `yaml:"jitter"`

	DaypartStart      *int  `yaml:"daypart_start"`
	DaypartEnd        *int  `yaml:"daypart_end"`
	StartMinuteOffset *bool `yaml:"start_minute_offset"`

	CaseIDPrefix  string `yaml:"case_id_prefix"`
	PadWidth      int    `yaml:"pad_width"`
	AnomalyMarker string `yaml:"anomaly_marker"`

	BatchActivity   string `yaml:"batch_activity"`
	DisableBatching bool   `yaml:"disable_batching"`
	Shuffle         *bool  `yaml:"shuffle"`
}

// OutputConfig controls export.
type OutputConfig struct {
	Format          string   `yaml:"format"`  // xlsx | csv | parquet
	Columns         string   `yaml:"columns"` // simple | route | all, empty = scenario hint
	ColumnList      []string `yaml:"column_list"`
	TimestampLayout string   `yaml:"timestamp_layout"`
	EventIDPrefix   string   `yaml:"event_id_prefix"`
	SheetName       string   `yaml:"sheet_name"`
	Compression     string   `yaml:"compression"` // parquet only
	Dir             string   `yaml:"dir"`
}

// StorageConfig holds remote destinations.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config configures s3:// outputs.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    *bool  `yaml:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	d := generator.DefaultConfig()
	jitter, start, end := d.Jitter, d.DaypartStart, d.DaypartEnd
	shuffle := d.Shuffle

	return &Config{
		Version: 1,
		Generation: GenerationConfig{
			Days:          7,
			Cases:         d.Cases,
			MinCaseGap:    d.MinCaseGap,
			MaxCaseGap:    d.MaxCaseGap,
			Jitter:        &jitter,
			DaypartStart:  &start,
			DaypartEnd:    &end,
			CaseIDPrefix:  d.CaseIDPrefix,
			PadWidth:      d.PadWidth,
			AnomalyMarker: d.AnomalyMarker,
			Shuffle:       &shuffle,
		},
		Output: OutputConfig{
			Format:          string(sink.FormatXLSX),
			TimestampLayout: model.TimestampLayout,
			EventIDPrefix:   model.DefaultFormat().EventIDPrefix,
			SheetName:       sink.DefaultSheetName,
			Compression:     sink.CompressionSnappy.String(),
			Dir:             ".",
		},
		Storage: StorageConfig{
			S3: S3Config{Region: "us-east-1"},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    telemetry.DefaultConfig().Endpoint,
			ServiceName: telemetry.DefaultConfig().ServiceName,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded

	// env holds generation overrides that win over scenario hints.
	env GenerationConfig

	getenv func(string) string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
		getenv: os.Getenv,
	}
}

// Load loads configuration from all sources in priority order.
// extra files are merged after the standard locations.
func (m *Manager) Load(extra ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	paths := append(m.getConfigPaths(), extra...)
	for i, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Ignore missing standard files; explicit ones must exist
			if os.IsNotExist(err) && i < len(paths)-len(extra) {
				continue
			}
			if os.IsNotExist(err) {
				return lgerrors.FileNotFound(path)
			}
			return fmt.Errorf("config %s: %w", path, err)
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/loggen/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".loggen", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".loggen.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.config.merge(&partial)
	return nil
}

// merge merges non-zero values from src into c.
func (c *Config) merge(src *Config) {
	g, s := &c.Generation, &src.Generation
	if s.Seed != 0 {
		g.Seed = s.Seed
	}
	if s.StartDate != "" {
		g.StartDate = s.StartDate
	}
	if s.EndDate != "" {
		g.EndDate = s.EndDate
	}
	if s.Days != 0 {
		g.Days = s.Days
	}
	if s.Cases != 0 {
		g.Cases = s.Cases
	}
	if s.MinCaseGap != 0 {
		g.MinCaseGap = s.MinCaseGap
	}
	if s.MaxCaseGap != 0 {
		g.MaxCaseGap = s.MaxCaseGap
	}
	if s.Jitter != nil {
		g.Jitter = s.Jitter
	}
	if s.DaypartStart != nil {
		g.DaypartStart = s.DaypartStart
	}
	if s.DaypartEnd != nil {
		g.DaypartEnd = s.DaypartEnd
	}
	if s.StartMinuteOffset != nil {
		g.StartMinuteOffset = s.StartMinuteOffset
	}
	if s.CaseIDPrefix != "" {
		g.CaseIDPrefix = s.CaseIDPrefix
	}
	if s.PadWidth != 0 {
		g.PadWidth = s.PadWidth
	}
	if s.AnomalyMarker != "" {
		g.AnomalyMarker = s.AnomalyMarker
	}
	if s.BatchActivity != "" {
		g.BatchActivity = s.BatchActivity
	}
	if s.DisableBatching {
		g.DisableBatching = true
	}
	if s.Shuffle != nil {
		g.Shuffle = s.Shuffle
	}

	// Output
	o, so := &c.Output, &src.Output
	if so.Format != "" {
		o.Format = so.Format
	}
	if so.Columns != "" {
		o.Columns = so.Columns
	}
	if len(so.ColumnList) > 0 {
		o.ColumnList = so.ColumnList
	}
	if so.TimestampLayout != "" {
		o.TimestampLayout = so.TimestampLayout
	}
	if so.EventIDPrefix != "" {
		o.EventIDPrefix = so.EventIDPrefix
	}
	if so.SheetName != "" {
		o.SheetName = so.SheetName
	}
	if so.Compression != "" {
		o.Compression = so.Compression
	}
	if so.Dir != "" {
		o.Dir = so.Dir
	}

	// Storage
	if src.Storage.S3.Region != "" {
		c.Storage.S3.Region = src.Storage.S3.Region
	}
	if src.Storage.S3.Endpoint != "" {
		c.Storage.S3.Endpoint = src.Storage.S3.Endpoint
	}
	if src.Storage.S3.UsePathStyle {
		c.Storage.S3.UsePathStyle = true
	}

	// Telemetry
	if src.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		c.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.ServiceName != "" {
		c.Telemetry.ServiceName = src.Telemetry.ServiceName
	}
	if src.Telemetry.Insecure != nil {
		c.Telemetry.Insecure = src.Telemetry.Insecure
	}
}

// loadEnv loads configuration from environment variables.
// Malformed numeric values are ignored.
func (m *Manager) loadEnv() {
	m.env = GenerationConfig{}

	// LOGGEN_SEED
	if v := m.getenv("LOGGEN_SEED"); v != "" {
		if seed, err := cast.ToInt64E(v); err == nil {
			m.config.Generation.Seed = seed
		}
	}

	// LOGGEN_JITTER
	if v := m.getenv("LOGGEN_JITTER"); v != "" {
		if jitter, err := cast.ToIntE(v); err == nil {
			m.config.Generation.Jitter = &jitter
			m.env.Jitter = &jitter
		}
	}

	// LOGGEN_FORMAT
	if v := m.getenv("LOGGEN_FORMAT"); v != "" {
		m.config.Output.Format = v
	}

	// LOGGEN_S3_ENDPOINT
	if v := m.getenv("LOGGEN_S3_ENDPOINT"); v != "" {
		m.config.Storage.S3.Endpoint = v
		m.config.Storage.S3.UsePathStyle = true
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Generator resolves the run settings for a scenario: configured values,
// then the scenario's hints, then environment overrides.
func (m *Manager) Generator(sc *catalog.Scenario) (generator.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, err := m.config.Generation.Resolve(time.Now())
	if err != nil {
		return cfg, err
	}
	if sc != nil {
		cfg = cfg.ForScenario(sc)
	}
	if m.env.Jitter != nil {
		cfg.Jitter = *m.env.Jitter
	}
	return cfg, nil
}

// Resolve converts the section into generator settings. now anchors an
// empty start date.
func (g GenerationConfig) Resolve(now time.Time) (generator.Config, error) {
	cfg := generator.DefaultConfig()

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if g.StartDate != "" {
		t, err := time.Parse(DateLayout, g.StartDate)
		if err != nil {
			return cfg, lgerrors.Wrap(err, lgerrors.CodeInvalidDateRange, "invalid start date").
				WithContext("start_date", g.StartDate)
		}
		start = t
	}
	days := g.Days
	if days <= 0 {
		days = 7
	}
	end := start.AddDate(0, 0, days)
	if g.EndDate != "" {
		t, err := time.Parse(DateLayout, g.EndDate)
		if err != nil {
			return cfg, lgerrors.Wrap(err, lgerrors.CodeInvalidDateRange, "invalid end date").
				WithContext("end_date", g.EndDate)
		}
		end = t
	}
	cfg.StartDate, cfg.EndDate = start, end

	if g.Seed != 0 {
		cfg.Seed = g.Seed
	}
	if g.Cases != 0 {
		cfg.Cases = g.Cases
	}
	if g.MinCaseGap != 0 {
		cfg.MinCaseGap = g.MinCaseGap
	}
	if g.MaxCaseGap != 0 {
		cfg.MaxCaseGap = g.MaxCaseGap
	}
	if g.Jitter != nil {
		cfg.Jitter = *g.Jitter
	}
	if g.DaypartStart != nil {
		cfg.DaypartStart = *g.DaypartStart
	}
	if g.DaypartEnd != nil {
		cfg.DaypartEnd = *g.DaypartEnd
	}
	if g.StartMinuteOffset != nil {
		cfg.StartMinuteOffset = *g.StartMinuteOffset
	}
	if g.CaseIDPrefix != "" {
		cfg.CaseIDPrefix = g.CaseIDPrefix
	}
	if g.PadWidth != 0 {
		cfg.PadWidth = g.PadWidth
	}
	if g.AnomalyMarker != "" {
		cfg.AnomalyMarker = g.AnomalyMarker
	}
	if g.Shuffle != nil {
		cfg.Shuffle = *g.Shuffle
	}
	cfg.BatchActivity = g.BatchActivity
	cfg.DisableBatching = g.DisableBatching
	return cfg, nil
}

// Sink builds export options. preset is the scenario's column hint; it
// applies when neither a preset nor a column list is configured.
func (o OutputConfig) Sink(preset string) (sink.Options, error) {
	opts := sink.DefaultOptions()

	cols, err := o.columns(preset)
	if err != nil {
		return opts, err
	}
	opts.Columns = cols

	if o.TimestampLayout != "" {
		opts.Format.TimestampLayout = o.TimestampLayout
	}
	if o.EventIDPrefix != "" {
		opts.Format.EventIDPrefix = o.EventIDPrefix
	}
	if o.SheetName != "" {
		opts.SheetName = o.SheetName
	}
	if o.Compression != "" {
		opts.Compression = sink.ParseCompression(o.Compression)
	}
	return opts, nil
}

func (o OutputConfig) columns(preset string) ([]model.Column, error) {
	if len(o.ColumnList) > 0 {
		cols := make([]model.Column, 0, len(o.ColumnList))
		for _, name := range o.ColumnList {
			c, ok := model.ParseColumn(strings.TrimSpace(name))
			if !ok {
				return nil, lgerrors.New(lgerrors.CodeInvalidColumn, "unknown column").
					WithContext("column", name)
			}
			cols = append(cols, c)
		}
		return cols, nil
	}

	name := o.Columns
	if name == "" {
		name = preset
	}
	cols, ok := model.ColumnPreset(name)
	if !ok {
		return nil, lgerrors.New(lgerrors.CodeInvalidColumn, "unknown column preset").
			WithContext("columns", name)
	}
	return cols, nil
}

// S3 returns the client settings for s3:// outputs.
func (s S3Config) S3() s3.Config {
	cfg := s3.DefaultConfig(s.Region)
	cfg.Endpoint = s.Endpoint
	cfg.UsePathStyle = s.UsePathStyle
	return cfg
}

// Tracing returns exporter settings.
func (t TelemetryConfig) Tracing(version string) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if t.Endpoint != "" {
		cfg.Endpoint = t.Endpoint
	}
	if t.ServiceName != "" {
		cfg.ServiceName = t.ServiceName
	}
	if t.Insecure != nil {
		cfg.Insecure = *t.Insecure
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}

// Save writes the current config to path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
