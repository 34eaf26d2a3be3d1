package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// PatternPlacement seeds a named pattern at a grid position on start
type PatternPlacement struct {
	Name string `json:"name" hcl:"name,label"`
	Row  int    `json:"row" hcl:"row"`
	Col  int    `json:"col" hcl:"col"`
}

// Config holds the configuration for the game
type Config struct {
	// Grid size in cells. When zero, derived from the window size
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// Window size and cell size in pixels
	WindowWidth  int `json:"window_width"`
	WindowHeight int `json:"window_height"`
	CellSize     int `json:"cell_size"`

	FrameRate       time.Duration `json:"frame_rate"`       // time between ticks
	GenerationSpeed int           `json:"generation_speed"` // ticks per generation
	StartRunning    bool          `json:"start_running"`

	AutoRestart         bool `json:"auto_restart"`
	StagnationThreshold int  `json:"stagnation_threshold"`
	InjectionCount      int  `json:"injection_count"`
	MaxGenerations      int  `json:"max_generations"`
	RefreshInterval     int  `json:"refresh_interval"` // generations between auto restarts, 0 disables

	UseParallel    bool    `json:"use_parallel"`
	UseBoundedGrid bool    `json:"use_bounded_grid"` // mark only around living cells
	RandomDensity  float64 `json:"random_density"`
	Seed           int64   `json:"seed"`

	Patterns []PatternPlacement `json:"patterns"`
}

// DefaultConfig returns sensible defaults: a 600x600 window of 8px cells
func DefaultConfig() Config {
	return Config{
		WindowWidth:         600,
		WindowHeight:        600,
		CellSize:            8,
		FrameRate:           30 * time.Millisecond,
		GenerationSpeed:     5,
		StartRunning:        false,
		AutoRestart:         false,
		StagnationThreshold: 5,
		InjectionCount:      3,
		MaxGenerations:      0,
		RefreshInterval:     200,
		UseParallel:         true,
		UseBoundedGrid:      true, // Enable active region optimization
		RandomDensity:       0,
		Seed:                1,
	}
}

// GridSize returns the grid dimensions in cells
func (c Config) GridSize() (rows, cols int) {
	if c.Rows > 0 && c.Cols > 0 {
		return c.Rows, c.Cols
	}
	if c.CellSize <= 0 {
		return 0, 0
	}
	return c.WindowHeight / c.CellSize, c.WindowWidth / c.CellSize
}

// Validate checks the config for values the game cannot run with
func (c Config) Validate() error {
	if rows, cols := c.GridSize(); rows < 1 || cols < 1 {
		return errors.Wrapf(ErrInvalidConfig, "[Config.Validate] grid size %dx%d", rows, cols)
	}
	if c.FrameRate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "[Config.Validate] frame_rate %v", c.FrameRate)
	}
	if c.GenerationSpeed < 1 {
		return errors.Wrapf(ErrInvalidConfig, "[Config.Validate] generation_speed %d", c.GenerationSpeed)
	}
	if c.RandomDensity < 0 || c.RandomDensity > 1 {
		return errors.Wrapf(ErrInvalidConfig, "[Config.Validate] random_density %v", c.RandomDensity)
	}
	if c.StagnationThreshold < 0 || c.InjectionCount < 0 || c.MaxGenerations < 0 || c.RefreshInterval < 0 {
		return errors.Wrap(ErrInvalidConfig, "[Config.Validate] negative threshold")
	}
	return nil
}

// LoadConfig loads configuration from a JSON or HCL file on top of the defaults
func LoadConfig(filename string) (Config, error) {
	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		return loadHCLConfig(filename)
	}

	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, errors.Wrapf(err, "[LoadConfig] failed to read file: %+v", filename)
	}

	if err = json.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "[LoadConfig] failed to unmarshal data from file: %+v", filename)
	}

	return config, nil
}

// hclConfig mirrors Config for HCL files. Durations are strings ("30ms").
type hclConfig struct {
	Rows                *int                `hcl:"rows,optional"`
	Cols                *int                `hcl:"cols,optional"`
	WindowWidth         *int                `hcl:"window_width,optional"`
	WindowHeight        *int                `hcl:"window_height,optional"`
	CellSize            *int                `hcl:"cell_size,optional"`
	FrameRate           *string             `hcl:"frame_rate,optional"`
	GenerationSpeed     *int                `hcl:"generation_speed,optional"`
	StartRunning        *bool               `hcl:"start_running,optional"`
	AutoRestart         *bool               `hcl:"auto_restart,optional"`
	StagnationThreshold *int                `hcl:"stagnation_threshold,optional"`
	InjectionCount      *int                `hcl:"injection_count,optional"`
	MaxGenerations      *int                `hcl:"max_generations,optional"`
	RefreshInterval     *int                `hcl:"refresh_interval,optional"`
	UseParallel         *bool               `hcl:"use_parallel,optional"`
	UseBoundedGrid      *bool               `hcl:"use_bounded_grid,optional"`
	RandomDensity       *float64            `hcl:"random_density,optional"`
	Seed                *int64              `hcl:"seed,optional"`
	Patterns            []*PatternPlacement `hcl:"pattern,block"`
}

func loadHCLConfig(filename string) (Config, error) {
	config := DefaultConfig()

	src, err := os.ReadFile(filename)
	if err != nil {
		return config, errors.Wrapf(err, "[LoadConfig] failed to read file: %+v", filename)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return config, errors.Wrapf(diags, "[LoadConfig] failed to parse HCL file: %+v", filename)
	}

	var raw hclConfig
	if diags = gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return config, errors.Wrapf(diags, "[LoadConfig] failed to decode HCL file: %+v", filename)
	}

	setInt(&config.Rows, raw.Rows)
	setInt(&config.Cols, raw.Cols)
	setInt(&config.WindowWidth, raw.WindowWidth)
	setInt(&config.WindowHeight, raw.WindowHeight)
	setInt(&config.CellSize, raw.CellSize)
	setInt(&config.GenerationSpeed, raw.GenerationSpeed)
	setInt(&config.StagnationThreshold, raw.StagnationThreshold)
	setInt(&config.InjectionCount, raw.InjectionCount)
	setInt(&config.MaxGenerations, raw.MaxGenerations)
	if raw.StartRunning != nil {
		config.StartRunning = *raw.StartRunning
	}
	if raw.AutoRestart != nil {
		config.AutoRestart = *raw.AutoRestart
	}
	setInt(&config.RefreshInterval, raw.RefreshInterval)
	if raw.UseParallel != nil {
		config.UseParallel = *raw.UseParallel
	}
	if raw.UseBoundedGrid != nil {
		config.UseBoundedGrid = *raw.UseBoundedGrid
	}
	if raw.RandomDensity != nil {
		config.RandomDensity = *raw.RandomDensity
	}
	if raw.Seed != nil {
		config.Seed = *raw.Seed
	}
	if raw.FrameRate != nil {
		d, err := time.ParseDuration(*raw.FrameRate)
		if err != nil {
			return config, errors.Wrapf(err, "[LoadConfig] invalid frame_rate in %+v", filename)
		}
		config.FrameRate = d
	}
	for _, p := range raw.Patterns {
		config.Patterns = append(config.Patterns, *p)
	}

	return config, nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
