// Package game drives a simulation: it owns the grid and engine, advances
// generations on a fixed tick cadence and applies user commands between
// ticks so that no two engine calls ever overlap.
package game

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/sheikhrachel/go-life/ctxlog"
	"github.com/sheikhrachel/go-life/engine"
	"github.com/sheikhrachel/go-life/model"
	"github.com/sheikhrachel/go-life/utils"
)

// Renderer draws the committed grid state
type Renderer interface {
	Clear() error
	Display(g model.CellReader) error
}

// Option configures a Driver
type Option func(*Driver)

// WithRenderer redraws the grid after every step, reset and toggle
func WithRenderer(r Renderer) Option {
	return func(d *Driver) {
		d.renderer = r
	}
}

// WithStatusOutput writes a status line above every redraw
func WithStatusOutput(w io.Writer) Option {
	return func(d *Driver) {
		d.statusOut = w
	}
}

type request struct {
	cmd   Command
	reply chan error
}

// Driver owns a grid and its engine and serializes every call into them
type Driver struct {
	config    utils.Config
	grid      *model.Grid
	engine    *engine.Engine
	renderer  Renderer
	statusOut io.Writer
	stats     *utils.Stats
	rng       *rand.Rand

	requests chan request

	running        bool
	ticks          int
	stagnantCount  int
	lastRestartGen int
	lastStep       time.Time
}

// NewDriver builds the grid and engine described by config and seeds the
// initial population
func NewDriver(config utils.Config, opts ...Option) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rows, cols := config.GridSize()
	grid, err := model.NewGrid(rows, cols)
	if err != nil {
		return nil, errors.Wrap(err, "[NewDriver]")
	}

	var engineOpts []engine.Option
	if config.UseParallel {
		engineOpts = append(engineOpts, engine.WithParallelMark(0))
	}
	if config.UseBoundedGrid {
		engineOpts = append(engineOpts, engine.WithActiveRegion())
	}
	if config.StagnationThreshold > 0 {
		engineOpts = append(engineOpts, engine.WithStagnationDetection())
	}

	d := &Driver{
		config:   config,
		grid:     grid,
		engine:   engine.New(grid, engineOpts...),
		stats:    utils.NewStats(),
		rng:      rand.New(rand.NewPCG(uint64(config.Seed), 0)),
		requests: make(chan request),
		running:  config.StartRunning,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err = d.seed(); err != nil {
		return nil, err
	}
	return d, nil
}

// Grid returns the driven grid. Only read it while Run is not executing.
func (d *Driver) Grid() *model.Grid {
	return d.grid
}

// Stats returns the performance counters
func (d *Driver) Stats() *utils.Stats {
	return d.stats
}

// Running reports whether generations advance on ticks
func (d *Driver) Running() bool {
	return d.running
}

// seed fills the grid with random life and the configured patterns
func (d *Driver) seed() error {
	if d.config.RandomDensity > 0 {
		d.grid.Randomize(d.rng, d.config.RandomDensity)
	}
	for _, p := range d.config.Patterns {
		if err := d.grid.PlacePattern(p.Name, p.Row, p.Col); err != nil {
			return errors.Wrap(err, "[Driver.seed]")
		}
	}
	return nil
}

// canReseed reports whether a restart would produce any life
func (d *Driver) canReseed() bool {
	return d.config.RandomDensity > 0 || len(d.config.Patterns) > 0
}

// Do hands a command to the Run loop and waits for it to be applied
func (d *Driver) Do(ctx context.Context, cmd Command) error {
	req := request{cmd: cmd, reply: make(chan error, 1)}
	select {
	case d.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run advances the simulation on every GenerationSpeed-th tick while running
// and applies commands between ticks. It returns when ctx is cancelled, a quit
// command arrives or MaxGenerations is reached.
func (d *Driver) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	rows, cols := d.grid.Rows(), d.grid.Cols()
	logger.Info("Starting simulation.",
		"rows", rows, "cols", cols,
		"living", d.grid.CountLivingCells(),
		"generation_speed", d.config.GenerationSpeed,
		"frame_rate", d.config.FrameRate,
		"running", d.running,
	)
	d.render(ctx)

	ticker := time.NewTicker(d.config.FrameRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logFinalStats(ctx, "context done")
			return nil
		case req := <-d.requests:
			stop, err := d.apply(ctx, req.cmd)
			req.reply <- err
			if stop {
				reason := "quit"
				if req.cmd.Kind != CommandQuit {
					reason = "max generations"
				}
				d.logFinalStats(ctx, reason)
				return nil
			}
		case <-ticker.C:
			if d.tick(ctx) {
				d.logFinalStats(ctx, "max generations")
				return nil
			}
		}
	}
}

// apply executes a single command; the bool reports that Run should stop,
// either on a quit request or because a single step hit the generation limit
func (d *Driver) apply(ctx context.Context, cmd Command) (bool, error) {
	logger := ctxlog.FromContext(ctx)

	switch cmd.Kind {
	case CommandToggle:
		if err := d.engine.Toggle(cmd.Row, cmd.Col); err != nil {
			return false, err
		}
		logger.Debug("Toggled cell.", "row", cmd.Row, "col", cmd.Col)
		d.render(ctx)
	case CommandReset:
		d.engine.Reset()
		d.ticks = 0
		d.stagnantCount = 0
		d.lastRestartGen = d.stats.TotalGenerations
		logger.Info("Grid reset.")
		d.render(ctx)
	case CommandPause:
		d.running = !d.running
		logger.Info("Simulation toggled.", "running", d.running)
	case CommandStep:
		d.step(ctx)
		return d.limitReached(), nil
	case CommandQuit:
		return true, nil
	default:
		return false, errors.Wrapf(ErrUnknownCommand, "[Driver.apply] kind %d", cmd.Kind)
	}
	return false, nil
}

// tick advances the tick counter and steps on the configured cadence.
// It reports whether the generation limit was reached.
func (d *Driver) tick(ctx context.Context) bool {
	if !d.running {
		return false
	}
	if d.ticks%d.config.GenerationSpeed == 0 {
		d.step(ctx)
	}
	d.ticks++

	return d.limitReached()
}

// limitReached reports whether MaxGenerations generations have been computed
func (d *Driver) limitReached() bool {
	return d.config.MaxGenerations > 0 && d.stats.TotalGenerations >= d.config.MaxGenerations
}

// step advances one generation, updates stats and handles stagnation
func (d *Driver) step(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	d.engine.Step()

	now := time.Now()
	var frameDuration time.Duration
	if !d.lastStep.IsZero() {
		frameDuration = now.Sub(d.lastStep)
	}
	d.lastStep = now

	generation := d.stats.TotalGenerations + 1
	living := d.grid.CountLivingCells()
	d.stats.Update(generation, living, frameDuration)

	if d.engine.IsStagnant() {
		d.stagnantCount++
	} else {
		d.stagnantCount = 0
	}

	logger.Debug("Generation computed.", "generation", generation, "living", living, "stagnant", d.stagnantCount)

	if d.config.AutoRestart {
		d.checkRestart(ctx, generation, living)
	}
	d.render(ctx)
}

// checkRestart reseeds on extinction, persistent stagnation or every
// RefreshInterval generations, and injects random life into a grid that has
// only just started to stagnate
func (d *Driver) checkRestart(ctx context.Context, generation, living int) {
	logger := ctxlog.FromContext(ctx)

	reason := ""
	switch {
	case living == 0:
		reason = "extinction"
	case d.config.StagnationThreshold > 0 && d.stagnantCount >= d.config.StagnationThreshold:
		reason = "stagnation detected"
	case d.config.RefreshInterval > 0 && generation%d.config.RefreshInterval == 0:
		reason = "periodic refresh"
	}

	if reason == "" {
		if d.stagnantCount >= 2 && d.config.InjectionCount > 0 {
			d.grid.InjectRandomLife(d.rng, d.config.InjectionCount)
			logger.Debug("Injected random life.", "count", d.config.InjectionCount)
		}
		return
	}

	if !d.canReseed() {
		d.running = false
		logger.Info("Nothing to reseed, pausing.", "reason", reason)
		return
	}

	d.engine.Reset()
	if err := d.seed(); err != nil {
		// patterns already fit once in NewDriver
		logger.Error("Failed to reseed grid.", "error", err)
	}
	d.stagnantCount = 0
	d.lastRestartGen = generation
	d.stats.Restarts++
	logger.Info("Restarted.", "reason", reason, "living", d.grid.CountLivingCells())
}

func (d *Driver) render(ctx context.Context) {
	if d.renderer == nil && d.statusOut == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)

	if d.renderer != nil {
		if err := d.renderer.Clear(); err != nil {
			logger.Warn("Failed to clear screen.", "error", err)
		}
	}
	if d.statusOut != nil {
		d.writeStatus()
	}
	if d.renderer != nil {
		if err := d.renderer.Display(d.grid); err != nil {
			logger.Warn("Failed to render grid.", "error", err)
		}
	}
}

// writeStatus shows the current game status
func (d *Driver) writeStatus() {
	living := d.grid.CountLivingCells()
	density := float64(living) / float64(d.grid.Rows()*d.grid.Cols()) * 100

	status := "Paused"
	switch {
	case living == 0:
		status = "Extinct"
	case d.stagnantCount > 0:
		status = fmt.Sprintf("Stagnant (%d)", d.stagnantCount)
	case d.running:
		status = "Active"
	}

	// Show bounding box info for bounded grids
	boundingInfo := ""
	if d.config.UseBoundedGrid {
		boundingInfo = fmt.Sprintf(" | Bounding box: %d cells", d.grid.BoundingBoxSize())
	}

	fmt.Fprintf(d.statusOut, "Gen: %d | Living: %d | Density: %.1f%% | Status: %s%s\n",
		d.engine.Generation(), living, density, status, boundingInfo)
	fmt.Fprintf(d.statusOut, "Performance: %.1f gen/sec | Avg Pop: %.1f | Runtime: %.1fs\n",
		d.stats.GenerationsPerSecond, d.stats.AveragePopulation, d.stats.Runtime().Seconds())

	if total := d.stats.TotalGenerations; total > d.lastRestartGen {
		fmt.Fprintf(d.statusOut, "Generations since restart: %d\n", total-d.lastRestartGen)
	}
}

func (d *Driver) logFinalStats(ctx context.Context, reason string) {
	ctxlog.FromContext(ctx).Info("Simulation stopped.",
		"reason", reason,
		"generations", d.stats.TotalGenerations,
		"restarts", d.stats.Restarts,
		"runtime", d.stats.Runtime().Round(time.Millisecond),
		"avg_population", d.stats.AveragePopulation,
	)
}
