// Package engine advances a model.Grid one generation at a time using a
// two-phase mark/commit update.
package engine

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sheikhrachel/go-life/model"
	"github.com/sheikhrachel/go-life/rules"
)

// historySize is how many recent grid hashes are kept for cycle detection
const historySize = 5

// Option configures an Engine
type Option func(*Engine)

// WithParallelMark splits the mark phase into row bands across workers.
// workers <= 0 uses runtime.NumCPU().
func WithParallelMark(workers int) Option {
	return func(e *Engine) {
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		e.workers = workers
	}
}

// WithStagnationDetection keeps hashes of recent generations so IsStagnant
// can report still lifes and short oscillators
func WithStagnationDetection() Option {
	return func(e *Engine) {
		e.trackHistory = true
	}
}

// WithActiveRegion limits the mark phase to the bounding box of living
// cells plus a one-cell margin
func WithActiveRegion() Option {
	return func(e *Engine) {
		e.activeRegion = true
	}
}

// Engine applies Conway's rule to a grid it does not own.
// It is not safe for concurrent use.
type Engine struct {
	grid         *model.Grid
	workers      int
	activeRegion bool
	generation   int

	trackHistory bool
	history      []string // hashes of recent committed states
}

// New returns an engine stepping the given grid
func New(grid *model.Grid, opts ...Option) *Engine {
	e := &Engine{grid: grid, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Grid returns the grid being stepped
func (e *Engine) Grid() *model.Grid {
	return e.grid
}

// Generation returns the number of steps since construction or the last Reset
func (e *Engine) Generation() int {
	return e.generation
}

// Step advances the grid by exactly one generation
func (e *Engine) Step() {
	e.recordHistory()

	if err := e.markPhase(); err != nil {
		// only reachable if the grid hands out cells it does not hold
		panic(errors.Wrap(err, "[Engine.Step] mark phase"))
	}

	// Every mark must be in place before the first commit
	e.grid.ForEachCell((*model.Cell).Commit)
	e.generation++
}

// Reset kills every cell by marking all dead and committing
func (e *Engine) Reset() {
	e.grid.ForEachCell(func(c *model.Cell) {
		c.MarkedAlive = false
	})
	e.grid.ForEachCell((*model.Cell).Commit)
	e.generation = 0
	e.history = nil
}

// Toggle flips a single cell. Neighbor counts are not touched until the next Step.
func (e *Engine) Toggle(row, col int) error {
	alive, err := e.grid.IsAlive(row, col)
	if err != nil {
		return err
	}
	return e.grid.SetAlive(row, col, !alive)
}

// mark computes the next state of c from the committed generation only
func (e *Engine) mark(c *model.Cell) error {
	n, err := e.grid.LiveNeighbors(c)
	if err != nil {
		return err
	}
	c.MarkedAlive = rules.NextState(n, c.Alive)
	return nil
}

// markPhase marks every cell that can change. With the active region
// enabled only the live bounding box plus a one-cell margin is scanned: any
// cell further out is dead with no live neighbors, and at rest its mark
// already equals its dead state.
func (e *Engine) markPhase() error {
	region := e.grid.FullBounds()
	if e.activeRegion {
		active, ok := e.grid.ActiveBounds()
		if !ok {
			return nil
		}
		region = active.Expand(1, e.grid)
	}

	if e.workers > 1 && region.MaxRow > region.MinRow {
		return e.markParallel(region)
	}
	return e.markRegion(region)
}

func (e *Engine) markRegion(region model.Bounds) error {
	for c := range e.grid.Region(region) {
		if err := e.mark(c); err != nil {
			return err
		}
	}
	return nil
}

// markParallel runs the mark phase over row bands. Workers read Alive and
// write only MarkedAlive of their own rows, so bands never conflict.
func (e *Engine) markParallel(region model.Bounds) error {
	var (
		eg            errgroup.Group
		rows          = region.MaxRow - region.MinRow + 1
		numWorkers    = min(e.workers, rows)
		rowsPerWorker = (rows + numWorkers - 1) / numWorkers // Ceiling division
	)

	for i := range numWorkers {
		band := region
		band.MinRow = region.MinRow + i*rowsPerWorker
		band.MaxRow = min(band.MinRow+rowsPerWorker-1, region.MaxRow)
		if band.MinRow > region.MaxRow {
			break
		}

		eg.Go(func() error {
			return e.markRegion(band)
		})
	}

	// Wait is also the barrier before commit
	return eg.Wait()
}

// recordHistory stores the hash of the generation about to be replaced
func (e *Engine) recordHistory() {
	if !e.trackHistory {
		return
	}
	e.history = append(e.history, e.grid.Hash())
	if len(e.history) > historySize {
		e.history = e.history[1:]
	}
}

// IsStagnant reports whether the current state repeats one of the last
// three generations (still life or period-2/3 oscillation)
func (e *Engine) IsStagnant() bool {
	if len(e.history) < 3 {
		return false
	}

	current := e.grid.Hash()
	for i := 1; i <= 3; i++ {
		if e.history[len(e.history)-i] == current {
			return true
		}
	}
	return false
}
