package game

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikhrachel/go-life/ctxlog"
	"github.com/sheikhrachel/go-life/model"
	"github.com/sheikhrachel/go-life/utils"
)

type countingRenderer struct {
	clears   int
	displays int
	lastLive int
}

func (r *countingRenderer) Clear() error {
	r.clears++
	return nil
}

func (r *countingRenderer) Display(g model.CellReader) error {
	r.displays++
	r.lastLive = 0
	for row := range g.Rows() {
		for col := range g.Cols() {
			if alive, _ := g.IsAlive(row, col); alive {
				r.lastLive++
			}
		}
	}
	return nil
}

func testConfig() utils.Config {
	c := utils.DefaultConfig()
	c.Rows, c.Cols = 8, 8
	c.FrameRate = time.Millisecond
	c.GenerationSpeed = 1
	c.UseParallel = false
	return c
}

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

func TestNewDriver(t *testing.T) {
	c := testConfig()
	c.Patterns = []utils.PatternPlacement{{Name: "block", Row: 1, Col: 1}}

	d, err := NewDriver(c)
	require.NoError(t, err)
	assert.Equal(t, 8, d.Grid().Rows())
	assert.Equal(t, 4, d.Grid().CountLivingCells())
	assert.False(t, d.Running())
}

func TestNewDriverErrors(t *testing.T) {
	c := testConfig()
	c.GenerationSpeed = 0
	_, err := NewDriver(c)
	assert.True(t, errors.Is(err, utils.ErrInvalidConfig))

	c = testConfig()
	c.Patterns = []utils.PatternPlacement{{Name: "glider", Row: 7, Col: 7}}
	_, err = NewDriver(c)
	assert.True(t, errors.Is(err, model.ErrOutOfBounds))

	c = testConfig()
	c.Patterns = []utils.PatternPlacement{{Name: "nope"}}
	_, err = NewDriver(c)
	assert.True(t, errors.Is(err, model.ErrUnknownPattern))
}

func TestTickCadence(t *testing.T) {
	c := testConfig()
	c.GenerationSpeed = 3
	c.StartRunning = true
	c.Patterns = []utils.PatternPlacement{{Name: "blinker", Row: 3, Col: 2}}
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	// steps on ticks 0, 3 and 6
	for range 7 {
		d.tick(ctx)
	}
	assert.Equal(t, 3, d.Stats().TotalGenerations)
	assert.Equal(t, 3, d.engine.Generation())
}

func TestTickPaused(t *testing.T) {
	d, err := NewDriver(testConfig())
	require.NoError(t, err)
	ctx := testContext()

	for range 5 {
		assert.False(t, d.tick(ctx))
	}
	assert.Zero(t, d.Stats().TotalGenerations)
	assert.Zero(t, d.ticks)
}

func TestTickMaxGenerations(t *testing.T) {
	c := testConfig()
	c.StartRunning = true
	c.MaxGenerations = 2
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	assert.False(t, d.tick(ctx))
	assert.True(t, d.tick(ctx))
}

func TestApplyCommands(t *testing.T) {
	r := &countingRenderer{}
	d, err := NewDriver(testConfig(), WithRenderer(r))
	require.NoError(t, err)
	ctx := testContext()

	_, err = d.apply(ctx, Command{Kind: CommandToggle, Row: 2, Col: 3})
	require.NoError(t, err)
	alive, err := d.Grid().IsAlive(2, 3)
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, 1, r.displays)
	assert.Equal(t, 1, r.lastLive)

	_, err = d.apply(ctx, Command{Kind: CommandToggle, Row: 8, Col: 0})
	assert.True(t, errors.Is(err, model.ErrOutOfBounds))
	assert.Equal(t, 1, r.displays, "no redraw after a failed toggle")

	_, err = d.apply(ctx, Command{Kind: CommandStep})
	require.NoError(t, err)
	assert.Zero(t, d.Grid().CountLivingCells(), "lone cell dies")
	assert.Equal(t, 2, r.displays)

	_, err = d.apply(ctx, Command{Kind: CommandPause})
	require.NoError(t, err)
	assert.True(t, d.Running())

	require.NoError(t, d.Grid().AddBlock(0, 0))
	_, err = d.apply(ctx, Command{Kind: CommandReset})
	require.NoError(t, err)
	assert.Zero(t, d.Grid().CountLivingCells())
	assert.Equal(t, 3, r.displays)

	quit, err := d.apply(ctx, Command{Kind: CommandQuit})
	require.NoError(t, err)
	assert.True(t, quit)

	_, err = d.apply(ctx, Command{Kind: CommandKind(42)})
	assert.True(t, errors.Is(err, ErrUnknownCommand))
}

func TestAutoRestartOnExtinction(t *testing.T) {
	c := testConfig()
	c.AutoRestart = true
	c.Patterns = []utils.PatternPlacement{{Name: "blinker", Row: 0, Col: 0}}
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	// leave a single cell that dies next generation
	d.Grid().Clear()
	require.NoError(t, d.Grid().SetAlive(4, 4, true))

	d.step(ctx)
	assert.Equal(t, 1, d.Stats().Restarts)
	assert.Equal(t, 3, d.Grid().CountLivingCells(), "blinker reseeded")
}

func TestAutoRestartNothingToSeedPauses(t *testing.T) {
	c := testConfig()
	c.AutoRestart = true
	c.StartRunning = true
	d, err := NewDriver(c)
	require.NoError(t, err)

	d.step(testContext())
	assert.False(t, d.Running())
	assert.Zero(t, d.Stats().Restarts)
}

func TestAutoRestartOnStagnation(t *testing.T) {
	c := testConfig()
	c.AutoRestart = true
	c.StagnationThreshold = 2
	c.InjectionCount = 0
	c.Patterns = []utils.PatternPlacement{{Name: "block", Row: 3, Col: 3}}
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	// history needs three generations before stagnation can be seen
	for range 4 {
		d.step(ctx)
	}
	assert.Equal(t, 1, d.Stats().Restarts)
	assert.Equal(t, 4, d.Grid().CountLivingCells())
}

func TestStatusOutput(t *testing.T) {
	var buf bytes.Buffer
	c := testConfig()
	c.Patterns = []utils.PatternPlacement{{Name: "blinker", Row: 0, Col: 0}}
	d, err := NewDriver(c, WithStatusOutput(&buf))
	require.NoError(t, err)

	d.render(testContext())
	assert.Contains(t, buf.String(), "Gen: 0 | Living: 3 | Density: 4.7% | Status: Paused | Bounding box: 3 cells")
	assert.Contains(t, buf.String(), "Performance:")
	assert.NotContains(t, buf.String(), "Generations since restart")

	buf.Reset()
	d.step(testContext())
	d.render(testContext())
	assert.Contains(t, buf.String(), "Bounding box: 2 cells", "vertical blinker clipped by the top edge")
	assert.Contains(t, buf.String(), "Generations since restart: 1")
}

func TestStatusOutputUnbounded(t *testing.T) {
	var buf bytes.Buffer
	c := testConfig()
	c.UseBoundedGrid = false
	d, err := NewDriver(c, WithStatusOutput(&buf))
	require.NoError(t, err)

	d.render(testContext())
	assert.Contains(t, buf.String(), "Status: Extinct\n")
	assert.NotContains(t, buf.String(), "Bounding box")
}

func TestBoundedAndUnboundedDriversAgree(t *testing.T) {
	c := testConfig()
	c.Rows, c.Cols = 16, 16
	c.RandomDensity = 0.3
	c.Seed = 11

	bounded, err := NewDriver(c)
	require.NoError(t, err)
	c.UseBoundedGrid = false
	c.UseParallel = true
	full, err := NewDriver(c)
	require.NoError(t, err)
	require.Equal(t, full.Grid().Hash(), bounded.Grid().Hash())

	ctx := testContext()
	for range 20 {
		bounded.step(ctx)
		full.step(ctx)
		require.Equal(t, full.Grid().Hash(), bounded.Grid().Hash())
	}
}

func TestStepCommandRespectsMaxGenerations(t *testing.T) {
	c := testConfig()
	c.MaxGenerations = 2
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	stop, err := d.apply(ctx, Command{Kind: CommandStep})
	require.NoError(t, err)
	assert.False(t, stop)

	stop, err = d.apply(ctx, Command{Kind: CommandStep})
	require.NoError(t, err)
	assert.True(t, stop)
	assert.Equal(t, 2, d.Stats().TotalGenerations)
}

func TestRunStopsWhenStepCommandHitsLimit(t *testing.T) {
	c := testConfig()
	c.MaxGenerations = 1
	d, err := NewDriver(c)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(testContext(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Do(ctx, Command{Kind: CommandStep}))
	require.NoError(t, <-done)
	assert.Equal(t, 1, d.Stats().TotalGenerations)
	require.NoError(t, ctx.Err())
}

func TestPeriodicRefresh(t *testing.T) {
	c := testConfig()
	c.AutoRestart = true
	c.RefreshInterval = 3
	c.StagnationThreshold = 0
	c.InjectionCount = 0
	c.Patterns = []utils.PatternPlacement{{Name: "blinker", Row: 3, Col: 2}}
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	d.step(ctx)
	d.step(ctx)
	assert.Zero(t, d.Stats().Restarts)

	d.step(ctx)
	assert.Equal(t, 1, d.Stats().Restarts)
	assert.Equal(t, 3, d.lastRestartGen)
	assert.Zero(t, d.engine.Generation(), "restart resets the engine")

	for range 3 {
		d.step(ctx)
	}
	assert.Equal(t, 2, d.Stats().Restarts)
	assert.Equal(t, 6, d.lastRestartGen)
}

func TestRefreshDisabled(t *testing.T) {
	c := testConfig()
	c.AutoRestart = true
	c.RefreshInterval = 0
	c.StagnationThreshold = 0
	c.Patterns = []utils.PatternPlacement{{Name: "blinker", Row: 3, Col: 2}}
	d, err := NewDriver(c)
	require.NoError(t, err)
	ctx := testContext()

	for range 10 {
		d.step(ctx)
	}
	assert.Zero(t, d.Stats().Restarts)
}

func TestRunCommandsAndQuit(t *testing.T) {
	d, err := NewDriver(testConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(testContext(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Do(ctx, Command{Kind: CommandToggle, Row: 0, Col: 0}))
	err = d.Do(ctx, Command{Kind: CommandToggle, Row: -1, Col: 0})
	assert.True(t, errors.Is(err, model.ErrOutOfBounds))
	require.NoError(t, d.Do(ctx, Command{Kind: CommandQuit}))

	require.NoError(t, <-done)
	assert.Equal(t, 1, d.Grid().CountLivingCells())
}

func TestRunStopsOnMaxGenerations(t *testing.T) {
	c := testConfig()
	c.StartRunning = true
	c.MaxGenerations = 3
	c.Patterns = []utils.PatternPlacement{{Name: "blinker", Row: 2, Col: 2}}
	d, err := NewDriver(c)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(testContext(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 3, d.Stats().TotalGenerations)
	require.NoError(t, ctx.Err(), "stopped by the limit, not the timeout")
}

func TestRunStopsOnCancel(t *testing.T) {
	d, err := NewDriver(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testContext())
	cancel()
	require.NoError(t, d.Run(ctx))

	err = d.Do(ctx, Command{Kind: CommandStep})
	assert.ErrorIs(t, err, context.Canceled)
}
