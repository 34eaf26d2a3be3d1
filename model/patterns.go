package model

import (
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
)

// Patterns maps pattern names to their live cells, as (row, col) offsets
var Patterns = map[string][][2]int{
	"glider":  {{0, 1}, {1, 2}, {2, 0}, {2, 1}, {2, 2}},
	"blinker": {{0, 0}, {0, 1}, {0, 2}},
	"block":   {{0, 0}, {0, 1}, {1, 0}, {1, 1}},
	"toad":    {{0, 1}, {0, 2}, {0, 3}, {1, 0}, {1, 1}, {1, 2}},
	"beehive": {{0, 1}, {0, 2}, {1, 0}, {1, 3}, {2, 1}, {2, 2}},
}

// PatternNames returns the known pattern names in sorted order
func PatternNames() []string {
	names := make([]string, 0, len(Patterns))
	for name := range Patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlacePattern sets the named pattern alive with its top-left corner at row, col.
// Nothing is written unless every cell of the pattern fits.
func (g *Grid) PlacePattern(name string, row, col int) error {
	offsets, ok := Patterns[name]
	if !ok {
		return errors.Wrapf(ErrUnknownPattern, "[Grid.PlacePattern] %q", name)
	}
	for _, off := range offsets {
		if !g.inBounds(row+off[0], col+off[1]) {
			return g.outOfBounds("Grid.PlacePattern "+name, row+off[0], col+off[1])
		}
	}
	for _, off := range offsets {
		g.cells[row+off[0]][col+off[1]].set(true)
	}
	return nil
}

// AddGlider adds a glider pattern at the specified position
func (g *Grid) AddGlider(row, col int) error {
	return g.PlacePattern("glider", row, col)
}

// AddBlinker adds a horizontal blinker oscillator
func (g *Grid) AddBlinker(row, col int) error {
	return g.PlacePattern("blinker", row, col)
}

// AddBlock adds a 2x2 still life
func (g *Grid) AddBlock(row, col int) error {
	return g.PlacePattern("block", row, col)
}

// Randomize sets each cell alive with the given probability
func (g *Grid) Randomize(rng *rand.Rand, density float64) {
	g.ForEachCell(func(c *Cell) {
		c.set(rng.Float64() < density)
	})
}

// InjectRandomLife sets count random cells alive
func (g *Grid) InjectRandomLife(rng *rand.Rand, count int) {
	for range count {
		g.cells[rng.IntN(g.rows)][rng.IntN(g.cols)].set(true)
	}
}

// Clear kills every cell directly, without going through a step
func (g *Grid) Clear() {
	g.ForEachCell(func(c *Cell) {
		c.set(false)
	})
}
