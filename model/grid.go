package model

import (
	"crypto/md5"
	"fmt"
	"iter"

	"github.com/pkg/errors"
)

// CellReader is the read-only view handed to renderers
type CellReader interface {
	Rows() int
	Cols() int
	IsAlive(row, col int) (bool, error)
}

// Grid represents the game board: a fixed rows x cols array of cells
type Grid struct {
	rows  int
	cols  int
	cells [][]Cell
}

// NewGrid creates a new all-dead grid with the specified dimensions
func NewGrid(rows, cols int) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "[NewGrid] rows=%d cols=%d", rows, cols)
	}

	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
		for c := range cells[r] {
			cells[r][c] = Cell{Row: r, Col: c}
		}
	}
	return &Grid{
		rows:  rows,
		cols:  cols,
		cells: cells,
	}, nil
}

// NewGridForWindow sizes a grid from a window in pixels and a square cell size
func NewGridForWindow(width, height, cellSize int) (*Grid, error) {
	if cellSize < 1 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "[NewGridForWindow] cell size %d", cellSize)
	}
	return NewGrid(height/cellSize, width/cellSize)
}

// Rows returns the number of rows in the grid
func (g *Grid) Rows() int {
	return g.rows
}

// Cols returns the number of columns in the grid
func (g *Grid) Cols() int {
	return g.cols
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

func (g *Grid) outOfBounds(op string, row, col int) error {
	return errors.Wrapf(ErrOutOfBounds, "[%s] row=%d col=%d grid=%dx%d", op, row, col, g.rows, g.cols)
}

// Get returns a copy of the cell at row, col
func (g *Grid) Get(row, col int) (Cell, error) {
	if !g.inBounds(row, col) {
		return Cell{}, g.outOfBounds("Grid.Get", row, col)
	}
	return g.cells[row][col], nil
}

// IsAlive reports the committed state of the cell at row, col
func (g *Grid) IsAlive(row, col int) (bool, error) {
	if !g.inBounds(row, col) {
		return false, g.outOfBounds("Grid.IsAlive", row, col)
	}
	return g.cells[row][col].Alive, nil
}

// SetAlive sets the committed state of a cell, keeping its mark in sync
func (g *Grid) SetAlive(row, col int, alive bool) error {
	if !g.inBounds(row, col) {
		return g.outOfBounds("Grid.SetAlive", row, col)
	}
	g.cells[row][col].set(alive)
	return nil
}

// CountLiveNeighbors counts living cells in the 3x3 block around row, col.
// Positions outside the grid count as dead.
func (g *Grid) CountLiveNeighbors(row, col int) (int, error) {
	if !g.inBounds(row, col) {
		return 0, g.outOfBounds("Grid.CountLiveNeighbors", row, col)
	}
	return g.countLiveNeighbors(row, col), nil
}

// countLiveNeighbors assumes row, col is in bounds
func (g *Grid) countLiveNeighbors(row, col int) int {
	count := 0

	// Clamp the 3x3 block to the grid once instead of checking every position
	minRow := max(0, row-1)
	maxRow := min(g.rows-1, row+1)
	minCol := max(0, col-1)
	maxCol := min(g.cols-1, col+1)

	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			if r == row && c == col {
				continue // Skip the cell itself
			}
			if g.cells[r][c].Alive {
				count++
			}
		}
	}

	return count
}

// ForEachCell calls visit for every cell in row-major order
func (g *Grid) ForEachCell(visit func(*Cell)) {
	for r := range g.rows {
		for c := range g.cols {
			visit(&g.cells[r][c])
		}
	}
}

// All returns a row-major sequence over every cell
func (g *Grid) All() iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		for r := range g.rows {
			for c := range g.cols {
				if !yield(&g.cells[r][c]) {
					return
				}
			}
		}
	}
}

// Row returns a sequence over the cells of a single row
func (g *Grid) Row(row int) iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		if row < 0 || row >= g.rows {
			return
		}
		for c := range g.cols {
			if !yield(&g.cells[row][c]) {
				return
			}
		}
	}
}

// LiveNeighbors counts the neighbors of a cell held by this grid. Copies and
// cells of other grids are rejected with ErrOutOfBounds.
func (g *Grid) LiveNeighbors(cell *Cell) (int, error) {
	if cell == nil || !g.inBounds(cell.Row, cell.Col) || &g.cells[cell.Row][cell.Col] != cell {
		row, col := -1, -1
		if cell != nil {
			row, col = cell.Row, cell.Col
		}
		return 0, g.outOfBounds("Grid.LiveNeighbors", row, col)
	}
	return g.countLiveNeighbors(cell.Row, cell.Col), nil
}

// Bounds is an inclusive rectangle of cells
type Bounds struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Size returns the number of cells inside the rectangle
func (b Bounds) Size() int {
	return (b.MaxRow - b.MinRow + 1) * (b.MaxCol - b.MinCol + 1)
}

// Expand grows the rectangle by margin on every side, clamped to the grid
func (b Bounds) Expand(margin int, g *Grid) Bounds {
	return Bounds{
		MinRow: max(0, b.MinRow-margin),
		MaxRow: min(g.rows-1, b.MaxRow+margin),
		MinCol: max(0, b.MinCol-margin),
		MaxCol: min(g.cols-1, b.MaxCol+margin),
	}
}

// ActiveBounds returns the bounding box of living cells; ok is false when
// every cell is dead
func (g *Grid) ActiveBounds() (b Bounds, ok bool) {
	for r := range g.rows {
		for c := range g.cols {
			if !g.cells[r][c].Alive {
				continue
			}
			if !ok {
				b = Bounds{MinRow: r, MaxRow: r, MinCol: c, MaxCol: c}
				ok = true
				continue
			}
			b.MinRow = min(b.MinRow, r)
			b.MaxRow = max(b.MaxRow, r)
			b.MinCol = min(b.MinCol, c)
			b.MaxCol = max(b.MaxCol, c)
		}
	}
	return b, ok
}

// BoundingBoxSize returns the size of the active region
func (g *Grid) BoundingBoxSize() int {
	b, ok := g.ActiveBounds()
	if !ok {
		return 0
	}
	return b.Size()
}

// FullBounds returns the rectangle covering the whole grid
func (g *Grid) FullBounds() Bounds {
	return Bounds{MaxRow: g.rows - 1, MaxCol: g.cols - 1}
}

// Region returns a row-major sequence over the cells inside b, clamped to the grid
func (g *Grid) Region(b Bounds) iter.Seq[*Cell] {
	b = b.Expand(0, g)
	return func(yield func(*Cell) bool) {
		for r := b.MinRow; r <= b.MaxRow; r++ {
			for c := b.MinCol; c <= b.MaxCol; c++ {
				if !yield(&g.cells[r][c]) {
					return
				}
			}
		}
	}
}

// CountLivingCells returns the total number of living cells
func (g *Grid) CountLivingCells() (count int) {
	for cell := range g.All() {
		if cell.Alive {
			count++
		}
	}
	return
}

// Hash returns an MD5 hash of the committed grid state
func (g *Grid) Hash() string {
	h := md5.New()
	row := make([]byte, g.cols)
	for r := range g.rows {
		for c := range g.cols {
			row[c] = 0
			if g.cells[r][c].Alive {
				row[c] = 1
			}
		}
		h.Write(row)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
