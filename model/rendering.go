package model

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

const (
	gridPosBlock = "██"
	gridPosEmpty = "  "

	// ANSI: move cursor home and clear the screen
	ansiClear = "\033[H\033[2J"
)

// TerminalRenderer implements basic terminal rendering
type TerminalRenderer struct {
	Out io.Writer
}

// NewTerminalRenderer returns a renderer writing to out
func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{Out: out}
}

// Display renders the grid to the terminal, one row per line
func (r *TerminalRenderer) Display(g CellReader) error {
	w := bufio.NewWriter(r.Out)
	for row := range g.Rows() {
		for col := range g.Cols() {
			alive, err := g.IsAlive(row, col)
			if err != nil {
				return errors.Wrap(err, "[TerminalRenderer.Display]")
			}
			if alive {
				w.WriteString(gridPosBlock)
			} else {
				w.WriteString(gridPosEmpty)
			}
		}
		w.WriteByte('\n')
	}
	return errors.Wrap(w.Flush(), "[TerminalRenderer.Display] flush")
}

// Clear clears the terminal screen
func (r *TerminalRenderer) Clear() error {
	_, err := io.WriteString(r.Out, ansiClear)
	return errors.Wrap(err, "[TerminalRenderer.Clear]")
}
