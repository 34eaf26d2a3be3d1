package game

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownCommand is returned by ParseCommand for input it cannot read
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind identifies what a Command asks the driver to do
type CommandKind int

const (
	CommandToggle CommandKind = iota // flip one cell
	CommandReset                     // kill every cell
	CommandPause                     // start or stop the simulation
	CommandStep                      // advance exactly one generation
	CommandQuit                      // stop Run
)

func (k CommandKind) String() string {
	switch k {
	case CommandToggle:
		return "toggle"
	case CommandReset:
		return "reset"
	case CommandPause:
		return "pause"
	case CommandStep:
		return "step"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is an input event for the driver. Row and Col are used by CommandToggle only.
type Command struct {
	Kind CommandKind
	Row  int
	Col  int
}

// ParseCommand reads a single line of user input:
//
//	t <row> <col>  toggle a cell
//	r              reset
//	p              pause / resume
//	s              single step
//	q              quit
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.Wrap(ErrUnknownCommand, "[ParseCommand] empty input")
	}

	switch strings.ToLower(fields[0]) {
	case "t", "toggle":
		if len(fields) != 3 {
			return Command{}, errors.Wrapf(ErrUnknownCommand, "[ParseCommand] toggle needs <row> <col>, got %q", line)
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, errors.Wrapf(err, "[ParseCommand] bad row %q", fields[1])
		}
		col, err := strconv.Atoi(fields[2])
		if err != nil {
			return Command{}, errors.Wrapf(err, "[ParseCommand] bad col %q", fields[2])
		}
		return Command{Kind: CommandToggle, Row: row, Col: col}, nil
	case "r", "reset":
		return Command{Kind: CommandReset}, nil
	case "p", "pause":
		return Command{Kind: CommandPause}, nil
	case "s", "step":
		return Command{Kind: CommandStep}, nil
	case "q", "quit":
		return Command{Kind: CommandQuit}, nil
	}
	return Command{}, errors.Wrapf(ErrUnknownCommand, "[ParseCommand] %q", line)
}
