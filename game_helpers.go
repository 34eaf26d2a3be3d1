package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/sheikhrachel/go-life/ctxlog"
	"github.com/sheikhrachel/go-life/game"
	"github.com/sheikhrachel/go-life/model"
	"github.com/sheikhrachel/go-life/utils"
)

const defaultConfigFile = "config.json"

// run parses flags, builds the driver and blocks until the simulation stops
func run(ctx context.Context, in io.Reader, outW, errW io.Writer, args []string) error {
	fs := flag.NewFlagSet("go-life", flag.ContinueOnError)
	fs.SetOutput(errW)
	var (
		configFile = fs.String("config", defaultConfigFile, "path to a .json or .hcl config file")
		debug      = fs.Bool("debug", false, "enable debug logging")
		headless   = fs.Bool("headless", false, "do not draw the grid")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "[run] parse flags")
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errW, &slog.HandlerOptions{Level: level}))
	ctx = ctxlog.WithLogger(ctx, logger)

	config, err := loadConfig(ctx, *configFile)
	if err != nil {
		return err
	}

	var opts []game.Option
	if !*headless {
		opts = append(opts,
			game.WithRenderer(model.NewTerminalRenderer(outW)),
			game.WithStatusOutput(outW),
		)
	}
	driver, err := game.NewDriver(config, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go readCommands(ctx, in, driver)

	return driver.Run(ctx)
}

// loadConfig loads configuration - fallback to defaults if the file doesn't exist
func loadConfig(ctx context.Context, filename string) (utils.Config, error) {
	logger := ctxlog.FromContext(ctx)

	config, err := utils.LoadConfig(filename)
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			return config, err
		}
		logger.Info("Using default configuration.", "missing", filename)
		config = utils.DefaultConfig()
	}
	return config, config.Validate()
}

// readCommands forwards each input line to the driver until EOF or ctx is done
func readCommands(ctx context.Context, in io.Reader, driver *game.Driver) {
	logger := ctxlog.FromContext(ctx)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := game.ParseCommand(scanner.Text())
		if err != nil {
			logger.Warn("Ignoring input.", "error", err)
			continue
		}
		if err = driver.Do(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Command failed.", "command", cmd.Kind, "error", err)
			continue
		}
		if cmd.Kind == game.CommandQuit {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Failed to read input.", "error", err)
	}
}
