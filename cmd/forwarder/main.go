// forwarder is a command line tool for building, decoding and simulating
// forwarded bridge messages.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of stderr",
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:  "log.maxsize",
		Usage: "Maximum size in MB of a log file before it is rotated",
		Value: 100,
	}
)

var app = &cli.App{
	Name:  "forwarder",
	Usage: "token forwarder tooling",
	Flags: []cli.Flag{verbosityFlag, logFileFlag, logMaxSizeFlag},
	Commands: []*cli.Command{
		decodeCommand,
		resolveCommand,
		buildCommand,
		simulateCommand,
		dumpConfigCommand,
	},
	Before: func(ctx *cli.Context) error {
		setupLogging(ctx.Int(verbosityFlag.Name), ctx.String(logFileFlag.Name), ctx.Int(logMaxSizeFlag.Name))
		return nil
	},
}

func setupLogging(verbosity int, logFile string, maxSize int) {
	var (
		output   = io.Writer(os.Stderr)
		useColor = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if logFile != "" {
		output = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxSize,
			MaxBackups: 10,
			Compress:   true,
		}
		useColor = false
	} else if useColor {
		output = colorable.NewColorableStderr()
	}
	glogger := log.NewGlogHandler(log.NewTerminalHandler(output, useColor))
	glogger.Verbosity(log.FromLegacyLevel(verbosity))
	log.SetDefault(log.NewLogger(glogger))
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
