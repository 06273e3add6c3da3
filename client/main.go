package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const usage = `usage: treepad [flags] <command> [args]

commands:
  diff OLD NEW          print the edit script turning file OLD into file NEW
  edit STATE FILE       edit the replica in STATE until it holds the content of FILE
  patch STATE OPS       replay an operations message (diff --json) onto the replica in STATE
  merge STATE OTHER...  merge the replicas in OTHER into the replica in STATE
  compact STATE         drop tombstones and reallocate positions
  show STATE            print the content of the replica in STATE

Flags can also be set in treepad.yaml (. or ~/.treepad) or as TREEPAD_* environment variables.
`

var logger = logrus.New()

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is main without the exit, so deferred cleanups run.
func run(args []string) int {
	flags, args, err := parseFlags(args)
	if err != nil {
		color.Red("%s", err)
		return 2
	}

	logFile, debugLogFile, err := setupLogger(logger, flags.LogDir, flags.Debug)
	if err != nil {
		fmt.Printf("Logger error, exiting: %s\n", err)
		return 1
	}
	defer closeLogFiles(logFile, debugLogFile)

	a, err := newApp(os.Stdout, flags, logger)
	if err != nil {
		color.Red("%s", err)
		return 2
	}

	if err := a.run(args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		logger.Errorf("command failed: %v", err)
		color.Red("Error: %s", err)
		return 1
	}

	return 0
}
