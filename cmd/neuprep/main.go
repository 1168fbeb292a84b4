// Command-line interface to neuprep: neuron skeleton updates and NBLAST
// matrix maintenance.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/janelia-flyem/neuprep/config"
	"github.com/janelia-flyem/neuprep/neuprep"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to TOML configuration file.
	configFile = flag.String("config", "", "")

	// Accept a request from stdin for the update command if true.
	useStdin = flag.Bool("stdin", false, "")
)

const helpMessage = `
neuprep prepares neuron skeletons and maintains NBLAST similarity matrices

Usage: neuprep [options] <command>

      -config     =string   Path to TOML configuration file.
      -stdin      (flag)    Read the update request from standard input.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	version
	merge  <forward> <backward> <archive> [output]
	ls     [prefix]
	update <request.json>
	nblast <id> [<id>...] [mode=cross|self]
	sync

Matrices for merge are Arrow files or blob references such as
gs://bucket/nblast/flywire.arrow.  If no output is given the archive
is replaced.
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *runVerbose {
		neuprep.Verbose = true
		neuprep.SetLogMode(neuprep.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	cfg.Logging.SetLogger()

	// Capture ctrl+c and other interrupts.  Cancel running work and let it
	// unwind so nothing is persisted half-way.
	ctx, cancel := context.WithCancel(context.Background())
	stopSig := make(chan os.Signal, 1)
	go func() {
		for sig := range stopSig {
			log.Printf("Stop signal captured: %q.  Shutting down...\n", sig)
			cancel()
		}
	}()
	signal.Notify(stopSig, os.Interrupt, syscall.SIGTERM)

	command := neuprep.Command(flag.Args())
	err = DoCommand(ctx, cfg, command)
	cancel()
	neuprep.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig(filename string) (*config.Config, error) {
	if filename == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		return config.Decode("", cwd)
	}
	return config.LoadConfig(filename)
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cfg *config.Config, cmd neuprep.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("blank command")
	}
	switch cmd.Name() {
	case "version", "about":
		return doVersion()
	case "merge":
		return doMerge(ctx, cfg, cmd)
	case "ls":
		return doList(ctx, cfg, cmd)
	case "update":
		return doUpdate(ctx, cfg, cmd)
	case "nblast":
		return doNBLAST(ctx, cfg, cmd)
	case "sync":
		return doSync(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q, try 'neuprep help'", cmd.Name())
	}
}
