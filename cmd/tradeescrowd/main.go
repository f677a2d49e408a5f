package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	tradeescrowd "github.com/iov-one/tradeescrow/cmd/tradeescrowd/app"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/commands/server"
	"github.com/tendermint/tendermint/libs/log"
)

// command is a single sub-command of the node binary. Arguments are those
// following the command name.
type command struct {
	usage string
	run   func(n *node, args []string) error
}

// node carries what every command may need.
type node struct {
	home   string
	logger log.Logger
	out    io.Writer
}

var commands = map[string]command{
	"init": {
		usage: "[ticker] [hex address]  Write the genesis app state for a dev chain",
		run: func(n *node, args []string) error {
			return server.InitCmd(tradeescrowd.GenInitOptions, n.logger, n.home, args)
		},
	},
	"genesis": {
		usage: "[ticker] [hex address]  Print the genesis app state without writing it",
		run: func(n *node, args []string) error {
			raw, err := tradeescrowd.GenInitOptions(args)
			if err != nil {
				return err
			}
			var pretty interface{}
			if err := json.Unmarshal(raw, &pretty); err != nil {
				return err
			}
			enc := json.NewEncoder(n.out)
			enc.SetIndent("", "  ")
			return enc.Encode(pretty)
		},
	},
	"start": {
		usage: "[-bind addr]  Serve the trade escrow application over ABCI",
		run: func(n *node, args []string) error {
			return server.StartCmd(tradeescrowd.GenerateApp, n.logger, n.home, args)
		},
	},
	"getblock": {
		usage: "<blockstore dir> <height>  Print a stored block as JSON",
		run: func(n *node, args []string) error {
			return server.GetBlockCmd(args)
		},
	},
	"version": {
		usage: "Print the weave version the node is built with",
		run: func(n *node, args []string) error {
			_, err := fmt.Fprintln(n.out, weave.Version)
			return err
		},
	},
}

func usage(out io.Writer, fl *flag.FlagSet) {
	fmt.Fprintln(out, "Usage: tradeescrowd [-home dir] <command> [arguments]")
	fmt.Fprintln(out, "\nNode of the trade escrow chain. Orders between an importer, an")
	fmt.Fprintln(out, "exporter and a verifier are settled on this chain.")
	fmt.Fprintln(out, "\nCommands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-9s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(out, "\nFlags:")
	fl.SetOutput(out)
	fl.PrintDefaults()
}

func defaultHome() string {
	if h := os.Getenv("TRADEESCROW_HOME"); h != "" {
		return h
	}
	return filepath.Join(os.ExpandEnv("$HOME"), ".tradeescrow")
}

// run executes the command line given without the program name.
func run(args []string, out io.Writer, logger log.Logger) error {
	fl := flag.NewFlagSet("tradeescrowd", flag.ContinueOnError)
	fl.SetOutput(out)
	fl.Usage = func() { usage(out, fl) }
	home := fl.String("home", defaultHome(), "directory to store files under, TRADEESCROW_HOME overrides the default")
	if err := fl.Parse(args); err != nil {
		return err
	}

	if fl.NArg() == 0 || fl.Arg(0) == "help" {
		usage(out, fl)
		if fl.NArg() == 0 {
			return fmt.Errorf("missing command")
		}
		return nil
	}

	cmd, ok := commands[fl.Arg(0)]
	if !ok {
		usage(out, fl)
		return fmt.Errorf("unknown command: %s", fl.Arg(0))
	}
	n := &node{home: *home, logger: logger, out: out}
	return cmd.run(n, fl.Args()[1:])
}

func main() {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "tradeescrow")

	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		}
		os.Exit(2)
	}
}
