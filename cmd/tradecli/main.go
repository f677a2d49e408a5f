package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// commands is a register of all availables commands that can be executed by
// this program. The name is used to match with the first argument given.
//
// A command function is given stdin, stdout and command line arguments except
// the program name and the command name. Commands that create a transaction
// write it to the output so that a pipeline can be built:
//
//   $ tradecli ship-goods -order 3 -bol-file ./bill.pdf \
//       | tradecli sign \
//       | tradecli submit
//
var commands = map[string]func(input io.Reader, output io.Writer, args []string) error{
	"approve-deadline":     cmdApproveDeadline,
	"approve-extension":    cmdApproveExtension,
	"confirm-delivery":     cmdConfirmDelivery,
	"create-order":         cmdCreateOrder,
	"dispute":              cmdDispute,
	"keyaddr":              cmdKeyaddr,
	"keygen":               cmdKeygen,
	"list-orders":          cmdListOrders,
	"order-history":        cmdOrderHistory,
	"propose-deadline":     cmdProposeDeadline,
	"query-order":          cmdQueryOrder,
	"refund":               cmdRefund,
	"reject-extension":     cmdRejectExtension,
	"request-extension":    cmdRequestExtension,
	"resolve-dispute":      cmdResolveDispute,
	"ship-goods":           cmdShipGoods,
	"sign":                 cmdSignTransaction,
	"submit":               cmdSubmitTransaction,
	"update-configuration": cmdUpdateConfiguration,
	"update-metadata":      cmdUpdateMetadata,
	"version":              cmdVersion,
	"view":                 cmdTransactionView,
}

func main() {
	if len(os.Args) == 1 {
		fmt.Fprintf(os.Stderr, "%s is a command line client for the trade escrow application.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s <command> [<flags>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		fmt.Fprintf(os.Stderr, "Run '%s <command> -help' to learn more about each command.\n", os.Args[0])
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		os.Exit(2)
	}

	// Skip two first arguments. Second argument is the command name that
	// we just consumed.
	if err := run(os.Stdin, os.Stdout, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func availableCmds() []string {
	available := make([]string, 0, len(commands))
	for name := range commands {
		available = append(available, name)
	}
	sort.Strings(available)
	return available
}

func cmdVersion(in io.Reader, out io.Writer, args []string) error {
	fmt.Fprintln(out, gitHash)
	return nil
}

// gitHash is set during the compilation time.
var gitHash string = "dev"
