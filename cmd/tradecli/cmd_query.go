package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/iov-one/tradeescrow/client"
	"github.com/iov-one/weave"
)

// orderReader is the part of the client used by the query commands.
type orderReader interface {
	Order(ctx context.Context, id []byte) (*client.OrderResult, error)
	OrdersByParty(ctx context.Context, role string, addr weave.Address) ([]*client.OrderResult, error)
}

// newReader returns a reader connected to the given node.
var newReader = func(tmAddr string) orderReader {
	return client.NewClient(client.NewHTTPConnection(tmAddr))
}

func cmdQueryOrder(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print JSON encoded order.
`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl = fl.String("tm", defaultTmAddr(), tmAddrUsage)
		orderFl  = flSeq(fl, "order", "", "ID of the order.")
	)
	fl.Parse(args)

	if len(*orderFl) == 0 {
		return errors.New("order ID is required")
	}
	res, err := newReader(*tmAddrFl).Order(context.Background(), *orderFl)
	if err != nil {
		return fmt.Errorf("cannot fetch order: %s", err)
	}
	pretty, err := json.MarshalIndent(res.Order, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot JSON serialize: %s", err)
	}
	_, err = output.Write(pretty)
	return err
}

func cmdOrderHistory(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the recorded history of an order, oldest entry first.
`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl = fl.String("tm", defaultTmAddr(), tmAddrUsage)
		orderFl  = flSeq(fl, "order", "", "ID of the order.")
	)
	fl.Parse(args)

	if len(*orderFl) == 0 {
		return errors.New("order ID is required")
	}
	res, err := newReader(*tmAddrFl).Order(context.Background(), *orderFl)
	if err != nil {
		return fmt.Errorf("cannot fetch order: %s", err)
	}

	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATE\tDESCRIPTION")
	for _, h := range res.Order.History {
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.Timestamp.Time().UTC().Format(time.RFC3339), h.State, h.Description)
	}
	return w.Flush()
}

func cmdListOrders(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
List orders of a single party. Exactly one of importer, exporter and verifier
must be provided.
`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl   = fl.String("tm", defaultTmAddr(), tmAddrUsage)
		importerFl = flAddress(fl, "importer", "", "List orders of this importer.")
		exporterFl = flAddress(fl, "exporter", "", "List orders of this exporter.")
		verifierFl = flAddress(fl, "verifier", "", "List orders of this verifier.")
	)
	fl.Parse(args)

	var (
		role string
		addr weave.Address
	)
	for name, a := range map[string]weave.Address{
		"importer": *importerFl,
		"exporter": *exporterFl,
		"verifier": *verifierFl,
	} {
		if len(a) == 0 {
			continue
		}
		if role != "" {
			return errors.New("only one party can be provided")
		}
		role, addr = name, a
	}
	if role == "" {
		return errors.New("party address is required")
	}

	found, err := newReader(*tmAddrFl).OrdersByParty(context.Background(), role, addr)
	if err != nil {
		return fmt.Errorf("cannot fetch orders: %s", err)
	}

	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tAMOUNT\tDEADLINE")
	for _, o := range found {
		n, err := fromSequence(o.ID)
		if err != nil {
			return fmt.Errorf("invalid order ID %x: %s", o.ID, err)
		}
		deadline := o.Order.ProposedDeadline
		if o.Order.DeadlineApproved {
			deadline = o.Order.ApprovedDeadline
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n, o.Order.State, o.Order.Amount, deadline.Time().UTC().Format(time.RFC3339))
	}
	return w.Flush()
}
