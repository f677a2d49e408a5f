package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/tradeescrow/client"
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
)

func cmdSubmitTransaction(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read binary serialized transaction from standard input and submit it. The
command waits until the transaction is included in a block.

For an order creation the ID of the new order is printed out.
`)
		fl.PrintDefaults()
	}
	tmAddrFl := fl.String("tm", defaultTmAddr(), tmAddrUsage)
	fl.Parse(args)

	tx, _, err := readTx(input)
	if err != nil {
		return fmt.Errorf("cannot read transaction from input: %s", err)
	}

	tc := client.NewClient(client.NewHTTPConnection(*tmAddrFl))
	res, err := tc.CommitTx(context.Background(), tx)
	if err != nil {
		return fmt.Errorf("cannot broadcast transaction: %s", err)
	}

	pretty, err := extractResponse(tx, res.Data)
	if err != nil {
		return fmt.Errorf("cannot extract response: %s", err)
	}
	if pretty != "" {
		fmt.Fprintln(output, pretty)
	}
	return nil
}

// extractResponse returns a human readable representation of the response
// data of a submitted transaction. It returns an empty string if the
// response is not worth showing.
func extractResponse(tx weave.Tx, data []byte) (string, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return "", fmt.Errorf("cannot extract message from transaction: %s", err)
	}
	if _, ok := msg.(*tradeescrow.CreateOrderMsg); !ok {
		return "", nil
	}
	n, err := fromSequence(data)
	if err != nil {
		return "", fmt.Errorf("cannot parse sequence: %s", err)
	}
	return fmt.Sprint(n), nil
}
