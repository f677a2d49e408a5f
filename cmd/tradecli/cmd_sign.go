package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/tradeescrow/client"
	"github.com/iov-one/weave/x/sigs"
)

func cmdSignTransaction(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Sign given transaction. This is decoding a transaction data from standard
input, adds a signature and writes back to standard output signed transaction
content.
`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl  = fl.String("tm", defaultTmAddr(), tmAddrUsage)
		keyPathFl = fl.String("key", defaultKeyPath(),
			"Path to the private key file that transaction should be signed with. You can use TRADECLI_PRIV_KEY environment variable to set it.")
	)
	fl.Parse(args)

	key, err := decodePrivateKey(*keyPathFl)
	if err != nil {
		return fmt.Errorf("cannot load private key: %s", err)
	}

	tx, _, err := readTx(input)
	if err != nil {
		return fmt.Errorf("cannot read transaction from input: %s", err)
	}

	ctx := context.Background()
	tc := client.NewClient(client.NewHTTPConnection(*tmAddrFl))
	chainID, err := tc.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("cannot fetch chain ID: %s", err)
	}
	seq, err := client.NewNonce(tc, key.PublicKey().Address()).Next(ctx)
	if err != nil {
		return fmt.Errorf("cannot get the next sequence number: %s", err)
	}
	sig, err := sigs.SignTx(key, tx, chainID, seq)
	if err != nil {
		return fmt.Errorf("cannot sign transaction: %s", err)
	}
	if err := tx.AddSignature(sig); err != nil {
		return fmt.Errorf("cannot add signature: %s", err)
	}

	_, err = writeTx(output, tx)
	return err
}
