package main

import (
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"time"

	tradeescrowd "github.com/iov-one/tradeescrow/cmd/tradeescrowd/app"
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
)

func cmdCreateOrder(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction for opening a new order. The amount is moved from the
importer to the order account when the transaction is processed.
		`)
		fl.PrintDefaults()
	}
	var (
		importerFl = flAddress(fl, "importer", "", "Optional importer address. The signer is used if not provided.")
		exporterFl = flAddress(fl, "exporter", "", "Address of the exporter that is paid once the delivery is confirmed.")
		verifierFl = flAddress(fl, "verifier", "", "Address of the verifier that confirms the delivery.")
		amountFl   = flCoin(fl, "amount", "", "Amount that is held by the order, for example '100 IOV'.")
		deadlineFl = fl.Duration("deadline", 30*24*time.Hour, "Proposed delivery deadline, counted from now.")
		meta       = metadataFlags(fl)
	)
	fl.Parse(args)

	if coin.IsEmpty(amountFl) {
		return errors.New("amount is required")
	}
	created := now()
	tx := tradeescrowd.NewTx(&tradeescrow.CreateOrderMsg{
		Metadata:         &weave.Metadata{Schema: 1},
		Importer:         *importerFl,
		Exporter:         *exporterFl,
		Verifier:         *verifierFl,
		Amount:           amountFl,
		ProposedDeadline: weave.AsUnixTime(created.Add(*deadlineFl)),
		CreationTime:     weave.AsUnixTime(created),
		OrderMetadata:    meta.orderMetadata(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdProposeDeadline(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction for proposing a new deadline. Only the exporter can
propose a deadline and only before it was approved.
		`)
		fl.PrintDefaults()
	}
	var (
		orderFl    = flSeq(fl, "order", "", "ID of the order.")
		deadlineFl = fl.Duration("deadline", 30*24*time.Hour, "Proposed delivery deadline, counted from now.")
	)
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.ProposeDeadlineMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		NewDeadline: weave.AsUnixTime(now().Add(*deadlineFl)),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdApproveDeadline(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction for approving the proposed deadline of an order. Must be
signed by the importer.
		`)
		fl.PrintDefaults()
	}
	orderFl := flSeq(fl, "order", "", "ID of the order.")
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.ApproveDeadlineMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		CurrentTime: currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdShipGoods(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction declaring the goods shipped. Provide either the hex
encoded hash of the bill of lading or a path to the document that is hashed.
		`)
		fl.PrintDefaults()
	}
	var (
		orderFl   = flSeq(fl, "order", "", "ID of the order.")
		bolFl     = flHex(fl, "bol", "", "Hex encoded SHA-256 hash of the bill of lading.")
		bolFileFl = fl.String("bol-file", "", "Path to the bill of lading document. Its SHA-256 hash is used.")
	)
	fl.Parse(args)

	hash := *bolFl
	if *bolFileFl != "" {
		if len(hash) != 0 {
			return errors.New("use either bol or bol-file")
		}
		raw, err := ioutil.ReadFile(*bolFileFl)
		if err != nil {
			return fmt.Errorf("cannot read bill of lading: %s", err)
		}
		sum := sha256.Sum256(raw)
		hash = sum[:]
	}
	if len(hash) == 0 {
		return errors.New("bill of lading hash is required")
	}

	tx := tradeescrowd.NewTx(&tradeescrow.ShipGoodsMsg{
		Metadata:         &weave.Metadata{Schema: 1},
		OrderID:          *orderFl,
		BillOfLadingHash: hash,
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdRequestExtension(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction requesting the approved deadline to be extended. Must be
signed by the exporter.
		`)
		fl.PrintDefaults()
	}
	var (
		orderFl    = flSeq(fl, "order", "", "ID of the order.")
		deadlineFl = fl.Duration("deadline", 7*24*time.Hour, "Requested deadline, counted from now.")
	)
	fl.Parse(args)

	t := now()
	tx := tradeescrowd.NewTx(&tradeescrow.RequestExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		NewDeadline: weave.AsUnixTime(t.Add(*deadlineFl)),
		CurrentTime: weave.AsUnixTime(t),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdApproveExtension(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction accepting the requested extension. Must be signed by the
importer.
		`)
		fl.PrintDefaults()
	}
	orderFl := flSeq(fl, "order", "", "ID of the order.")
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.ApproveExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		CurrentTime: currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdRejectExtension(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction discarding the requested extension. Must be signed by the
importer.
		`)
		fl.PrintDefaults()
	}
	orderFl := flSeq(fl, "order", "", "ID of the order.")
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.RejectExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		CurrentTime: currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdConfirmDelivery(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction confirming the delivery. The held amount is released to
the exporter. Must be signed by the verifier or the importer.
		`)
		fl.PrintDefaults()
	}
	orderFl := flSeq(fl, "order", "", "ID of the order.")
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.ConfirmDeliveryMsg{
		Metadata: &weave.Metadata{Schema: 1},
		OrderID:  *orderFl,
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdRefund(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction returning the held amount to the importer. Allowed only
after the approved deadline passed.
		`)
		fl.PrintDefaults()
	}
	orderFl := flSeq(fl, "order", "", "ID of the order.")
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.RefundMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		CurrentTime: currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdUpdateMetadata(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction replacing the descriptive information of an order.
		`)
		fl.PrintDefaults()
	}
	var (
		orderFl = flSeq(fl, "order", "", "ID of the order.")
		meta    = metadataFlags(fl)
	)
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.UpdateMetadataMsg{
		Metadata:      &weave.Metadata{Schema: 1},
		OrderID:       *orderFl,
		OrderMetadata: meta.orderMetadata(),
		CurrentTime:   currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdDispute(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction opening a dispute. Must be signed by the importer or the
exporter.
		`)
		fl.PrintDefaults()
	}
	var (
		orderFl  = flSeq(fl, "order", "", "ID of the order.")
		reasonFl = fl.String("reason", "", "Reason of the dispute.")
	)
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.DisputeMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		Reason:      *reasonFl,
		CurrentTime: currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdResolveDispute(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction resolving a dispute. Must be signed by the verifier.
		`)
		fl.PrintDefaults()
	}
	var (
		orderFl      = flSeq(fl, "order", "", "ID of the order.")
		resolutionFl = fl.String("resolution", "", "Resolution of the dispute.")
	)
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.ResolveDisputeMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     *orderFl,
		Resolution:  *resolutionFl,
		CurrentTime: currentTime(),
	})
	_, err := writeTx(output, tx)
	return err
}

func cmdUpdateConfiguration(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a transaction updating the deadline policy. Only provided values are
changed. Must be signed by the configuration owner.
		`)
		fl.PrintDefaults()
	}
	var (
		ownerFl = flAddress(fl, "owner", "", "New owner of the configuration.")
		minFl   = fl.Duration("min", 0, "Shortest accepted deadline.")
		maxFl   = fl.Duration("max", 0, "Longest accepted deadline.")
	)
	fl.Parse(args)

	tx := tradeescrowd.NewTx(&tradeescrow.UpdateConfigurationMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Patch: &tradeescrow.Configuration{
			Metadata:    &weave.Metadata{Schema: 1},
			Owner:       *ownerFl,
			MinDeadline: weave.AsUnixDuration(*minFl),
			MaxDeadline: weave.AsUnixDuration(*maxFl),
		},
	})
	_, err := writeTx(output, tx)
	return err
}

type metadataFlagSet struct {
	title       *string
	description *string
	tags        *string
	category    *string
}

func metadataFlags(fl *flag.FlagSet) metadataFlagSet {
	return metadataFlagSet{
		title:       fl.String("title", "", "Title of the order."),
		description: fl.String("description", "", "Description of the goods."),
		tags:        fl.String("tags", "", "Comma separated list of tags."),
		category:    fl.String("category", "", "Category of the goods."),
	}
}

func (m metadataFlagSet) orderMetadata() *tradeescrow.OrderMetadata {
	var tags []string
	for _, t := range strings.Split(*m.tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return &tradeescrow.OrderMetadata{
		Title:       *m.title,
		Description: *m.description,
		Tags:        tags,
		Category:    *m.category,
	}
}
