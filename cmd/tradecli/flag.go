package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
)

// flAddress returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. This
// function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flAddress(fl *flag.FlagSet, name, defaultVal, usage string) *weave.Address {
	var a weave.Address
	if defaultVal != "" {
		var err error
		a, err = weave.ParseAddress(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q weave.Address flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&a, name, usage)
	return &a
}

// flCoin returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided.
func flCoin(fl *flag.FlagSet, name, defaultVal, usage string) *coin.Coin {
	var c coin.Coin
	if defaultVal != "" {
		var err error
		c, err = coin.ParseHumanFormat(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q weave.Coin flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&c, name, usage)
	return &c
}

// flHex returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided.
func flHex(fl *flag.FlagSet, name, defaultVal, usage string) *[]byte {
	var b []byte
	if defaultVal != "" {
		var err error
		b, err = hex.DecodeString(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q hex encoded flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fb := flagbyte{dest: &b}
	fl.Var(&fb, name, usage)
	return &b
}

type flagbyte struct {
	dest *[]byte
}

func (b *flagbyte) String() string {
	if b.dest == nil {
		return ""
	}
	return hex.EncodeToString(*b.dest)
}

func (b *flagbyte) Set(raw string) error {
	val, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}
	*b.dest = val
	return nil
}

// flSeq returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. The value
// is a decimal number encoded as an orm sequence.
func flSeq(fl *flag.FlagSet, name, defaultVal, usage string) *[]byte {
	var b []byte
	if defaultVal != "" {
		n, err := strconv.ParseUint(defaultVal, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q sequence flag value. %s", name, err)
			os.Exit(2)
		}
		b = sequenceID(n)
	}
	fs := flagseq{dest: &b}
	fl.Var(&fs, name, usage)
	return &b
}

type flagseq struct {
	dest *[]byte
}

func (s *flagseq) String() string {
	if s.dest == nil || len(*s.dest) == 0 {
		return ""
	}
	n, err := fromSequence(*s.dest)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(n, 10)
}

func (s *flagseq) Set(raw string) error {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return err
	}
	*s.dest = sequenceID(n)
	return nil
}
