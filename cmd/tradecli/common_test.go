package main

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/iov-one/tradeescrow/cmd/tradeescrowd/app"
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/weavetest/assert"
)

func fromHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("cannot decode %q hex encoded data: %s", s, err)
	}
	return b
}

func TestSequenceRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 255, 1 << 40} {
		got, err := fromSequence(sequenceID(n))
		assert.Nil(t, err)
		assert.Equal(t, n, got)
	}
	if _, err := fromSequence([]byte{1, 2}); err == nil {
		t.Fatal("short sequence must be rejected")
	}
}

func TestStreamMultipleTransactions(t *testing.T) {
	var buf bytes.Buffer
	for i := uint64(1); i <= 3; i++ {
		tx := app.NewTx(&tradeescrow.RefundMsg{
			Metadata:    &weave.Metadata{Schema: 1},
			OrderID:     sequenceID(i),
			CurrentTime: weave.UnixTime(i),
		})
		if _, err := writeTx(&buf, tx); err != nil {
			t.Fatalf("cannot write transaction: %s", err)
		}
	}

	for i := uint64(1); i <= 3; i++ {
		tx, _, err := readTx(&buf)
		if err != nil {
			t.Fatalf("cannot read transaction %d: %s", i, err)
		}
		msg, err := tx.GetMsg()
		assert.Nil(t, err)
		assert.Equal(t, sequenceID(i), msg.(*tradeescrow.RefundMsg).OrderID)
	}
	if _, _, err := readTx(&buf); err == nil {
		t.Fatal("want an error on empty input")
	}
}
