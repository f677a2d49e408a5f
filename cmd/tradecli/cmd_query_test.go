package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iov-one/tradeescrow/client"
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest/assert"
)

type fakeReader struct {
	order *tradeescrow.Order
	role  string
}

func (f *fakeReader) Order(ctx context.Context, id []byte) (*client.OrderResult, error) {
	if f.order == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "order")
	}
	return &client.OrderResult{ID: id, Order: f.order}, nil
}

func (f *fakeReader) OrdersByParty(ctx context.Context, role string, addr weave.Address) ([]*client.OrderResult, error) {
	f.role = role
	return []*client.OrderResult{{ID: sequenceID(4), Order: f.order}}, nil
}

func withReader(t *testing.T, r orderReader) {
	t.Helper()
	prev := newReader
	newReader = func(string) orderReader { return r }
	t.Cleanup(func() { newReader = prev })
}

func sampleOrder() *tradeescrow.Order {
	return &tradeescrow.Order{
		Metadata:         &weave.Metadata{Schema: 1},
		Amount:           coin.NewCoinp(3, 0, "IOV"),
		State:            tradeescrow.StateCompleted,
		ApprovedDeadline: 7200,
		DeadlineApproved: true,
		History: []*tradeescrow.HistoryEntry{
			{Timestamp: 0, State: tradeescrow.StatePendingDeadlineApproval, Description: "Order created"},
			{Timestamp: 3600, State: tradeescrow.StateCompleted, Description: "Funds released to exporter"},
		},
	}
}

func TestCmdQueryOrder(t *testing.T) {
	withReader(t, &fakeReader{order: sampleOrder()})

	var output bytes.Buffer
	assert.Nil(t, cmdQueryOrder(nil, &output, []string{"-order", "4"}))
	var got struct {
		State string `json:"state"`
	}
	assert.Nil(t, json.Unmarshal(output.Bytes(), &got))
	assert.Equal(t, tradeescrow.StateCompleted.String(), got.State)

	withReader(t, &fakeReader{})
	if err := cmdQueryOrder(nil, &output, []string{"-order", "5"}); err == nil {
		t.Fatal("want not found error")
	}
	if err := cmdQueryOrder(nil, &output, nil); err == nil {
		t.Fatal("want missing ID error")
	}
}

func TestCmdOrderHistory(t *testing.T) {
	withReader(t, &fakeReader{order: sampleOrder()})

	var output bytes.Buffer
	assert.Nil(t, cmdOrderHistory(nil, &output, []string{"-order", "4"}))
	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	assert.Equal(t, 3, len(lines))
	if !strings.Contains(lines[1], "1970-01-01T00:00:00Z") || !strings.Contains(lines[1], "Order created") {
		t.Fatalf("unexpected first entry %q", lines[1])
	}
	if !strings.Contains(lines[2], "Funds released to exporter") {
		t.Fatalf("unexpected second entry %q", lines[2])
	}
}

func TestCmdListOrders(t *testing.T) {
	r := &fakeReader{order: sampleOrder()}
	withReader(t, r)

	var output bytes.Buffer
	assert.Nil(t, cmdListOrders(nil, &output, []string{"-verifier", "E28AE9A6EB94FC88B73EB7CBD6B87BF93EB9BEF0"}))
	assert.Equal(t, "verifier", r.role)
	if !strings.Contains(output.String(), "1970-01-01T02:00:00Z") {
		t.Fatalf("approved deadline not listed: %s", output.String())
	}

	if err := cmdListOrders(nil, &output, nil); err == nil {
		t.Fatal("party is required")
	}
	err := cmdListOrders(nil, &output, []string{
		"-importer", "E28AE9A6EB94FC88B73EB7CBD6B87BF93EB9BEF0",
		"-exporter", "E28AE9A6EB94FC88B73EB7CBD6B87BF93EB9BEF0",
	})
	if err == nil {
		t.Fatal("only one party is allowed")
	}
}
