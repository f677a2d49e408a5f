package tradeescrow_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
)

var billOfLading = bytes.Repeat([]byte{0xab}, 32)

// env is a single chain state with the trade escrow and cash extensions
// registered.
type env struct {
	t      *testing.T
	db     weave.CacheableKVStore
	router *app.Router
	auth   *weavetest.CtxAuth
	bank   cash.Bucket
	orders orm.ModelBucket

	importer, exporter, verifier, stranger weave.Condition
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := store.MemStore()
	migration.MustInitPkg(db, "tradeescrow", "cash")

	authenticator := &weavetest.CtxAuth{Key: "auth"}
	bank := cash.NewBucket()
	r := app.NewRouter()
	tradeescrow.RegisterRoutes(r, x.ChainAuth(authenticator), cash.NewController(bank))

	return &env{
		t:        t,
		db:       db,
		router:   r,
		auth:     authenticator,
		bank:     bank,
		orders:   tradeescrow.NewBucket(),
		importer: weavetest.NewCondition(),
		exporter: weavetest.NewCondition(),
		verifier: weavetest.NewCondition(),
		stranger: weavetest.NewCondition(),
	}
}

func (e *env) setBalance(addr weave.Address, coins ...*coin.Coin) {
	e.t.Helper()
	acct, err := cash.WalletWith(addr, coins...)
	assert.Nil(e.t, err)
	assert.Nil(e.t, e.bank.Save(e.db, acct))
}

func (e *env) balance(addr weave.Address) coin.Coins {
	e.t.Helper()
	acct, err := e.bank.Get(e.db, addr)
	assert.Nil(e.t, err)
	return cash.AsCoins(acct)
}

func (e *env) assertBalance(addr weave.Address, want int64) {
	e.t.Helper()
	got := e.balance(addr)
	if want == 0 {
		if len(got) != 0 {
			e.t.Fatalf("want empty balance, got %v", got)
		}
		return
	}
	amount := coin.NewCoin(want, 0, "IOV")
	if !got.Equals(coin.Coins{&amount}) {
		e.t.Fatalf("want %v balance, got %v", amount, got)
	}
}

func (e *env) context(blockTime int64, signers ...weave.Condition) weave.Context {
	ctx := weave.WithHeight(context.Background(), 500)
	ctx = weave.WithBlockTime(ctx, time.Unix(blockTime, 0))
	return e.auth.SetConditions(ctx, signers...)
}

// exec runs check and deliver of msg signed by signers. Check is run on a
// discarded cache.
func (e *env) exec(blockTime int64, msg weave.Msg, signers ...weave.Condition) ([]byte, error) {
	e.t.Helper()
	ctx := e.context(blockTime, signers...)
	tx := &weavetest.Tx{Msg: msg}

	cache := e.db.CacheWrap()
	_, err := e.router.Check(ctx, cache, tx)
	cache.Discard()
	if err != nil {
		return nil, err
	}
	res, err := e.router.Deliver(ctx, e.db, tx)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (e *env) order(id []byte) *tradeescrow.Order {
	e.t.Helper()
	var o tradeescrow.Order
	assert.Nil(e.t, e.orders.One(e.db, id, &o))
	return &o
}

func (e *env) createMsg() *tradeescrow.CreateOrderMsg {
	amount := coin.NewCoin(10, 0, "IOV")
	return &tradeescrow.CreateOrderMsg{
		Metadata:         &weave.Metadata{Schema: 1},
		Exporter:         e.exporter.Address(),
		Verifier:         e.verifier.Address(),
		Amount:           &amount,
		ProposedDeadline: 3600,
		CreationTime:     0,
		OrderMetadata:    &tradeescrow.OrderMetadata{Title: "coffee beans", Tags: []string{"food"}},
	}
}

// createApprovedOrder returns the ID of a funded order with the deadline
// approved at 100, so that the approved deadline is 3700.
func (e *env) createApprovedOrder() []byte {
	e.t.Helper()
	e.setBalance(e.importer.Address(), coinp(100))

	id, err := e.exec(10, e.createMsg(), e.importer)
	assert.Nil(e.t, err)

	_, err = e.exec(20, &tradeescrow.ApproveDeadlineMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		CurrentTime: 100,
	}, e.importer)
	assert.Nil(e.t, err)
	return id
}

func coinp(whole int64) *coin.Coin {
	c := coin.NewCoin(whole, 0, "IOV")
	return &c
}

func TestCreateOrder(t *testing.T) {
	e := newEnv(t)
	e.setBalance(e.importer.Address(), coinp(100))

	id, err := e.exec(10, e.createMsg(), e.importer)
	assert.Nil(t, err)
	assert.Equal(t, weavetest.SequenceID(1), id)

	o := e.order(id)
	assert.Equal(t, tradeescrow.StatePendingDeadlineApproval, o.State)
	assert.Equal(t, e.importer.Address(), o.Importer)
	assert.Equal(t, weave.UnixTime(3600), o.ProposedDeadline)
	assert.Equal(t, false, o.DeadlineApproved)
	assert.Equal(t, make([]byte, 32), o.BillOfLadingHash)
	assert.Equal(t, "coffee beans", o.OrderMetadata.Title)
	assert.Equal(t, tradeescrow.Condition(id).Address(), o.Address)

	e.assertBalance(e.importer.Address(), 90)
	e.assertBalance(o.Address, 10)

	// Sequence gives every order a new ID.
	id2, err := e.exec(11, e.createMsg(), e.importer)
	assert.Nil(t, err)
	assert.Equal(t, weavetest.SequenceID(2), id2)
	e.assertBalance(e.importer.Address(), 80)
}

func TestCreateOrderImporterIsFirstSigner(t *testing.T) {
	e := newEnv(t)
	e.setBalance(e.importer.Address(), coinp(100))

	id, err := e.exec(10, e.createMsg(), e.importer, e.stranger)
	assert.Nil(t, err)
	assert.Equal(t, e.importer.Address(), e.order(id).Importer)
	e.assertBalance(e.importer.Address(), 90)
}

func TestCreateOrderCheckCost(t *testing.T) {
	e := newEnv(t)
	ctx := e.context(10, e.importer)
	res, err := e.router.Check(ctx, e.db.CacheWrap(), &weavetest.Tx{Msg: e.createMsg()})
	assert.Nil(t, err)
	assert.Equal(t, int64(300), res.GasAllocated)
}

func TestCreateOrderFailures(t *testing.T) {
	cases := map[string]struct {
		mutate      func(e *env, msg *tradeescrow.CreateOrderMsg)
		signers     func(e *env) []weave.Condition
		wantCheck   *errors.Error
		wantDeliver *errors.Error
	}{
		"no funds": {
			wantCheck:   nil,
			wantDeliver: errors.ErrEmpty,
		},
		"no signature": {
			signers:     func(e *env) []weave.Condition { return nil },
			wantCheck:   tradeescrow.ErrUnauthorized,
			wantDeliver: tradeescrow.ErrUnauthorized,
		},
		"importer did not sign": {
			mutate: func(e *env, msg *tradeescrow.CreateOrderMsg) {
				msg.Importer = e.stranger.Address()
			},
			wantCheck:   tradeescrow.ErrUnauthorized,
			wantDeliver: tradeescrow.ErrUnauthorized,
		},
		"deadline too short": {
			mutate: func(e *env, msg *tradeescrow.CreateOrderMsg) {
				msg.ProposedDeadline = 59
			},
			wantCheck:   tradeescrow.ErrDeadlineTooShort,
			wantDeliver: tradeescrow.ErrDeadlineTooShort,
		},
		"zero amount": {
			mutate: func(e *env, msg *tradeescrow.CreateOrderMsg) {
				zero := coin.NewCoin(0, 0, "IOV")
				msg.Amount = &zero
			},
			wantCheck:   errors.ErrAmount,
			wantDeliver: errors.ErrAmount,
		},
		"importer is the exporter": {
			signers:     func(e *env) []weave.Condition { return []weave.Condition{e.exporter} },
			wantCheck:   errors.ErrInput,
			wantDeliver: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			e := newEnv(t)
			msg := e.createMsg()
			if tc.mutate != nil {
				tc.mutate(e, msg)
			}
			signers := []weave.Condition{e.importer}
			if tc.signers != nil {
				signers = tc.signers(e)
			}
			ctx := e.context(10, signers...)
			tx := &weavetest.Tx{Msg: msg}

			if _, err := e.router.Check(ctx, e.db.CacheWrap(), tx); !tc.wantCheck.Is(err) {
				t.Fatalf("unexpected check error: %+v", err)
			}
			if _, err := e.router.Deliver(ctx, e.db, tx); !tc.wantDeliver.Is(err) {
				t.Fatalf("unexpected deliver error: %+v", err)
			}

			var o tradeescrow.Order
			err := e.orders.One(e.db, weavetest.SequenceID(1), &o)
			assert.IsErr(t, errors.ErrNotFound, err)
		})
	}
}

func TestOrderDelivered(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()

	o := e.order(id)
	assert.Equal(t, tradeescrow.StatePendingShipment, o.State)
	assert.Equal(t, weave.UnixTime(3700), o.ApprovedDeadline)

	_, err := e.exec(200, &tradeescrow.ShipGoodsMsg{
		Metadata:         &weave.Metadata{Schema: 1},
		OrderID:          id,
		BillOfLadingHash: billOfLading,
	}, e.exporter)
	assert.Nil(t, err)
	o = e.order(id)
	assert.Equal(t, tradeescrow.StateInTransit, o.State)
	assert.Equal(t, billOfLading, o.BillOfLadingHash)

	_, err = e.exec(300, &tradeescrow.ConfirmDeliveryMsg{
		Metadata: &weave.Metadata{Schema: 1},
		OrderID:  id,
	}, e.verifier)
	assert.Nil(t, err)

	o = e.order(id)
	assert.Equal(t, tradeescrow.StateCompleted, o.State)
	n := len(o.History)
	assert.Equal(t, tradeescrow.StateDelivered, o.History[n-2].State)
	assert.Equal(t, tradeescrow.StateCompleted, o.History[n-1].State)
	assert.Equal(t, weave.UnixTime(300), o.LastUpdated)

	e.assertBalance(e.exporter.Address(), 10)
	e.assertBalance(e.importer.Address(), 90)
	e.assertBalance(o.Address, 0)

	// Completed order cannot be refunded.
	_, err = e.exec(400, &tradeescrow.RefundMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		CurrentTime: 5000,
	}, e.stranger)
	assert.IsErr(t, tradeescrow.ErrInvalidState, err)
}

func TestShipGoodsAfterDeadline(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()

	_, err := e.exec(3800, &tradeescrow.ShipGoodsMsg{
		Metadata:         &weave.Metadata{Schema: 1},
		OrderID:          id,
		BillOfLadingHash: billOfLading,
	}, e.exporter)
	assert.IsErr(t, tradeescrow.ErrDeadlinePassed, err)
	assert.Equal(t, tradeescrow.StatePendingShipment, e.order(id).State)
}

func TestOrderRefunded(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()
	refund := func(at weave.UnixTime) error {
		_, err := e.exec(50, &tradeescrow.RefundMsg{
			Metadata:    &weave.Metadata{Schema: 1},
			OrderID:     id,
			CurrentTime: at,
		}, e.stranger)
		return err
	}

	assert.IsErr(t, tradeescrow.ErrTooEarlyForRefund, refund(3700))
	e.assertBalance(e.importer.Address(), 90)

	assert.Nil(t, refund(3701))
	assert.Equal(t, tradeescrow.StateRefunded, e.order(id).State)
	e.assertBalance(e.importer.Address(), 100)
	e.assertBalance(e.order(id).Address, 0)

	assert.IsErr(t, tradeescrow.ErrInvalidState, refund(3702))
	e.assertBalance(e.importer.Address(), 100)
}

func TestConfirmDeliveryWithoutEscrowedFunds(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()
	_, err := e.exec(200, &tradeescrow.ShipGoodsMsg{
		Metadata:         &weave.Metadata{Schema: 1},
		OrderID:          id,
		BillOfLadingHash: billOfLading,
	}, e.exporter)
	assert.Nil(t, err)

	// Drain the holding account so that the release cannot succeed.
	holding := e.order(id).Address
	e.setBalance(holding, coinp(1))

	_, err = e.exec(300, &tradeescrow.ConfirmDeliveryMsg{
		Metadata: &weave.Metadata{Schema: 1},
		OrderID:  id,
	}, e.importer)
	if err == nil {
		t.Fatal("release of missing funds must fail")
	}

	o := e.order(id)
	assert.Equal(t, tradeescrow.StateInTransit, o.State)
	e.assertBalance(e.exporter.Address(), 0)
	e.assertBalance(holding, 1)
}

func TestRefundWithoutEscrowedFunds(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()
	historyLen := len(e.order(id).History)

	holding := e.order(id).Address
	e.setBalance(holding, coinp(1))

	_, err := e.exec(50, &tradeescrow.RefundMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		CurrentTime: 3701,
	}, e.stranger)
	if err == nil {
		t.Fatal("refund of missing funds must fail")
	}

	o := e.order(id)
	assert.Equal(t, tradeescrow.StatePendingShipment, o.State)
	assert.Equal(t, historyLen, len(o.History))
	e.assertBalance(e.importer.Address(), 90)
	e.assertBalance(holding, 1)
}

func TestExtensionNegotiation(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()

	_, err := e.exec(200, &tradeescrow.RequestExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		NewDeadline: 9000,
		CurrentTime: 200,
	}, e.importer)
	assert.IsErr(t, tradeescrow.ErrUnauthorized, err)

	_, err = e.exec(200, &tradeescrow.RequestExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		NewDeadline: 9000,
		CurrentTime: 200,
	}, e.exporter)
	assert.Nil(t, err)
	o := e.order(id)
	assert.Equal(t, tradeescrow.StatePendingExtensionApproval, o.State)
	assert.Equal(t, weave.UnixTime(9000), o.ExtensionDeadline)

	// Block time is used when the rejection does not declare a time.
	_, err = e.exec(300, &tradeescrow.RejectExtensionMsg{
		Metadata: &weave.Metadata{Schema: 1},
		OrderID:  id,
	}, e.importer)
	assert.Nil(t, err)
	o = e.order(id)
	assert.Equal(t, tradeescrow.StatePendingShipment, o.State)
	assert.Equal(t, weave.UnixTime(3700), o.ApprovedDeadline)
	assert.Equal(t, false, o.ExtensionRequested)
	assert.Equal(t, weave.UnixTime(300), o.History[len(o.History)-1].Timestamp)

	_, err = e.exec(400, &tradeescrow.RequestExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		NewDeadline: 9000,
		CurrentTime: 400,
	}, e.exporter)
	assert.Nil(t, err)
	_, err = e.exec(500, &tradeescrow.ApproveExtensionMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		CurrentTime: 500,
	}, e.importer)
	assert.Nil(t, err)
	o = e.order(id)
	assert.Equal(t, tradeescrow.StatePendingShipment, o.State)
	assert.Equal(t, weave.UnixTime(9000), o.ApprovedDeadline)
}

func TestDisputeKeepsFunds(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()

	_, err := e.exec(200, &tradeescrow.DisputeMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		Reason:      "wrong goods",
		CurrentTime: 200,
	}, e.exporter)
	assert.Nil(t, err)
	assert.Equal(t, tradeescrow.StateDisputed, e.order(id).State)

	_, err = e.exec(300, &tradeescrow.ResolveDisputeMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     id,
		Resolution:  "settled outside",
		CurrentTime: 300,
	}, e.verifier)
	assert.Nil(t, err)

	o := e.order(id)
	assert.Equal(t, tradeescrow.StateCompleted, o.State)
	assert.Equal(t, "Dispute resolved: settled outside", o.History[len(o.History)-1].Description)
	e.assertBalance(o.Address, 10)
	e.assertBalance(e.exporter.Address(), 0)
}

func TestUpdateMetadata(t *testing.T) {
	e := newEnv(t)
	id := e.createApprovedOrder()

	msg := &tradeescrow.UpdateMetadataMsg{
		Metadata:      &weave.Metadata{Schema: 1},
		OrderID:       id,
		OrderMetadata: &tradeescrow.OrderMetadata{Title: "tea", Category: "food"},
		CurrentTime:   150,
	}
	_, err := e.exec(150, msg, e.verifier)
	assert.IsErr(t, tradeescrow.ErrUnauthorized, err)

	_, err = e.exec(150, msg, e.exporter)
	assert.Nil(t, err)
	o := e.order(id)
	assert.Equal(t, "tea", o.OrderMetadata.Title)
	assert.Equal(t, tradeescrow.StatePendingShipment, o.State)
}

func TestUnknownOrder(t *testing.T) {
	e := newEnv(t)
	_, err := e.exec(100, &tradeescrow.ApproveDeadlineMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		OrderID:     weavetest.SequenceID(42),
		CurrentTime: 100,
	}, e.importer)
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestOrdersByParty(t *testing.T) {
	e := newEnv(t)
	e.setBalance(e.importer.Address(), coinp(100))
	for i := 0; i < 3; i++ {
		_, err := e.exec(10, e.createMsg(), e.importer)
		assert.Nil(t, err)
	}

	var orders []tradeescrow.Order
	keys, err := e.orders.ByIndex(e.db, "importer", e.importer.Address(), &orders)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(keys))
	assert.Equal(t, 3, len(orders))
	for _, o := range orders {
		assert.Equal(t, e.importer.Address(), o.Importer)
	}
}

func TestConfigurationChangesPolicy(t *testing.T) {
	e := newEnv(t)
	owner := weavetest.NewCondition()
	conf := &tradeescrow.Configuration{
		Metadata:    &weave.Metadata{Schema: 1},
		Owner:       owner.Address(),
		MinDeadline: 10,
		MaxDeadline: 100,
	}
	assert.Nil(t, gconf.Save(e.db, "tradeescrow", conf))
	e.setBalance(e.importer.Address(), coinp(100))

	msg := e.createMsg()
	msg.ProposedDeadline = 30
	_, err := e.exec(10, msg, e.importer)
	assert.Nil(t, err)

	msg = e.createMsg()
	msg.ProposedDeadline = 500
	_, err = e.exec(10, msg, e.importer)
	assert.IsErr(t, tradeescrow.ErrDeadlineTooLong, err)

	update := &tradeescrow.UpdateConfigurationMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Patch:    &tradeescrow.Configuration{MaxDeadline: 1000},
	}
	_, err = e.exec(10, update, e.stranger)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	_, err = e.exec(10, update, owner)
	assert.Nil(t, err)

	_, err = e.exec(10, msg, e.importer)
	assert.Nil(t, err)
}
