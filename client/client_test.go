package client

import (
	"context"
	"testing"

	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/sigs"
	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
	rpcclient "github.com/tendermint/tendermint/rpc/client"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

// fakeConn answers queries from a map keyed by path and hex data.
type fakeConn struct {
	queries map[string]abci.ResponseQuery
	commit  *ctypes.ResultBroadcastTxCommit
	sync    *ctypes.ResultBroadcastTx
	sent    []tmtypes.Tx
	err     error
}

func (f *fakeConn) Status() (*ctypes.ResultStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: 12}}, nil
}

func (f *fakeConn) Genesis() (*ctypes.ResultGenesis, error) {
	return &ctypes.ResultGenesis{Genesis: &tmtypes.GenesisDoc{ChainID: "trade-chain"}}, nil
}

func (f *fakeConn) BroadcastTxSync(tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error) {
	f.sent = append(f.sent, tx)
	return f.sync, f.err
}

func (f *fakeConn) BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	f.sent = append(f.sent, tx)
	return f.commit, f.err
}

func (f *fakeConn) ABCIQueryWithOptions(path string, data cmn.HexBytes, opts rpcclient.ABCIQueryOptions) (*ctypes.ResultABCIQuery, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ctypes.ResultABCIQuery{Response: f.queries[path+data.String()]}, nil
}

func (f *fakeConn) put(t testing.TB, path string, data []byte, keys [][]byte, values ...weave.Marshaller) {
	t.Helper()
	if f.queries == nil {
		f.queries = make(map[string]abci.ResponseQuery)
	}
	var vals [][]byte
	for _, v := range values {
		raw, err := v.Marshal()
		assert.Nil(t, err)
		vals = append(vals, raw)
	}
	k, err := (&app.ResultSet{Results: keys}).Marshal()
	assert.Nil(t, err)
	v, err := (&app.ResultSet{Results: vals}).Marshal()
	assert.Nil(t, err)
	f.queries[path+cmn.HexBytes(data).String()] = abci.ResponseQuery{Key: k, Value: v}
}

// fakeTx is enough of a transaction to be submitted.
type fakeTx struct {
	weavetest.Tx
	raw []byte
}

func (tx *fakeTx) Marshal() ([]byte, error) { return tx.raw, nil }

func testOrder(importer weave.Address) *tradeescrow.Order {
	return &tradeescrow.Order{
		Metadata: &weave.Metadata{Schema: 1},
		Importer: importer,
		Exporter: weavetest.NewCondition().Address(),
		Verifier: weavetest.NewCondition().Address(),
		Amount:   coin.NewCoinp(5, 0, "IOV"),
		State:    tradeescrow.StatePendingShipment,
		Address:  tradeescrow.Condition(weavetest.SequenceID(3)).Address(),
	}
}

func TestStatusAndChainID(t *testing.T) {
	c := NewClient(&fakeConn{})
	ctx := context.Background()

	status, err := c.Status(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int64(12), status.Height)

	chainID, err := c.ChainID(ctx)
	assert.Nil(t, err)
	assert.Equal(t, "trade-chain", chainID)

	broken := NewClient(&fakeConn{err: errors.Wrap(errors.ErrHuman, "down")})
	_, err = broken.Status(ctx)
	if !errors.ErrNetwork.Is(err) {
		t.Fatalf("want network error, got %+v", err)
	}
}

func TestOrder(t *testing.T) {
	importer := weavetest.NewCondition().Address()
	id := weavetest.SequenceID(3)
	order := testOrder(importer)

	conn := &fakeConn{}
	conn.put(t, "/orders", id, [][]byte{append([]byte("order:"), id...)}, order)
	c := NewClient(conn)

	got, err := c.Order(context.Background(), id)
	assert.Nil(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, order.State, got.Order.State)
	assert.Equal(t, order.Address, got.Order.Address)

	_, err = c.Order(context.Background(), weavetest.SequenceID(4))
	if !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found error, got %+v", err)
	}
}

func TestOrdersByParty(t *testing.T) {
	importer := weavetest.NewCondition().Address()
	conn := &fakeConn{}
	conn.put(t, "/orders/importer", importer,
		[][]byte{weavetest.SequenceID(1), weavetest.SequenceID(2)},
		testOrder(importer), testOrder(importer))
	c := NewClient(conn)

	orders, err := c.OrdersByParty(context.Background(), "importer", importer)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(orders))
	assert.Equal(t, weavetest.SequenceID(2), orders[1].ID)

	orders, err = c.OrdersByParty(context.Background(), "exporter", importer)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(orders))

	_, err = c.OrdersByParty(context.Background(), "owner", importer)
	if !errors.ErrInput.Is(err) {
		t.Fatalf("want input error, got %+v", err)
	}
}

func TestNonce(t *testing.T) {
	addr := weavetest.NewCondition().Address()
	conn := &fakeConn{}
	conn.put(t, "/auth", addr, [][]byte{addr}, &sigs.UserData{
		Metadata: &weave.Metadata{Schema: 1},
		Sequence: 7,
	})
	c := NewClient(conn)
	ctx := context.Background()

	n := NewNonce(c, addr)
	seq, err := n.Next(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int64(7), seq)
	seq, err = n.Next(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int64(8), seq)

	seq, err = NewNonce(c, weavetest.NewCondition().Address()).Next(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestCommitTx(t *testing.T) {
	cases := map[string]struct {
		res      *ctypes.ResultBroadcastTxCommit
		wantCode uint32
	}{
		"delivered": {
			res: &ctypes.ResultBroadcastTxCommit{
				DeliverTx: abci.ResponseDeliverTx{Data: []byte{1}},
				Height:    5,
			},
		},
		"check failed": {
			res: &ctypes.ResultBroadcastTxCommit{
				CheckTx: abci.ResponseCheckTx{Code: 4, Log: "unauthorized"},
			},
			wantCode: 4,
		},
		"deliver failed": {
			res: &ctypes.ResultBroadcastTxCommit{
				DeliverTx: abci.ResponseDeliverTx{Code: 1300, Log: "too early for refund"},
			},
			wantCode: 1300,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conn := &fakeConn{commit: tc.res}
			c := NewClient(conn)
			res, err := c.CommitTx(context.Background(), &fakeTx{raw: []byte("tx")})
			assert.Equal(t, 1, len(conn.sent))
			if tc.wantCode == 0 {
				assert.Nil(t, err)
				assert.Equal(t, []byte{1}, res.Data)
				assert.Equal(t, int64(5), res.Height)
				return
			}
			txErr, ok := err.(*TxError)
			if !ok {
				t.Fatalf("want TxError, got %+v", err)
			}
			assert.Equal(t, tc.wantCode, txErr.Code)
		})
	}
}

func TestSubmitTxRejected(t *testing.T) {
	conn := &fakeConn{sync: &ctypes.ResultBroadcastTx{Code: 2, Log: "bad"}}
	_, err := NewClient(conn).SubmitTx(context.Background(), &fakeTx{raw: []byte("tx")})
	if _, ok := err.(*TxError); !ok {
		t.Fatalf("want TxError, got %+v", err)
	}
}
