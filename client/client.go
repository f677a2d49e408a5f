/*
Package client provides access to a running trade escrow node over the
tendermint RPC. It submits transactions and reads orders back from the
application state.
*/
package client

import (
	"bytes"
	"context"
	"fmt"

	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/x/sigs"
	cmn "github.com/tendermint/tendermint/libs/common"
	rpcclient "github.com/tendermint/tendermint/rpc/client"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

// Connection is the part of the tendermint RPC client used by Client.
type Connection interface {
	Status() (*ctypes.ResultStatus, error)
	Genesis() (*ctypes.ResultGenesis, error)
	BroadcastTxSync(tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error)
	BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error)
	ABCIQueryWithOptions(path string, data cmn.HexBytes, opts rpcclient.ABCIQueryOptions) (*ctypes.ResultABCIQuery, error)
}

var _ Connection = (rpcclient.Client)(nil)

// Client is a tendermint client wrapped to provide simple access to the
// trade escrow data structures.
type Client struct {
	conn Connection
}

// NewClient wraps a Client around an existing tendermint client connection.
func NewClient(conn Connection) *Client {
	return &Client{conn: conn}
}

// Status returns current height and other (subjective) status info from
// this node.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	status, err := c.conn.Status()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "status: %s", err.Error())
	}
	return &Status{
		Height:     status.SyncInfo.LatestBlockHeight,
		CatchingUp: status.SyncInfo.CatchingUp,
	}, nil
}

// ChainID returns the chain ID declared in the genesis of the node.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	gen, err := c.conn.Genesis()
	if err != nil {
		return "", errors.Wrapf(errors.ErrNetwork, "genesis: %s", err.Error())
	}
	return gen.Genesis.ChainID, nil
}

// SubmitTx will submit the tx to the mempool and return as soon as the
// check passed. The transaction is not guaranteed to be included in a block.
func (c *Client) SubmitTx(ctx context.Context, tx weave.Tx) (TransactionID, error) {
	bz, err := tx.Marshal()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMsg, "marshaling: %s", err.Error())
	}
	res, err := c.conn.BroadcastTxSync(bz)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "submit tx: %s", err.Error())
	}
	// a checktx error is handled like any other error... didn't make it into mempool... will not make it into block
	if res.Code != 0 {
		return nil, &TxError{Code: res.Code, Log: res.Log}
	}
	return res.Hash, nil
}

// CommitTx will block on both Check and Deliver, returning when it is in a
// block.
func (c *Client) CommitTx(ctx context.Context, tx weave.Tx) (*CommitResult, error) {
	bz, err := tx.Marshal()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMsg, "marshaling: %s", err.Error())
	}
	res, err := c.conn.BroadcastTxCommit(bz)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "commit tx: %s", err.Error())
	}
	if res.CheckTx.Code != 0 {
		return nil, &TxError{Code: res.CheckTx.Code, Log: res.CheckTx.Log}
	}
	if res.DeliverTx.Code != 0 {
		return nil, &TxError{Code: res.DeliverTx.Code, Log: res.DeliverTx.Log}
	}
	return &CommitResult{
		ID:     res.Hash,
		Height: res.Height,
		Data:   res.DeliverTx.Data,
	}, nil
}

// Query is meant to mirror the abci query interface exactly. Network
// failures are reported as an error response.
func (c *Client) Query(query RequestQuery) ResponseQuery {
	res, err := c.conn.ABCIQueryWithOptions(query.Path, query.Data, rpcclient.ABCIQueryOptions{Height: query.Height, Prove: query.Prove})
	// network error reported as special error code
	if err != nil {
		code, log := errors.ABCIInfo(errors.Wrap(errors.ErrNetwork, err.Error()), false)
		return ResponseQuery{
			Code: code,
			Log:  log,
		}
	}
	return res.Response
}

// models runs a query and returns all found key/value pairs.
func (c *Client) models(path string, data []byte) ([]weave.Model, error) {
	resp := c.Query(RequestQuery{Path: path, Data: data})
	if resp.Code != 0 {
		return nil, &TxError{Code: resp.Code, Log: resp.Log}
	}
	if len(resp.Value) == 0 {
		return nil, nil
	}
	var keys, vals app.ResultSet
	if err := keys.Unmarshal(resp.Key); err != nil {
		return nil, errors.Wrap(err, "keys")
	}
	if err := vals.Unmarshal(resp.Value); err != nil {
		return nil, errors.Wrap(err, "values")
	}
	models, err := app.JoinResults(&keys, &vals)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return models, nil
}

// Order returns the order with the given ID. ErrNotFound is returned if the
// order does not exist.
func (c *Client) Order(ctx context.Context, id []byte) (*OrderResult, error) {
	models, err := c.models("/orders", id)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "order %X", id)
	}
	return toOrderResult(models[0])
}

// OrdersByParty returns all orders in which the address plays the given
// role. Role is one of importer, exporter or verifier.
func (c *Client) OrdersByParty(ctx context.Context, role string, addr weave.Address) ([]*OrderResult, error) {
	switch role {
	case "importer", "exporter", "verifier":
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown role %q", role)
	}
	models, err := c.models("/orders/"+role, addr)
	if err != nil {
		return nil, err
	}
	res := make([]*OrderResult, 0, len(models))
	for _, m := range models {
		o, err := toOrderResult(m)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}

// orderKeyPrefix is prepended by the bucket to every order ID.
var orderKeyPrefix = []byte("order:")

func toOrderResult(m weave.Model) (*OrderResult, error) {
	var o tradeescrow.Order
	if err := o.Unmarshal(m.Value); err != nil {
		return nil, errors.Wrap(err, "order")
	}
	return &OrderResult{
		ID:    bytes.TrimPrefix(m.Key, orderKeyPrefix),
		Order: &o,
	}, nil
}

// Sequence returns the next sequence number that must be used to sign a
// transaction with given address. A new account starts at 0.
func (c *Client) Sequence(ctx context.Context, addr weave.Address) (int64, error) {
	models, err := c.models("/auth", addr)
	if err != nil {
		return 0, err
	}
	if len(models) == 0 {
		return 0, nil
	}
	var user sigs.UserData
	if err := user.Unmarshal(models[0].Value); err != nil {
		return 0, errors.Wrap(err, "user data")
	}
	return user.Sequence, nil
}

// TxError is returned when the node refused a transaction or a query.
type TxError struct {
	Code uint32
	Log  string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Log)
}
