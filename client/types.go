package client

import (
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
)

// TransactionID is the hash used to identify the transaction
type TransactionID = cmn.HexBytes

// RequestQuery is used for the query interface to mirror the abci query interface
type RequestQuery = abci.RequestQuery

// ResponseQuery is used for the query interface to mirror the abci query interface
type ResponseQuery = abci.ResponseQuery

// CommitResult is returned once a transaction was included in a block.
type CommitResult struct {
	ID     TransactionID
	Height int64
	// Data is the result of the handler. For an order creation this is
	// the ID of the new order.
	Data []byte
}

// Status is the current status of the node we connect to.
// Latest block height is a useful info
type Status struct {
	Height     int64
	CatchingUp bool
}

// OrderResult is an order together with its ID.
type OrderResult struct {
	ID    []byte             `json:"id"`
	Order *tradeescrow.Order `json:"order"`
}
