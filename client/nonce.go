package client

import (
	"context"
	"sync"

	"github.com/iov-one/weave"
)

// Nonce has a client/address pair, queries for the nonce
// and caches recent nonce locally to quickly sign
type Nonce struct {
	mutex     sync.Mutex
	client    *Client
	addr      weave.Address
	nonce     int64
	fromQuery bool
}

// NewNonce creates a nonce for a client / address pair.
// Call Query to force a query, Next to use cache if possible
func NewNonce(client *Client, addr weave.Address) *Nonce {
	return &Nonce{client: client, addr: addr}
}

// Query always queries the blockchain for the next nonce
func (n *Nonce) Query(ctx context.Context) (int64, error) {
	seq, err := n.client.Sequence(ctx, n.addr)
	if err != nil {
		return 0, err
	}
	n.mutex.Lock()
	n.nonce = seq
	n.fromQuery = true
	n.mutex.Unlock()
	return seq, nil
}

// Next will use a cached value if present, otherwise Query.
// It will always increment by 1, assuming last nonce
// was properly used.
func (n *Nonce) Next(ctx context.Context) (int64, error) {
	n.mutex.Lock()
	fresh := !n.fromQuery && n.nonce == 0
	n.mutex.Unlock()
	if fresh {
		return n.Query(ctx)
	}
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.nonce++
	n.fromQuery = false
	return n.nonce, nil
}
