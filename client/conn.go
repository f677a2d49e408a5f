package client

import (
	rpcclient "github.com/tendermint/tendermint/rpc/client"
)

// NewHTTPConnection takes a URL and sends all requests to the remote node
func NewHTTPConnection(remote string) *rpcclient.HTTP {
	return rpcclient.NewHTTP(remote, "/websocket")
}
