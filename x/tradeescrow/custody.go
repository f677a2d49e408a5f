package tradeescrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/x/cash"
)

// Custody moves the escrowed amount between a party account and the order
// holding account. Each call either moves the whole amount or fails without
// any change.
type Custody interface {
	// HoldFrom moves amount from the payer into the order holding account.
	HoldFrom(db weave.KVStore, o *Order, payer weave.Address, amount coin.Coin) error
	// ReleaseTo moves amount from the order holding account to the payee.
	ReleaseTo(db weave.KVStore, o *Order, payee weave.Address, amount coin.Coin) error
	// RefundTo moves amount from the order holding account back to the
	// payer.
	RefundTo(db weave.KVStore, o *Order, payer weave.Address, amount coin.Coin) error
}

// NewCashCustody returns a custody that keeps the escrowed coins on the
// order address, using the cash extension to move them.
func NewCashCustody(mover cash.CoinMover) Custody {
	return &cashCustody{mover: mover}
}

type cashCustody struct {
	mover cash.CoinMover
}

var _ Custody = (*cashCustody)(nil)

func (c *cashCustody) HoldFrom(db weave.KVStore, o *Order, payer weave.Address, amount coin.Coin) error {
	if err := c.mover.MoveCoins(db, payer, o.Address, amount); err != nil {
		return errors.Wrap(err, "hold funds")
	}
	return nil
}

func (c *cashCustody) ReleaseTo(db weave.KVStore, o *Order, payee weave.Address, amount coin.Coin) error {
	if err := c.mover.MoveCoins(db, o.Address, payee, amount); err != nil {
		return errors.Wrap(err, "release funds")
	}
	return nil
}

func (c *cashCustody) RefundTo(db weave.KVStore, o *Order, payer weave.Address, amount coin.Coin) error {
	if err := c.mover.MoveCoins(db, o.Address, payer, amount); err != nil {
		return errors.Wrap(err, "refund funds")
	}
	return nil
}
