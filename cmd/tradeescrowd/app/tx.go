package app

import (
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
	amino "github.com/tendermint/go-amino"
)

// TxCodec encodes transactions. All messages that can be carried by a
// transaction are registered.
var TxCodec = newTxCodec()

func newTxCodec() *amino.Codec {
	c := amino.NewCodec()
	c.RegisterInterface((*weave.Msg)(nil), nil)
	c.RegisterConcrete(&cash.SendMsg{}, "cash/SendMsg", nil)
	c.RegisterConcrete(&migration.UpgradeSchemaMsg{}, "migration/UpgradeSchemaMsg", nil)
	tradeescrow.RegisterAmino(c)
	return c
}

// Tx is the transaction format of the trade escrow chain.
type Tx struct {
	Fees *cash.FeeInfo `json:"fees"`
	// Signatures are protobuf encoded sigs.StdSignature values.
	Signatures [][]byte  `json:"signatures"`
	Msg        weave.Msg `json:"msg"`

	// decoded holds parsed Signatures.
	decoded []*sigs.StdSignature
}

// TxDecoder creates a Tx and unmarshals bytes into it
func TxDecoder(bz []byte) (weave.Tx, error) {
	tx := new(Tx)
	err := tx.Unmarshal(bz)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// make sure tx fulfills all interfaces
var _ weave.Tx = (*Tx)(nil)
var _ cash.FeeTx = (*Tx)(nil)
var _ sigs.SignedTx = (*Tx)(nil)

// NewTx returns an unsigned transaction carrying msg.
func NewTx(msg weave.Msg) *Tx {
	return &Tx{Msg: msg}
}

func (tx *Tx) GetMsg() (weave.Msg, error) {
	if tx.Msg == nil {
		return nil, errors.Wrap(errors.ErrInput, "unable to decode")
	}
	return tx.Msg, nil
}

func (tx *Tx) GetFees() *cash.FeeInfo {
	return tx.Fees
}

func (tx *Tx) GetSignatures() []*sigs.StdSignature {
	return tx.decoded
}

// AddSignature appends a signature to the transaction.
func (tx *Tx) AddSignature(sig *sigs.StdSignature) error {
	raw, err := sig.Marshal()
	if err != nil {
		return errors.Wrap(err, "signature")
	}
	tx.Signatures = append(tx.Signatures, raw)
	tx.decoded = append(tx.decoded, sig)
	return nil
}

// GetSignBytes returns the bytes to sign...
func (tx *Tx) GetSignBytes() ([]byte, error) {
	// sign bytes only come from the data itself, not previous signatures
	unsigned := Tx{Fees: tx.Fees, Msg: tx.Msg}
	return unsigned.Marshal()
}

func (tx *Tx) Marshal() ([]byte, error) {
	return TxCodec.MarshalBinaryBare(tx)
}

func (tx *Tx) Unmarshal(raw []byte) error {
	if err := TxCodec.UnmarshalBinaryBare(raw, tx); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	tx.decoded = make([]*sigs.StdSignature, len(tx.Signatures))
	for i, raw := range tx.Signatures {
		var sig sigs.StdSignature
		if err := sig.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrInput, "signature %d: %s", i, err)
		}
		tx.decoded[i] = &sig
	}
	return nil
}
