package tradeescrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
)

const (
	// pay order cost up-front
	createOrderCost      int64 = 300
	proposeDeadlineCost  int64 = 50
	approveDeadlineCost  int64 = 50
	shipGoodsCost        int64 = 50
	requestExtensionCost int64 = 50
	approveExtensionCost int64 = 50
	rejectExtensionCost  int64 = 50
	confirmDeliveryCost  int64 = 0
	refundCost           int64 = 0
	updateMetadataCost   int64 = 100
	disputeCost          int64 = 100
	resolveDisputeCost   int64 = 100
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, bank cash.CoinMover) {
	r = migration.SchemaMigratingRegistry(packageName, r)
	bucket := NewBucket()
	custody := NewCashCustody(bank)

	r.Handle(&CreateOrderMsg{}, CreateOrderHandler{auth: auth, bucket: bucket, custody: custody})
	for _, op := range operations {
		r.Handle(op.newMsg(), OrderHandler{auth: auth, bucket: bucket, custody: custody, op: op})
	}
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

// RegisterQuery will register the order bucket as "/orders".
func RegisterQuery(qr weave.QueryRouter) {
	NewBucket().Register("orders", qr)
}

// NewConfigHandler returns a handler that updates the deadline policy.
func NewConfigHandler(auth x.Authenticator) weave.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler(packageName, &conf, auth, migration.CurrentAdmin)
}

// CreateOrderHandler opens an order and moves the amount from the importer
// to the order account.
type CreateOrderHandler struct {
	auth    x.Authenticator
	bucket  orm.ModelBucket
	custody Custody
}

var _ weave.Handler = CreateOrderHandler{}

// Check just verifies it is properly formed and returns the cost of
// executing it.
func (h CreateOrderHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: createOrderCost}, nil
}

// Deliver stores a new order and holds the amount if all preconditions are
// met. The order ID is returned.
func (h CreateOrderHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, order, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	var key []byte
	err = atomically(db, func(db weave.KVStore) error {
		id, err := orderSeq.NextVal(db)
		if err != nil {
			return errors.Wrap(err, "cannot acquire key")
		}
		order.Address = Condition(id).Address()
		if err := h.custody.HoldFrom(db, order, order.Importer, *msg.Amount); err != nil {
			return err
		}
		if key, err = h.bucket.Put(db, id, order); err != nil {
			return errors.Wrap(err, "cannot store order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logTransition(ctx, key, StateInvalid, order.State)
	return &weave.DeliverResult{Data: key}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CreateOrderHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CreateOrderMsg, *Order, error) {
	var msg CreateOrderMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	// Importer must authorize this (if not set, defaults to the first signer).
	importer := msg.Importer
	if importer == nil {
		conds := h.auth.GetConditions(ctx)
		if len(conds) == 0 {
			return nil, nil, errors.Wrap(ErrUnauthorized, "importer signature required")
		}
		importer = conds[0].Address()
	} else if !h.auth.HasAddress(ctx, importer) {
		return nil, nil, errors.Wrap(ErrUnauthorized, "importer did not sign")
	}

	policy, err := loadDeadlinePolicy(db)
	if err != nil {
		return nil, nil, err
	}
	order, err := NewMachine(policy).NewOrder(importer, msg.Exporter, msg.Verifier,
		*msg.Amount, msg.ProposedDeadline, msg.CreationTime, msg.OrderMetadata.Copy())
	if err != nil {
		return nil, nil, err
	}
	return &msg, order, nil
}

// orderMsg is implemented by all messages that operate on an existing
// order.
type orderMsg interface {
	weave.Msg
	GetOrderID() []byte
}

// timedMsg is implemented by messages that carry the time of the
// operation.
type timedMsg interface {
	GetCurrentTime() weave.UnixTime
}

// clock tells which time an operation happens at.
type clock int

const (
	// blockClock uses the block time.
	blockClock clock = iota
	// callerClock uses the time declared in the message.
	callerClock
	// callerOrBlockClock uses the time declared in the message, or the
	// block time if the message time is zero.
	callerOrBlockClock
)

// settlement is the custody transfer that follows a transition.
type settlement int

const (
	settleNone settlement = iota
	settleRelease
	settleRefund
)

// operation declares how a single message changes an existing order.
type operation struct {
	cost   int64
	clock  clock
	settle settlement
	newMsg func() orderMsg
	apply  func(m *Machine, o *Order, c Call, msg orderMsg) error
}

var operations = []operation{
	{
		cost:   proposeDeadlineCost,
		clock:  blockClock,
		newMsg: func() orderMsg { return &ProposeDeadlineMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.ProposeDeadline(o, c, msg.(*ProposeDeadlineMsg).NewDeadline)
		},
	},
	{
		cost:   approveDeadlineCost,
		clock:  callerClock,
		newMsg: func() orderMsg { return &ApproveDeadlineMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.ApproveDeadline(o, c)
		},
	},
	{
		cost:   shipGoodsCost,
		clock:  blockClock,
		newMsg: func() orderMsg { return &ShipGoodsMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.ShipGoods(o, c, msg.(*ShipGoodsMsg).BillOfLadingHash)
		},
	},
	{
		cost:   requestExtensionCost,
		clock:  callerClock,
		newMsg: func() orderMsg { return &RequestExtensionMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.RequestExtension(o, c, msg.(*RequestExtensionMsg).NewDeadline)
		},
	},
	{
		cost:   approveExtensionCost,
		clock:  callerClock,
		newMsg: func() orderMsg { return &ApproveExtensionMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.ApproveExtension(o, c)
		},
	},
	{
		cost:   rejectExtensionCost,
		clock:  callerOrBlockClock,
		newMsg: func() orderMsg { return &RejectExtensionMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.RejectExtension(o, c)
		},
	},
	{
		cost:   confirmDeliveryCost,
		clock:  blockClock,
		settle: settleRelease,
		newMsg: func() orderMsg { return &ConfirmDeliveryMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.ConfirmDelivery(o, c)
		},
	},
	{
		cost:   refundCost,
		clock:  callerClock,
		settle: settleRefund,
		newMsg: func() orderMsg { return &RefundMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.Refund(o, c)
		},
	},
	{
		cost:   updateMetadataCost,
		clock:  callerClock,
		newMsg: func() orderMsg { return &UpdateMetadataMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.UpdateMetadata(o, c, msg.(*UpdateMetadataMsg).OrderMetadata)
		},
	},
	{
		cost:   disputeCost,
		clock:  callerClock,
		newMsg: func() orderMsg { return &DisputeMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.Dispute(o, c, msg.(*DisputeMsg).Reason)
		},
	},
	{
		cost:   resolveDisputeCost,
		clock:  callerClock,
		newMsg: func() orderMsg { return &ResolveDisputeMsg{} },
		apply: func(m *Machine, o *Order, c Call, msg orderMsg) error {
			return m.ResolveDispute(o, c, msg.(*ResolveDisputeMsg).Resolution)
		},
	},
}

// OrderHandler applies a single operation to an existing order.
type OrderHandler struct {
	auth    x.Authenticator
	bucket  orm.ModelBucket
	custody Custody
	op      operation
}

var _ weave.Handler = OrderHandler{}

// Check validates the transition without storing its result and returns
// the cost of executing it.
func (h OrderHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, _, err := h.transition(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: h.op.cost}, nil
}

// Deliver applies the transition, moves the funds when the transition
// requires it and stores the order. Nothing is written if any of these
// steps fails.
func (h OrderHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	key, before, order, err := h.transition(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	err = atomically(db, func(db weave.KVStore) error {
		switch h.op.settle {
		case settleRelease:
			if err := h.custody.ReleaseTo(db, order, order.Exporter, *order.Amount); err != nil {
				return err
			}
			if err := CompleteDelivery(order, order.LastUpdated); err != nil {
				return err
			}
		case settleRefund:
			if err := h.custody.RefundTo(db, order, order.Importer, *order.Amount); err != nil {
				return err
			}
		}
		if _, err := h.bucket.Put(db, key, order); err != nil {
			return errors.Wrap(err, "cannot store order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logTransition(ctx, key, before, order.State)
	return &weave.DeliverResult{Data: key}, nil
}

// transition loads the order and applies the operation to its copy. It
// returns the order key, the state before the transition and the updated
// copy.
func (h OrderHandler) transition(ctx weave.Context, db weave.KVStore, tx weave.Tx) ([]byte, OrderState, *Order, error) {
	msg := h.op.newMsg()
	if err := weave.LoadMsg(tx, msg); err != nil {
		return nil, StateInvalid, nil, errors.Wrap(err, "load msg")
	}
	key := msg.GetOrderID()

	stored, err := loadOrder(h.bucket, db, key)
	if err != nil {
		return nil, StateInvalid, nil, err
	}
	now, err := operationTime(ctx, h.op.clock, msg)
	if err != nil {
		return nil, StateInvalid, nil, err
	}
	policy, err := loadDeadlinePolicy(db)
	if err != nil {
		return nil, StateInvalid, nil, err
	}

	order := stored.Copy().(*Order)
	call := Call{Signers: x.GetAddresses(ctx, h.auth), Now: now}
	if err := h.op.apply(NewMachine(policy), order, call, msg); err != nil {
		return nil, StateInvalid, nil, err
	}
	return key, stored.State, order, nil
}

// operationTime returns the time an operation happens at, according to the
// clock of the operation.
func operationTime(ctx weave.Context, c clock, msg orderMsg) (weave.UnixTime, error) {
	var declared weave.UnixTime
	if tm, ok := msg.(timedMsg); ok {
		declared = tm.GetCurrentTime()
	}

	switch c {
	case callerClock:
		// Declared time is not compared with the block time. It is
		// logged so that the difference can be audited.
		if blockNow, err := weave.BlockTime(ctx); err == nil {
			weave.GetLogger(ctx).Debug("caller declared time",
				"path", msg.Path(),
				"declared", declared,
				"block", weave.AsUnixTime(blockNow))
		}
		return declared, nil
	case callerOrBlockClock:
		if declared != 0 {
			return declared, nil
		}
	}

	blockNow, err := weave.BlockTime(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "block time")
	}
	return weave.AsUnixTime(blockNow), nil
}

// loadOrder loads an order, returns error if not present.
func loadOrder(bucket orm.ModelBucket, db weave.ReadOnlyKVStore, id []byte) (*Order, error) {
	var o Order
	if err := bucket.One(db, id, &o); err != nil {
		return nil, errors.Wrapf(err, "order %X", id)
	}
	return &o, nil
}

// atomically executes fn on a cache of db. Cache content is written to db
// only if fn succeeds.
func atomically(db weave.KVStore, fn func(weave.KVStore) error) error {
	cstore, ok := db.(weave.CacheableKVStore)
	if !ok {
		return fn(db)
	}
	cache := cstore.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "writing savepoint")
	}
	return nil
}

func logTransition(ctx weave.Context, key []byte, from, to OrderState) {
	weave.GetLogger(ctx).Debug("order transition",
		"order", key,
		"from", from.String(),
		"to", to.String())
}

func (m *ProposeDeadlineMsg) GetOrderID() []byte  { return m.OrderID }
func (m *ApproveDeadlineMsg) GetOrderID() []byte  { return m.OrderID }
func (m *ShipGoodsMsg) GetOrderID() []byte        { return m.OrderID }
func (m *RequestExtensionMsg) GetOrderID() []byte { return m.OrderID }
func (m *ApproveExtensionMsg) GetOrderID() []byte { return m.OrderID }
func (m *RejectExtensionMsg) GetOrderID() []byte  { return m.OrderID }
func (m *ConfirmDeliveryMsg) GetOrderID() []byte  { return m.OrderID }
func (m *RefundMsg) GetOrderID() []byte           { return m.OrderID }
func (m *UpdateMetadataMsg) GetOrderID() []byte   { return m.OrderID }
func (m *DisputeMsg) GetOrderID() []byte          { return m.OrderID }
func (m *ResolveDisputeMsg) GetOrderID() []byte   { return m.OrderID }

func (m *ApproveDeadlineMsg) GetCurrentTime() weave.UnixTime  { return m.CurrentTime }
func (m *RequestExtensionMsg) GetCurrentTime() weave.UnixTime { return m.CurrentTime }
func (m *ApproveExtensionMsg) GetCurrentTime() weave.UnixTime { return m.CurrentTime }
func (m *RejectExtensionMsg) GetCurrentTime() weave.UnixTime  { return m.CurrentTime }
func (m *RefundMsg) GetCurrentTime() weave.UnixTime           { return m.CurrentTime }
func (m *UpdateMetadataMsg) GetCurrentTime() weave.UnixTime   { return m.CurrentTime }
func (m *DisputeMsg) GetCurrentTime() weave.UnixTime          { return m.CurrentTime }
func (m *ResolveDisputeMsg) GetCurrentTime() weave.UnixTime   { return m.CurrentTime }
