package tradeescrow

import (
	"encoding/json"
	"fmt"

	"github.com/iov-one/weave/errors"
)

// OrderState is the lifecycle state of an order. The zero value is not a
// valid state and is never stored.
type OrderState int32

const (
	StateInvalid OrderState = iota
	StatePendingDeadlineApproval
	StatePendingShipment
	StatePendingExtensionApproval
	StateInTransit
	StateDelivered
	StateCompleted
	StateRefunded
	StateDisputed
)

var stateNames = map[OrderState]string{
	StateInvalid:                  "Invalid",
	StatePendingDeadlineApproval:  "PendingDeadlineApproval",
	StatePendingShipment:          "PendingShipment",
	StatePendingExtensionApproval: "PendingExtensionApproval",
	StateInTransit:                "InTransit",
	StateDelivered:                "Delivered",
	StateCompleted:                "Completed",
	StateRefunded:                 "Refunded",
	StateDisputed:                 "Disputed",
}

func (s OrderState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderState(%d)", int32(s))
}

// Validate returns an error if this is not one of the declared states.
func (s OrderState) Validate() error {
	if s <= StateInvalid || s > StateDisputed {
		return errors.Wrapf(errors.ErrState, "unknown order state %d", int32(s))
	}
	return nil
}

// IsTerminal returns true for states that an order never leaves and that
// already moved the escrowed amount out of custody.
func (s OrderState) IsTerminal() bool {
	return s == StateCompleted || s == StateRefunded
}

// ParseOrderState returns the state with the given name.
func ParseOrderState(name string) (OrderState, error) {
	for s, n := range stateNames {
		if n == name && s != StateInvalid {
			return s, nil
		}
	}
	return StateInvalid, errors.Wrapf(errors.ErrInput, "unknown order state %q", name)
}

// MarshalJSON encodes the state by its name.
func (s OrderState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both the state name and its numeric value.
func (s *OrderState) UnmarshalJSON(raw []byte) error {
	var n int32
	if err := json.Unmarshal(raw, &n); err == nil {
		*s = OrderState(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, "order state must be a name or a number")
	}
	st, err := ParseOrderState(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
