package tradeescrow

import (
	"bytes"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
)

// Machine applies order transitions. All guards of a transition are checked
// before the order is modified, so a failed transition leaves the order
// untouched.
//
// Machine never moves funds. Transitions that require a custody transfer
// (creation, delivery confirmation and refund) must be followed by the
// transfer, and the result must be discarded if the transfer fails.
type Machine struct {
	Policy DeadlinePolicy
}

// NewMachine returns a machine validating deadlines with the given policy.
func NewMachine(p DeadlinePolicy) *Machine {
	return &Machine{Policy: p}
}

// Call describes who performs a transition and at what time.
type Call struct {
	// Signers are the authenticated addresses of the caller.
	Signers []weave.Address
	// Now is the time the transition happens at. Depending on the
	// operation this is either the block time or a caller supplied value.
	Now weave.UnixTime
}

// NewOrder returns a new order waiting for the deadline approval. Returned
// order has no address assigned.
func (m *Machine) NewOrder(
	importer, exporter, verifier weave.Address,
	amount coin.Coin,
	proposedDeadline, createdAt weave.UnixTime,
	meta *OrderMetadata,
) (*Order, error) {
	if err := validateParties(importer, exporter, verifier); err != nil {
		return nil, err
	}
	if err := m.Policy.Validate(proposedDeadline, createdAt); err != nil {
		return nil, errors.Wrap(err, "proposed deadline")
	}
	o := &Order{
		Metadata:         &weave.Metadata{Schema: 1},
		Importer:         importer,
		Exporter:         exporter,
		Verifier:         verifier,
		Amount:           &amount,
		State:            StatePendingDeadlineApproval,
		CreatedAt:        createdAt,
		ProposedDeadline: proposedDeadline,
		BillOfLadingHash: make([]byte, billOfLadingHashSize),
		OrderMetadata:    meta,
	}
	o.AppendHistory(createdAt, o.State, "Order created")
	return o, nil
}

// ProposeDeadline replaces the proposed deadline. Any previous approval is
// revoked.
func (m *Machine) ProposeDeadline(o *Order, c Call, deadline weave.UnixTime) error {
	if err := requireRole(o, c, IsExporter, "exporter"); err != nil {
		return err
	}
	if err := requireState(o, StatePendingDeadlineApproval); err != nil {
		return err
	}
	if err := m.Policy.Validate(deadline, c.Now); err != nil {
		return err
	}

	o.DeadlineApproved = false
	o.ApprovedDeadline = 0
	o.ProposedDeadline = deadline
	o.AppendHistory(c.Now, o.State, "Deadline proposed")
	return nil
}

// ApproveDeadline ratifies the proposed deadline. The approved deadline keeps
// the proposed duration, counted from the creation time, but is anchored at
// the approval time.
func (m *Machine) ApproveDeadline(o *Order, c Call) error {
	if err := requireRole(o, c, IsImporter, "importer"); err != nil {
		return err
	}
	if err := requireState(o, StatePendingDeadlineApproval); err != nil {
		return err
	}

	duration := o.ProposedDeadline - o.CreatedAt
	o.ApprovedDeadline = c.Now + duration
	o.DeadlineApproved = true
	o.State = StatePendingShipment
	o.AppendHistory(c.Now, o.State, "Deadline approved")
	return nil
}

// ShipGoods records the bill of lading and marks the goods as in transit.
func (m *Machine) ShipGoods(o *Order, c Call, billOfLadingHash []byte) error {
	if err := requireRole(o, c, IsExporter, "exporter"); err != nil {
		return err
	}
	if err := requireState(o, StatePendingShipment); err != nil {
		return err
	}
	if err := requireDeadlineNotPassed(o, c.Now); err != nil {
		return err
	}
	if err := validateBillOfLadingHash(billOfLadingHash); err != nil {
		return err
	}

	o.BillOfLadingHash = append([]byte(nil), billOfLadingHash...)
	o.State = StateInTransit
	o.AppendHistory(c.Now, o.State, "Goods shipped")
	return nil
}

// RequestExtension asks the importer to push the approved deadline.
func (m *Machine) RequestExtension(o *Order, c Call, deadline weave.UnixTime) error {
	if err := requireRole(o, c, IsExporter, "exporter"); err != nil {
		return err
	}
	if o.ExtensionRequested {
		return errors.Wrapf(ErrExtensionAlreadyRequested, "extension to %d is pending", o.ExtensionDeadline)
	}
	if err := requireState(o, StatePendingShipment, StateInTransit); err != nil {
		return err
	}
	if err := requireDeadlineNotPassed(o, c.Now); err != nil {
		return err
	}
	if err := m.Policy.ValidateExtension(deadline, c.Now, o.ApprovedDeadline); err != nil {
		return err
	}

	o.ExtensionRequested = true
	o.ExtensionDeadline = deadline
	o.State = StatePendingExtensionApproval
	o.AppendHistory(c.Now, o.State, "Deadline extension requested")
	return nil
}

// ApproveExtension accepts the requested extension as the new approved
// deadline.
func (m *Machine) ApproveExtension(o *Order, c Call) error {
	if err := checkPendingExtension(o, c); err != nil {
		return err
	}

	o.ApprovedDeadline = o.ExtensionDeadline
	clearExtension(o)
	o.State = resumeState(o)
	o.AppendHistory(c.Now, o.State, "Deadline extension approved")
	return nil
}

// RejectExtension discards the requested extension. The approved deadline
// is not changed.
func (m *Machine) RejectExtension(o *Order, c Call) error {
	if err := checkPendingExtension(o, c); err != nil {
		return err
	}

	clearExtension(o)
	o.State = resumeState(o)
	o.AppendHistory(c.Now, o.State, "Deadline extension rejected")
	return nil
}

func checkPendingExtension(o *Order, c Call) error {
	if err := requireRole(o, c, IsImporter, "importer"); err != nil {
		return err
	}
	if err := requireState(o, StatePendingExtensionApproval); err != nil {
		return err
	}
	if !o.ExtensionRequested {
		return errors.Wrap(ErrExtensionRequestNotFound, "no pending extension")
	}
	return nil
}

// resumeState returns the state an order returns to once the extension
// negotiation is over.
func resumeState(o *Order) OrderState {
	if isShipped(o) {
		return StateInTransit
	}
	return StatePendingShipment
}

// ConfirmDelivery marks the goods as delivered. It must be followed by the
// release of the funds to the exporter and a call to CompleteDelivery.
func (m *Machine) ConfirmDelivery(o *Order, c Call) error {
	if err := requireRole(o, c, IsVerifierOrImporter, "verifier or importer"); err != nil {
		return err
	}
	if err := requireState(o, StateInTransit); err != nil {
		return err
	}
	if err := requireDeadlineNotPassed(o, c.Now); err != nil {
		return err
	}

	o.State = StateDelivered
	o.AppendHistory(c.Now, o.State, "Delivery confirmed")
	return nil
}

// CompleteDelivery closes a delivered order once the funds were released to
// the exporter.
func CompleteDelivery(o *Order, at weave.UnixTime) error {
	if err := requireState(o, StateDelivered); err != nil {
		return err
	}
	o.State = StateCompleted
	o.AppendHistory(at, o.State, "Funds released to exporter")
	return nil
}

// Refund closes an order whose approved deadline has passed. Anyone can
// request a refund. It must be followed by the return of the funds to the
// importer.
func (m *Machine) Refund(o *Order, c Call) error {
	if o.State.IsTerminal() {
		return errors.Wrapf(ErrInvalidState, "order is %s", o.State)
	}
	if !o.DeadlineApproved {
		return errors.Wrap(ErrDeadlineNotApproved, "refund requires an approved deadline")
	}
	if c.Now <= o.ApprovedDeadline {
		return errors.Wrapf(ErrTooEarlyForRefund, "deadline %d did not pass at %d", o.ApprovedDeadline, c.Now)
	}

	clearExtension(o)
	o.State = StateRefunded
	o.AppendHistory(c.Now, o.State, "Refunded after deadline")
	return nil
}

// UpdateMetadata replaces the descriptive information of an order. The
// order state is not changed.
func (m *Machine) UpdateMetadata(o *Order, c Call, meta *OrderMetadata) error {
	if err := requireRole(o, c, IsImporterOrExporter, "importer or exporter"); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return errors.Wrap(err, "order metadata")
	}

	o.OrderMetadata = meta.Copy()
	o.AppendHistory(c.Now, o.State, "Metadata updated")
	return nil
}

// Dispute freezes an order until the verifier resolves it. The interrupted
// state is not remembered.
func (m *Machine) Dispute(o *Order, c Call, reason string) error {
	if err := requireRole(o, c, IsImporterOrExporter, "importer or exporter"); err != nil {
		return err
	}
	if o.State.IsTerminal() || o.State == StateDisputed {
		return errors.Wrapf(ErrInvalidState, "order is %s", o.State)
	}

	clearExtension(o)
	o.State = StateDisputed
	o.AppendHistory(c.Now, o.State, "Order disputed: "+truncate(reason, maxNoteLength))
	return nil
}

// ResolveDispute closes a disputed order. A resolved order is always
// completed and no funds are moved.
func (m *Machine) ResolveDispute(o *Order, c Call, resolution string) error {
	if err := requireRole(o, c, IsVerifier, "verifier"); err != nil {
		return err
	}
	if err := requireState(o, StateDisputed); err != nil {
		return err
	}

	o.State = StateCompleted
	o.AppendHistory(c.Now, o.State, "Dispute resolved: "+truncate(resolution, maxNoteLength))
	return nil
}

// requireRole fails with ErrUnauthorized unless guard accepts the signers
// of the call.
func requireRole(o *Order, c Call, guard Guard, role string) error {
	if !guard(c.Signers, o) {
		return errors.Wrapf(ErrUnauthorized, "%s signature required", role)
	}
	return nil
}

func requireState(o *Order, allowed ...OrderState) error {
	for _, s := range allowed {
		if o.State == s {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidState, "order is %s", o.State)
}

// requireDeadlineNotPassed returns an error unless the deadline is approved
// and now is not after it.
func requireDeadlineNotPassed(o *Order, now weave.UnixTime) error {
	if !o.DeadlineApproved {
		return errors.Wrap(ErrDeadlineNotApproved, "deadline must be approved first")
	}
	if now > o.ApprovedDeadline {
		return errors.Wrapf(ErrDeadlinePassed, "deadline %d passed at %d", o.ApprovedDeadline, now)
	}
	return nil
}

func clearExtension(o *Order) {
	o.ExtensionRequested = false
	o.ExtensionDeadline = 0
}

// isShipped returns true if the order carries a bill of lading hash.
func isShipped(o *Order) bool {
	return len(o.BillOfLadingHash) != 0 && !isZeroHash(o.BillOfLadingHash)
}

func isZeroHash(h []byte) bool {
	return bytes.Count(h, []byte{0}) == len(h)
}

func validateParties(importer, exporter, verifier weave.Address) error {
	var errs error
	errs = errors.AppendField(errs, "Importer", importer.Validate())
	errs = errors.AppendField(errs, "Exporter", exporter.Validate())
	errs = errors.AppendField(errs, "Verifier", verifier.Validate())
	if errs != nil {
		return errs
	}
	if importer.Equals(exporter) || importer.Equals(verifier) || exporter.Equals(verifier) {
		return errors.Wrap(errors.ErrInput, "importer, exporter and verifier must be distinct")
	}
	return nil
}
