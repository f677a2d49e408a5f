package tradeescrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &CreateOrderMsg{}, migration.NoModification)
	migration.MustRegister(1, &ProposeDeadlineMsg{}, migration.NoModification)
	migration.MustRegister(1, &ApproveDeadlineMsg{}, migration.NoModification)
	migration.MustRegister(1, &ShipGoodsMsg{}, migration.NoModification)
	migration.MustRegister(1, &RequestExtensionMsg{}, migration.NoModification)
	migration.MustRegister(1, &ApproveExtensionMsg{}, migration.NoModification)
	migration.MustRegister(1, &RejectExtensionMsg{}, migration.NoModification)
	migration.MustRegister(1, &ConfirmDeliveryMsg{}, migration.NoModification)
	migration.MustRegister(1, &RefundMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateMetadataMsg{}, migration.NoModification)
	migration.MustRegister(1, &DisputeMsg{}, migration.NoModification)
	migration.MustRegister(1, &ResolveDisputeMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

const (
	pathCreateOrderMsg         = "tradeescrow/create_order"
	pathProposeDeadlineMsg     = "tradeescrow/propose_deadline"
	pathApproveDeadlineMsg     = "tradeescrow/approve_deadline"
	pathShipGoodsMsg           = "tradeescrow/ship_goods"
	pathRequestExtensionMsg    = "tradeescrow/request_extension"
	pathApproveExtensionMsg    = "tradeescrow/approve_extension"
	pathRejectExtensionMsg     = "tradeescrow/reject_extension"
	pathConfirmDeliveryMsg     = "tradeescrow/confirm_delivery"
	pathRefundMsg              = "tradeescrow/refund"
	pathUpdateMetadataMsg      = "tradeescrow/update_metadata"
	pathDisputeMsg             = "tradeescrow/dispute"
	pathResolveDisputeMsg      = "tradeescrow/resolve_dispute"
	pathUpdateConfigurationMsg = "tradeescrow/update_configuration"

	// maxNoteInput limits the dispute reason and resolution accepted in a
	// message. Only a prefix is recorded in the history.
	maxNoteInput = 512
)

var (
	_ weave.Msg = (*CreateOrderMsg)(nil)
	_ weave.Msg = (*ProposeDeadlineMsg)(nil)
	_ weave.Msg = (*ApproveDeadlineMsg)(nil)
	_ weave.Msg = (*ShipGoodsMsg)(nil)
	_ weave.Msg = (*RequestExtensionMsg)(nil)
	_ weave.Msg = (*ApproveExtensionMsg)(nil)
	_ weave.Msg = (*RejectExtensionMsg)(nil)
	_ weave.Msg = (*ConfirmDeliveryMsg)(nil)
	_ weave.Msg = (*RefundMsg)(nil)
	_ weave.Msg = (*UpdateMetadataMsg)(nil)
	_ weave.Msg = (*DisputeMsg)(nil)
	_ weave.Msg = (*ResolveDisputeMsg)(nil)
	_ weave.Msg = (*UpdateConfigurationMsg)(nil)
)

func (CreateOrderMsg) Path() string         { return pathCreateOrderMsg }
func (ProposeDeadlineMsg) Path() string     { return pathProposeDeadlineMsg }
func (ApproveDeadlineMsg) Path() string     { return pathApproveDeadlineMsg }
func (ShipGoodsMsg) Path() string           { return pathShipGoodsMsg }
func (RequestExtensionMsg) Path() string    { return pathRequestExtensionMsg }
func (ApproveExtensionMsg) Path() string    { return pathApproveExtensionMsg }
func (RejectExtensionMsg) Path() string     { return pathRejectExtensionMsg }
func (ConfirmDeliveryMsg) Path() string     { return pathConfirmDeliveryMsg }
func (RefundMsg) Path() string              { return pathRefundMsg }
func (UpdateMetadataMsg) Path() string      { return pathUpdateMetadataMsg }
func (DisputeMsg) Path() string             { return pathDisputeMsg }
func (ResolveDisputeMsg) Path() string      { return pathResolveDisputeMsg }
func (UpdateConfigurationMsg) Path() string { return pathUpdateConfigurationMsg }

func (m *CreateOrderMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	// Importer is optional, main signer is used when not set.
	if len(m.Importer) != 0 {
		errs = errors.AppendField(errs, "Importer", m.Importer.Validate())
	}
	errs = errors.AppendField(errs, "Exporter", m.Exporter.Validate())
	errs = errors.AppendField(errs, "Verifier", m.Verifier.Validate())
	if m.Exporter.Equals(m.Verifier) {
		errs = errors.AppendField(errs, "Verifier",
			errors.Wrap(errors.ErrInput, "must not be the exporter"))
	}
	switch {
	case m.Amount == nil:
		errs = errors.AppendField(errs, "Amount", errors.ErrEmpty)
	case !m.Amount.IsPositive():
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be positive"))
	default:
		errs = errors.AppendField(errs, "Amount", m.Amount.Validate())
	}
	errs = errors.AppendField(errs, "ProposedDeadline", m.ProposedDeadline.Validate())
	errs = errors.AppendField(errs, "CreationTime", m.CreationTime.Validate())
	errs = errors.AppendField(errs, "OrderMetadata", m.OrderMetadata.Validate())
	return errs
}

func (m *ProposeDeadlineMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	if m.NewDeadline == 0 {
		errs = errors.AppendField(errs, "NewDeadline", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "NewDeadline", m.NewDeadline.Validate())
	}
	return errs
}

func (m *ApproveDeadlineMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *ShipGoodsMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	errs = errors.AppendField(errs, "BillOfLadingHash", validateBillOfLadingHash(m.BillOfLadingHash))
	return errs
}

func (m *RequestExtensionMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	if m.NewDeadline == 0 {
		errs = errors.AppendField(errs, "NewDeadline", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "NewDeadline", m.NewDeadline.Validate())
	}
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *ApproveExtensionMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *RejectExtensionMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	// Zero means the block time is used.
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *ConfirmDeliveryMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	return errs
}

func (m *RefundMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *UpdateMetadataMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	if m.OrderMetadata == nil {
		errs = errors.AppendField(errs, "OrderMetadata", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "OrderMetadata", m.OrderMetadata.Validate())
	}
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *DisputeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	errs = errors.AppendField(errs, "Reason", validateNote(m.Reason))
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

func (m *ResolveDisputeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	errs = errors.AppendField(errs, "OrderID", validateOrderID(m.OrderID))
	errs = errors.AppendField(errs, "Resolution", validateNote(m.Resolution))
	errs = errors.AppendField(errs, "CurrentTime", m.CurrentTime.Validate())
	return errs
}

// Validate will skip any zero fields and validate the set ones.
func (m *UpdateConfigurationMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", m.Metadata.Validate())
	if m.Patch == nil {
		return errors.AppendField(errs, "Patch", errors.ErrEmpty)
	}
	c := m.Patch
	if len(c.Owner) != 0 {
		errs = errors.AppendField(errs, "Patch.Owner", c.Owner.Validate())
	}
	if c.MinDeadline < 0 {
		errs = errors.AppendField(errs, "Patch.MinDeadline",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	if c.MaxDeadline < 0 {
		errs = errors.AppendField(errs, "Patch.MaxDeadline",
			errors.Wrap(errors.ErrInput, "must not be negative"))
	}
	return errs
}

func validateOrderID(id []byte) error {
	if len(id) != 8 {
		return errors.Wrapf(errors.ErrInput, "order id must be 8 bytes: %X", id)
	}
	return nil
}

func validateBillOfLadingHash(h []byte) error {
	if len(h) != billOfLadingHashSize {
		return errors.Wrapf(errors.ErrInput, "must be %d bytes", billOfLadingHashSize)
	}
	if isZeroHash(h) {
		return errors.Wrap(errors.ErrInput, "must not be all zero")
	}
	return nil
}

func validateNote(s string) error {
	if len(s) == 0 {
		return errors.ErrEmpty
	}
	if len(s) > maxNoteInput {
		return errors.Wrapf(errors.ErrInput, "longer than %d", maxNoteInput)
	}
	return nil
}

func (m *CreateOrderMsg) Marshal() ([]byte, error)         { return cdc.MarshalBinaryBare(m) }
func (m *ProposeDeadlineMsg) Marshal() ([]byte, error)     { return cdc.MarshalBinaryBare(m) }
func (m *ApproveDeadlineMsg) Marshal() ([]byte, error)     { return cdc.MarshalBinaryBare(m) }
func (m *ShipGoodsMsg) Marshal() ([]byte, error)           { return cdc.MarshalBinaryBare(m) }
func (m *RequestExtensionMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *ApproveExtensionMsg) Marshal() ([]byte, error)    { return cdc.MarshalBinaryBare(m) }
func (m *RejectExtensionMsg) Marshal() ([]byte, error)     { return cdc.MarshalBinaryBare(m) }
func (m *ConfirmDeliveryMsg) Marshal() ([]byte, error)     { return cdc.MarshalBinaryBare(m) }
func (m *RefundMsg) Marshal() ([]byte, error)              { return cdc.MarshalBinaryBare(m) }
func (m *UpdateMetadataMsg) Marshal() ([]byte, error)      { return cdc.MarshalBinaryBare(m) }
func (m *DisputeMsg) Marshal() ([]byte, error)             { return cdc.MarshalBinaryBare(m) }
func (m *ResolveDisputeMsg) Marshal() ([]byte, error)      { return cdc.MarshalBinaryBare(m) }
func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) { return cdc.MarshalBinaryBare(m) }

func (m *CreateOrderMsg) Unmarshal(raw []byte) error         { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *ProposeDeadlineMsg) Unmarshal(raw []byte) error     { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *ApproveDeadlineMsg) Unmarshal(raw []byte) error     { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *ShipGoodsMsg) Unmarshal(raw []byte) error           { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *RequestExtensionMsg) Unmarshal(raw []byte) error    { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *ApproveExtensionMsg) Unmarshal(raw []byte) error    { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *RejectExtensionMsg) Unmarshal(raw []byte) error     { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *ConfirmDeliveryMsg) Unmarshal(raw []byte) error     { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *RefundMsg) Unmarshal(raw []byte) error              { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *UpdateMetadataMsg) Unmarshal(raw []byte) error      { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *DisputeMsg) Unmarshal(raw []byte) error             { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *ResolveDisputeMsg) Unmarshal(raw []byte) error      { return cdc.UnmarshalBinaryBare(raw, m) }
func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error { return cdc.UnmarshalBinaryBare(raw, m) }

func (m *CreateOrderMsg) GetMetadata() *weave.Metadata         { return m.Metadata }
func (m *ProposeDeadlineMsg) GetMetadata() *weave.Metadata     { return m.Metadata }
func (m *ApproveDeadlineMsg) GetMetadata() *weave.Metadata     { return m.Metadata }
func (m *ShipGoodsMsg) GetMetadata() *weave.Metadata           { return m.Metadata }
func (m *RequestExtensionMsg) GetMetadata() *weave.Metadata    { return m.Metadata }
func (m *ApproveExtensionMsg) GetMetadata() *weave.Metadata    { return m.Metadata }
func (m *RejectExtensionMsg) GetMetadata() *weave.Metadata     { return m.Metadata }
func (m *ConfirmDeliveryMsg) GetMetadata() *weave.Metadata     { return m.Metadata }
func (m *RefundMsg) GetMetadata() *weave.Metadata              { return m.Metadata }
func (m *UpdateMetadataMsg) GetMetadata() *weave.Metadata      { return m.Metadata }
func (m *DisputeMsg) GetMetadata() *weave.Metadata             { return m.Metadata }
func (m *ResolveDisputeMsg) GetMetadata() *weave.Metadata      { return m.Metadata }
func (m *UpdateConfigurationMsg) GetMetadata() *weave.Metadata { return m.Metadata }
