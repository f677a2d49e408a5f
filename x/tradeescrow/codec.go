package tradeescrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	amino "github.com/tendermint/go-amino"
)

// cdc serializes all entities and messages declared by this package. Types
// are encoded as bare amino structures, without a type prefix. Registration
// of the message types, required to embed them in a transaction, is done by
// RegisterAmino.
var cdc = amino.NewCodec()

// RegisterAmino registers all messages of this package as concrete
// implementations of the weave.Msg interface. The weave.Msg interface must
// be registered with the given codec by the caller.
func RegisterAmino(c *amino.Codec) {
	c.RegisterConcrete(&CreateOrderMsg{}, "tradeescrow/CreateOrderMsg", nil)
	c.RegisterConcrete(&ProposeDeadlineMsg{}, "tradeescrow/ProposeDeadlineMsg", nil)
	c.RegisterConcrete(&ApproveDeadlineMsg{}, "tradeescrow/ApproveDeadlineMsg", nil)
	c.RegisterConcrete(&ShipGoodsMsg{}, "tradeescrow/ShipGoodsMsg", nil)
	c.RegisterConcrete(&RequestExtensionMsg{}, "tradeescrow/RequestExtensionMsg", nil)
	c.RegisterConcrete(&ApproveExtensionMsg{}, "tradeescrow/ApproveExtensionMsg", nil)
	c.RegisterConcrete(&RejectExtensionMsg{}, "tradeescrow/RejectExtensionMsg", nil)
	c.RegisterConcrete(&ConfirmDeliveryMsg{}, "tradeescrow/ConfirmDeliveryMsg", nil)
	c.RegisterConcrete(&RefundMsg{}, "tradeescrow/RefundMsg", nil)
	c.RegisterConcrete(&UpdateMetadataMsg{}, "tradeescrow/UpdateMetadataMsg", nil)
	c.RegisterConcrete(&DisputeMsg{}, "tradeescrow/DisputeMsg", nil)
	c.RegisterConcrete(&ResolveDisputeMsg{}, "tradeescrow/ResolveDisputeMsg", nil)
	c.RegisterConcrete(&UpdateConfigurationMsg{}, "tradeescrow/UpdateConfigurationMsg", nil)
}

// Order is a single escrowed trade between an importer, an exporter and a
// verifier.
type Order struct {
	Metadata *weave.Metadata `json:"metadata"`
	// Importer pays for the goods. It is the creator of the order.
	Importer weave.Address `json:"importer"`
	// Exporter is paid once the delivery is confirmed.
	Exporter weave.Address `json:"exporter"`
	// Verifier confirms delivery and resolves disputes.
	Verifier weave.Address `json:"verifier"`
	// Amount is held by the order account until released or refunded.
	Amount *coin.Coin `json:"amount"`
	State  OrderState `json:"state"`

	CreatedAt        weave.UnixTime `json:"created_at"`
	ProposedDeadline weave.UnixTime `json:"proposed_deadline"`
	ApprovedDeadline weave.UnixTime `json:"approved_deadline"`
	DeadlineApproved bool           `json:"deadline_approved"`

	ExtensionRequested bool           `json:"extension_requested"`
	ExtensionDeadline  weave.UnixTime `json:"extension_deadline"`

	// BillOfLadingHash is set when the goods are shipped. An empty or all
	// zero value means the goods were not shipped yet.
	BillOfLadingHash []byte `json:"bill_of_lading_hash"`

	History       []*HistoryEntry `json:"history"`
	OrderMetadata *OrderMetadata  `json:"order_metadata"`
	LastUpdated   weave.UnixTime  `json:"last_updated"`

	// Address is the custody account holding the escrowed amount.
	Address weave.Address `json:"address"`
}

// HistoryEntry is a single audit record of an order.
type HistoryEntry struct {
	Timestamp   weave.UnixTime `json:"timestamp"`
	State       OrderState     `json:"state"`
	Description string         `json:"description"`
}

// OrderMetadata is descriptive information attached to an order. No state
// transition depends on it.
type OrderMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}

// Configuration is the deadline policy of this extension, stored with gconf.
type Configuration struct {
	Metadata *weave.Metadata `json:"metadata"`
	// Owner is allowed to update the configuration.
	Owner weave.Address `json:"owner"`
	// MinDeadline is the shortest accepted distance between a deadline
	// and the time it is proposed at.
	MinDeadline weave.UnixDuration `json:"min_deadline"`
	// MaxDeadline is the longest accepted distance between a deadline and
	// the time it is proposed at.
	MaxDeadline weave.UnixDuration `json:"max_deadline"`
}

func (o *Order) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(o)
}

func (o *Order) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, o)
}

func (o *Order) GetMetadata() *weave.Metadata {
	return o.Metadata
}

func (c *Configuration) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, c)
}

func (c *Configuration) GetMetadata() *weave.Metadata {
	return c.Metadata
}

// GetOwner implements gconf.OwnedConfig interface.
func (c *Configuration) GetOwner() weave.Address {
	return c.Owner
}

// CreateOrderMsg opens a new order. The signer, or Importer if provided,
// becomes the importer and pays the amount into the order account.
type CreateOrderMsg struct {
	Metadata *weave.Metadata `json:"metadata"`
	// Importer is optional. Main signer is used when not provided.
	Importer         weave.Address  `json:"importer"`
	Exporter         weave.Address  `json:"exporter"`
	Verifier         weave.Address  `json:"verifier"`
	Amount           *coin.Coin     `json:"amount"`
	ProposedDeadline weave.UnixTime `json:"proposed_deadline"`
	CreationTime     weave.UnixTime `json:"creation_time"`
	OrderMetadata    *OrderMetadata `json:"order_metadata"`
}

// ProposeDeadlineMsg is sent by the exporter to propose a new deadline while
// the deadline is negotiated.
type ProposeDeadlineMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	NewDeadline weave.UnixTime  `json:"new_deadline"`
}

// ApproveDeadlineMsg is sent by the importer to ratify the proposed
// deadline.
type ApproveDeadlineMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// ShipGoodsMsg is sent by the exporter once the goods are shipped.
type ShipGoodsMsg struct {
	Metadata         *weave.Metadata `json:"metadata"`
	OrderID          []byte          `json:"order_id"`
	BillOfLadingHash []byte          `json:"bill_of_lading_hash"`
}

// RequestExtensionMsg is sent by the exporter to push the approved deadline.
type RequestExtensionMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	NewDeadline weave.UnixTime  `json:"new_deadline"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// ApproveExtensionMsg is sent by the importer to accept a requested
// extension.
type ApproveExtensionMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// RejectExtensionMsg is sent by the importer to discard a requested
// extension. When CurrentTime is zero, the block time is used.
type RejectExtensionMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// ConfirmDeliveryMsg is sent by the verifier or the importer to release the
// escrowed amount to the exporter.
type ConfirmDeliveryMsg struct {
	Metadata *weave.Metadata `json:"metadata"`
	OrderID  []byte          `json:"order_id"`
}

// RefundMsg can be sent by anyone to return the escrowed amount to the
// importer once the approved deadline has passed.
type RefundMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// UpdateMetadataMsg replaces the descriptive information of an order.
type UpdateMetadataMsg struct {
	Metadata      *weave.Metadata `json:"metadata"`
	OrderID       []byte          `json:"order_id"`
	OrderMetadata *OrderMetadata  `json:"order_metadata"`
	CurrentTime   weave.UnixTime  `json:"current_time"`
}

// DisputeMsg is sent by the importer or the exporter to freeze an order
// until the verifier resolves it.
type DisputeMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	Reason      string          `json:"reason"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// ResolveDisputeMsg is sent by the verifier to close a disputed order.
type ResolveDisputeMsg struct {
	Metadata    *weave.Metadata `json:"metadata"`
	OrderID     []byte          `json:"order_id"`
	Resolution  string          `json:"resolution"`
	CurrentTime weave.UnixTime  `json:"current_time"`
}

// UpdateConfigurationMsg patches the stored configuration. Zero value fields
// of the patch are ignored.
type UpdateConfigurationMsg struct {
	Metadata *weave.Metadata `json:"metadata"`
	Patch    *Configuration  `json:"patch"`
}
