package tradeescrow

import (
	"fmt"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Order{}, migration.NoModification)
}

const (
	billOfLadingHashSize = 32

	maxTitleLength       = 50
	maxDescriptionLength = 200
	maxTags              = 5
	maxTagLength         = 20
	maxCategoryLength    = 30
)

var _ orm.CloneableData = (*Order)(nil)

// Validate ensures the order is valid.
func (o *Order) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", o.Metadata.Validate())
	errs = errors.AppendField(errs, "Importer", o.Importer.Validate())
	errs = errors.AppendField(errs, "Exporter", o.Exporter.Validate())
	errs = errors.AppendField(errs, "Verifier", o.Verifier.Validate())
	errs = errors.AppendField(errs, "Address", o.Address.Validate())
	if o.Amount == nil {
		errs = errors.AppendField(errs, "Amount", errors.ErrEmpty)
	} else if !o.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount",
			errors.Wrap(errors.ErrAmount, "must be positive"))
	} else {
		errs = errors.AppendField(errs, "Amount", o.Amount.Validate())
	}
	errs = errors.AppendField(errs, "State", o.State.Validate())
	errs = errors.AppendField(errs, "CreatedAt", o.CreatedAt.Validate())
	if n := len(o.BillOfLadingHash); n != 0 && n != billOfLadingHashSize {
		errs = errors.AppendField(errs, "BillOfLadingHash",
			errors.Wrapf(errors.ErrInput, "must be %d bytes", billOfLadingHashSize))
	}
	if o.ExtensionRequested != (o.State == StatePendingExtensionApproval) {
		errs = errors.AppendField(errs, "ExtensionRequested",
			errors.Wrapf(errors.ErrState, "inconsistent with %s state", o.State))
	}
	if len(o.History) > maxHistoryEntries {
		errs = errors.AppendField(errs, "History",
			errors.Wrapf(errors.ErrInput, "more than %d entries", maxHistoryEntries))
	}
	for i, h := range o.History {
		if len(h.Description) > maxHistoryDescription {
			errs = errors.AppendField(errs, fmt.Sprintf("History.%d.Description", i),
				errors.Wrapf(errors.ErrInput, "longer than %d", maxHistoryDescription))
		}
		errs = errors.AppendField(errs, fmt.Sprintf("History.%d.State", i), h.State.Validate())
	}
	errs = errors.AppendField(errs, "OrderMetadata", o.OrderMetadata.Validate())
	return errs
}

// Copy returns a deep copy of the order.
func (o *Order) Copy() orm.CloneableData {
	var amount *coin.Coin
	if o.Amount != nil {
		c := *o.Amount
		amount = &c
	}
	history := make([]*HistoryEntry, len(o.History))
	for i, h := range o.History {
		entry := *h
		history[i] = &entry
	}
	return &Order{
		Metadata:           o.Metadata.Copy(),
		Importer:           o.Importer.Clone(),
		Exporter:           o.Exporter.Clone(),
		Verifier:           o.Verifier.Clone(),
		Amount:             amount,
		State:              o.State,
		CreatedAt:          o.CreatedAt,
		ProposedDeadline:   o.ProposedDeadline,
		ApprovedDeadline:   o.ApprovedDeadline,
		DeadlineApproved:   o.DeadlineApproved,
		ExtensionRequested: o.ExtensionRequested,
		ExtensionDeadline:  o.ExtensionDeadline,
		BillOfLadingHash:   append([]byte(nil), o.BillOfLadingHash...),
		History:            history,
		OrderMetadata:      o.OrderMetadata.Copy(),
		LastUpdated:        o.LastUpdated,
		Address:            o.Address.Clone(),
	}
}

// Validate returns an error if any of the fields exceeds its size limit. A
// nil value is valid.
func (m *OrderMetadata) Validate() error {
	if m == nil {
		return nil
	}
	var errs error
	if len(m.Title) > maxTitleLength {
		errs = errors.AppendField(errs, "Title",
			errors.Wrapf(errors.ErrInput, "longer than %d", maxTitleLength))
	}
	if len(m.Description) > maxDescriptionLength {
		errs = errors.AppendField(errs, "Description",
			errors.Wrapf(errors.ErrInput, "longer than %d", maxDescriptionLength))
	}
	if len(m.Tags) > maxTags {
		errs = errors.AppendField(errs, "Tags",
			errors.Wrapf(errors.ErrInput, "more than %d tags", maxTags))
	}
	for i, t := range m.Tags {
		if len(t) > maxTagLength {
			errs = errors.AppendField(errs, fmt.Sprintf("Tags.%d", i),
				errors.Wrapf(errors.ErrInput, "longer than %d", maxTagLength))
		}
	}
	if len(m.Category) > maxCategoryLength {
		errs = errors.AppendField(errs, "Category",
			errors.Wrapf(errors.ErrInput, "longer than %d", maxCategoryLength))
	}
	return errs
}

// Copy returns a deep copy, or nil for nil metadata.
func (m *OrderMetadata) Copy() *OrderMetadata {
	if m == nil {
		return nil
	}
	return &OrderMetadata{
		Title:       m.Title,
		Description: m.Description,
		Tags:        append([]string(nil), m.Tags...),
		Category:    m.Category,
	}
}

// Condition returns the condition that owns the escrowed funds of the order
// with the given ID.
func Condition(orderID []byte) weave.Condition {
	return weave.NewCondition("tradeescrow", "order", orderID)
}

// NewBucket returns the order bucket. Orders are indexed by each of the
// parties.
func NewBucket() orm.ModelBucket {
	b := orm.NewModelBucket("order", &Order{},
		orm.WithIDSequence(orderSeq),
		orm.WithIndex("importer", idxImporter, false),
		orm.WithIndex("exporter", idxExporter, false),
		orm.WithIndex("verifier", idxVerifier, false),
	)
	return migration.NewModelBucket(packageName, b)
}

var orderSeq = orm.NewSequence("order", "id")

func toOrder(obj orm.Object) (*Order, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "Cannot take index of nil")
	}
	o, ok := obj.Value().(*Order)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "Can only take index of Order")
	}
	return o, nil
}

func idxImporter(obj orm.Object) ([]byte, error) {
	o, err := toOrder(obj)
	if err != nil {
		return nil, err
	}
	return o.Importer, nil
}

func idxExporter(obj orm.Object) ([]byte, error) {
	o, err := toOrder(obj)
	if err != nil {
		return nil, err
	}
	return o.Exporter, nil
}

func idxVerifier(obj orm.Object) ([]byte, error) {
	o, err := toOrder(obj)
	if err != nil {
		return nil, err
	}
	return o.Verifier, nil
}
