package tradeescrow

import (
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
)

const (
	// DefaultMinDeadline is the shortest deadline distance accepted when no
	// configuration is stored.
	DefaultMinDeadline = time.Minute
	// DefaultMaxDeadline is the longest deadline distance accepted when no
	// configuration is stored. Roughly eight months.
	DefaultMaxDeadline = 8 * 30 * 24 * time.Hour
)

// DeadlinePolicy declares the accepted distance between a deadline and the
// time it is proposed at. Both bounds are inclusive.
type DeadlinePolicy struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDeadlinePolicy returns the policy used when no configuration was
// provided.
func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{Min: DefaultMinDeadline, Max: DefaultMaxDeadline}
}

// NewDeadlinePolicy returns the policy declared by given configuration.
func NewDeadlinePolicy(c *Configuration) DeadlinePolicy {
	return DeadlinePolicy{
		Min: c.MinDeadline.Duration(),
		Max: c.MaxDeadline.Duration(),
	}
}

// Validate returns an error if the distance from reference to candidate is
// outside of the policy bounds.
func (p DeadlinePolicy) Validate(candidate, reference weave.UnixTime) error {
	// Compare seconds to not overflow time.Duration with distant values.
	delta := int64(candidate - reference)
	if delta < int64(p.Min/time.Second) {
		return errors.Wrapf(ErrDeadlineTooShort, "deadline %d is %ds from %d, minimum is %s",
			candidate, delta, reference, p.Min)
	}
	if delta > int64(p.Max/time.Second) {
		return errors.Wrapf(ErrDeadlineTooLong, "deadline %d is %ds from %d, maximum is %s",
			candidate, delta, reference, p.Max)
	}
	return nil
}

// ValidateExtension returns an error if candidate is not a valid extension of
// the currently approved deadline. On top of the regular bounds check, an
// extension must be strictly later than the deadline it replaces.
func (p DeadlinePolicy) ValidateExtension(candidate, reference, approved weave.UnixTime) error {
	if err := p.Validate(candidate, reference); err != nil {
		return err
	}
	if candidate <= approved {
		return errors.Wrapf(ErrDeadlineTooShort, "extension %d must be after approved deadline %d",
			candidate, approved)
	}
	return nil
}

// loadDeadlinePolicy returns the policy stored in the configuration or the
// default one when the configuration was never created.
func loadDeadlinePolicy(db weave.ReadOnlyKVStore) (DeadlinePolicy, error) {
	conf, err := loadConf(db)
	switch {
	case err == nil:
		return NewDeadlinePolicy(conf), nil
	case errors.ErrNotFound.Is(err):
		return DefaultDeadlinePolicy(), nil
	default:
		return DeadlinePolicy{}, errors.Wrap(err, "load configuration")
	}
}
