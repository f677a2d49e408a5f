package tradeescrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
)

const packageName = "tradeescrow"

func (c *Configuration) Validate() error {
	var errs error
	// Owner field is optional.
	if len(c.Owner) != 0 {
		errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	}
	if c.MinDeadline <= 0 {
		errs = errors.AppendField(errs, "MinDeadline",
			errors.Wrap(errors.ErrInput, "must be greater than zero"))
	}
	if c.MaxDeadline < c.MinDeadline {
		errs = errors.AppendField(errs, "MaxDeadline",
			errors.Wrap(errors.ErrInput, "must not be lower than the minimum"))
	}
	return errs
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, packageName, &conf); err != nil {
		return nil, errors.Wrap(err, "gconf")
	}
	return &conf, nil
}

// DefaultConfiguration returns the configuration matching the default
// deadline policy.
func DefaultConfiguration(owner weave.Address) *Configuration {
	return &Configuration{
		Metadata:    &weave.Metadata{Schema: 1},
		Owner:       owner,
		MinDeadline: weave.AsUnixDuration(DefaultMinDeadline),
		MaxDeadline: weave.AsUnixDuration(DefaultMaxDeadline),
	}
}
