package tradeescrow

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
)

// Initializer fulfils the Initializer interface to load data from the genesis
// file.
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will store the deadline policy configuration if the genesis
// declares one. Without it the default policy is used until a configuration
// is created by the migration admin.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, kv weave.KVStore) error {
	var conf Configuration
	switch err := gconf.InitConfig(kv, opts, packageName, &conf); {
	case err == nil:
		return nil
	case errors.ErrNotFound.Is(err):
		return nil
	default:
		return errors.Wrap(err, "init config")
	}
}
