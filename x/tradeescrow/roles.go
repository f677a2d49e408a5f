package tradeescrow

import (
	"github.com/iov-one/weave"
)

// Role predicates answer whether any of the authenticated signers holds the
// given role on an order. They never look at the order state.

// IsImporter returns true if the importer is among the signers.
func IsImporter(signers []weave.Address, o *Order) bool {
	return hasAny(signers, o.Importer)
}

// IsExporter returns true if the exporter is among the signers.
func IsExporter(signers []weave.Address, o *Order) bool {
	return hasAny(signers, o.Exporter)
}

// IsVerifier returns true if the verifier is among the signers.
func IsVerifier(signers []weave.Address, o *Order) bool {
	return hasAny(signers, o.Verifier)
}

// IsVerifierOrImporter returns true if either the verifier or the importer
// signed.
func IsVerifierOrImporter(signers []weave.Address, o *Order) bool {
	return hasAny(signers, o.Verifier, o.Importer)
}

// IsImporterOrExporter returns true if either of the trading parties signed.
func IsImporterOrExporter(signers []weave.Address, o *Order) bool {
	return hasAny(signers, o.Importer, o.Exporter)
}

// Guard is a role predicate.
type Guard func(signers []weave.Address, o *Order) bool

func hasAny(signers []weave.Address, want ...weave.Address) bool {
	for _, w := range want {
		if len(w) == 0 {
			continue
		}
		for _, s := range signers {
			if s.Equals(w) {
				return true
			}
		}
	}
	return false
}
