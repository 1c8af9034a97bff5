package model

import "github.com/cruxnet/cruxd/domain/consensus/model/externalapi"

// LedgerView is a read-only snapshot of which outputs exist and are
// unspent at the point in history a caller intends to validate against.
//
// Resolve returns the entry for the given outpoint, or false if the
// outpoint does not exist or has already been spent. Spend-conflict
// detection between competing transactions is enforced here, by the
// ledger subsystem, and never by any validation cache.
type LedgerView interface {
	Resolve(outpoint *externalapi.DomainOutpoint) (externalapi.UTXOEntry, bool)
}
