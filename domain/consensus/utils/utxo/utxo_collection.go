package utxo

import (
	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// Collection is an in-memory set of unspent outputs keyed by outpoint.
// It satisfies model.LedgerView: Resolve fails for outpoints that were
// never created or have been spent, which is exactly how a double-spend
// of the same output by two transactions gets rejected regardless of
// any validation cache.
type Collection map[externalapi.DomainOutpoint]externalapi.UTXOEntry

// NewCollection creates an empty Collection
func NewCollection() Collection {
	return Collection{}
}

// Add adds a new UTXO entry to this collection
func (uc Collection) Add(outpoint *externalapi.DomainOutpoint, entry externalapi.UTXOEntry) {
	uc[*outpoint] = entry
}

// Remove removes a UTXO entry from this collection if it exists
func (uc Collection) Remove(outpoint *externalapi.DomainOutpoint) {
	delete(uc, *outpoint)
}

// Contains returns a boolean indicating whether outpoint is in this collection
func (uc Collection) Contains(outpoint *externalapi.DomainOutpoint) bool {
	_, ok := uc[*outpoint]
	return ok
}

// Resolve returns the entry for the given outpoint, or false if the
// outpoint does not exist or has already been spent
func (uc Collection) Resolve(outpoint *externalapi.DomainOutpoint) (externalapi.UTXOEntry, bool) {
	entry, ok := uc[*outpoint]
	return entry, ok
}

// ApplyTransaction spends the transaction's inputs and adds its outputs.
// It returns an error if any input references an outpoint that is not in
// the collection, leaving the collection unmodified in that case.
func (uc Collection) ApplyTransaction(tx *externalapi.DomainTransaction, isCoinbase bool) error {
	for _, input := range tx.Inputs {
		if !uc.Contains(&input.PreviousOutpoint) {
			return errors.Errorf("cannot spend %s: no such unspent outpoint", input.PreviousOutpoint)
		}
	}

	for _, input := range tx.Inputs {
		uc.Remove(&input.PreviousOutpoint)
	}

	transactionID := consensushashing.TransactionID(tx)
	for i, output := range tx.Outputs {
		outpoint := externalapi.NewDomainOutpoint(transactionID, uint32(i))
		uc.Add(outpoint, NewUTXOEntry(output.Value, output.ScriptPublicKey, isCoinbase))
	}
	return nil
}
