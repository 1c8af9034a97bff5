package inputvalidator

import (
	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model"
	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/ruleerrors"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/cruxnet/cruxd/domain/consensus/utils/scriptcache"
	"github.com/cruxnet/cruxd/domain/consensus/utils/scriptengine"
	"github.com/cruxnet/cruxd/domain/consensus/utils/sighashcache"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
)

// ScriptEngine decides whether tx's inputIndex'th input satisfies the
// locking script of the output it spends, under the given rule flags.
// It must be deterministic in its arguments and safe for concurrent
// use; the validator runs it from multiple goroutines when a caller
// executes deferred checks in parallel.
type ScriptEngine interface {
	Execute(tx *externalapi.DomainTransaction, inputIndex int,
		prevScriptPublicKey *externalapi.ScriptPublicKey, amount uint64,
		flags txscript.ScriptFlags, reusedValues *consensushashing.SighashReusedValues) error
}

// Validator orchestrates script validation of all of one transaction's
// inputs: it resolves the referenced outputs, consults and populates
// the whole-transaction script cache, and either executes the input
// checks inline or emits them as deferred work items for the caller to
// run on a worker pool of its choosing.
//
// A Validator is stateless across calls apart from its caches and is
// safe for concurrent use by multiple goroutines, each validating a
// different transaction.
type Validator struct {
	engine       ScriptEngine
	scriptCache  *scriptcache.Cache
	sighashCache *sighashcache.Cache
}

// New creates a Validator around the given script engine. Either cache
// may be nil, which degrades the validator to full verification on
// every call rather than failing.
func New(engine ScriptEngine, scriptCache *scriptcache.Cache, sighashCache *sighashcache.Cache) *Validator {
	return &Validator{
		engine:       engine,
		scriptCache:  scriptCache,
		sighashCache: sighashCache,
	}
}

// ValidateInputs validates every input of tx against the outputs it
// spends, resolved through ledgerView, under the given rule flags.
//
// When useCache is true, a transaction whose (ID, normalized flags) key
// is already in the script cache is accepted without re-executing any
// scripts; missing-output resolution still runs first, since the cache
// proves past script validity, never present spendability.
//
// When deferredChecks is non-nil, no scripts are executed: exactly one
// work item per input is appended to it on a cache miss, and zero on a
// cache hit. A nil return then means the work was scheduled, not that
// the transaction is valid. The caller must run every item (see
// RunDeferredChecks) and, if it wants the cache benefit, call
// InsertValidated after all of them passed; ValidateInputs never
// inserts on the caller's behalf in deferred mode.
func (v *Validator) ValidateInputs(tx *externalapi.DomainTransaction, ledgerView model.LedgerView,
	flags txscript.ScriptFlags, useCache bool, deferredChecks *[]DeferredInputCheck) error {

	if len(tx.Inputs) == 0 {
		return errors.Wrapf(ruleerrors.ErrNoTxInputs, "transaction has no inputs")
	}

	// Resolution failures are never a caching concern: an entry in the
	// script cache means the scripts were once valid, not that the
	// outputs are still unspent.
	utxoEntries := make([]externalapi.UTXOEntry, len(tx.Inputs))
	var missingOutpoints []externalapi.DomainOutpoint
	for i, input := range tx.Inputs {
		entry, ok := ledgerView.Resolve(&input.PreviousOutpoint)
		if !ok {
			missingOutpoints = append(missingOutpoints, input.PreviousOutpoint)
			continue
		}
		utxoEntries[i] = entry
	}
	if len(missingOutpoints) > 0 {
		return ruleerrors.NewErrMissingTxOut(missingOutpoints)
	}

	// Two spellings of the same logical rule set must land on the same
	// cache key, so the key is always built from normalized flags.
	normalizedFlags := flags.Normalize()
	transactionID := consensushashing.TransactionID(tx)

	if useCache && v.scriptCache.Lookup(transactionID, normalizedFlags) {
		log.Tracef("transaction %s hit the script cache under flags %b", transactionID, normalizedFlags)
		return nil
	}

	reusedValues := v.sighashReusedValues(tx, transactionID)

	if deferredChecks != nil {
		for i := range tx.Inputs {
			*deferredChecks = append(*deferredChecks, DeferredInputCheck{
				engine:          v.engine,
				tx:              tx,
				inputIndex:      i,
				scriptPublicKey: utxoEntries[i].ScriptPublicKey(),
				amount:          utxoEntries[i].Amount(),
				flags:           normalizedFlags,
				reusedValues:    reusedValues,
			})
		}
		return nil
	}

	var invalidInputs []ruleerrors.InvalidInput
	for i, input := range tx.Inputs {
		err := v.engine.Execute(tx, i, utxoEntries[i].ScriptPublicKey(), utxoEntries[i].Amount(),
			normalizedFlags, reusedValues)
		if err != nil {
			if isMalformedScriptError(err) {
				return errors.Wrapf(ruleerrors.ErrScriptMalformed, "failed to parse input "+
					"%d which references output %s - %s", i, input.PreviousOutpoint, err)
			}
			invalidInputs = append(invalidInputs, ruleerrors.InvalidInput{
				InputIndex:       i,
				PreviousOutpoint: input.PreviousOutpoint,
				Error:            err,
			})
		}
	}
	if len(invalidInputs) > 0 {
		return ruleerrors.NewErrScriptValidation(invalidInputs)
	}

	if useCache {
		v.scriptCache.Insert(transactionID, normalizedFlags)
	}
	return nil
}

// InsertValidated records that every input of tx has been verified
// under the given flags. Callers running deferred checks call it after
// all of the transaction's work items passed; inserting a transaction
// with a failed input would turn the cache into a source of false
// validity for as long as the entry survives.
func (v *Validator) InsertValidated(tx *externalapi.DomainTransaction, flags txscript.ScriptFlags) {
	v.scriptCache.Insert(consensushashing.TransactionID(tx), flags.Normalize())
}

// isMalformedScriptError reports whether the engine rejected an input
// because one of its scripts could not be parsed at all, as opposed to
// parsing fine and failing evaluation.
func isMalformedScriptError(err error) bool {
	return scriptengine.IsErrorCode(err, scriptengine.ErrMalformedScript) ||
		scriptengine.IsErrorCode(err, scriptengine.ErrMalformedSignatureScript)
}

// sighashReusedValues returns tx's sighash midstates, reusing the ones
// cached at an earlier validation attempt when possible. The midstates
// are a pure function of the transaction, so a stale entry for the same
// ID cannot exist.
func (v *Validator) sighashReusedValues(tx *externalapi.DomainTransaction,
	transactionID *externalapi.DomainTransactionID) *consensushashing.SighashReusedValues {

	if reusedValues, ok := v.sighashCache.Get(transactionID); ok {
		return reusedValues
	}
	reusedValues := consensushashing.NewSighashReusedValues(tx)
	v.sighashCache.Add(transactionID, reusedValues)
	return reusedValues
}
