package inputvalidator

import (
	"runtime"
	"sort"

	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/ruleerrors"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
)

// DeferredInputCheck is a unit of script-validation work for a single
// input, capturing everything Execute needs so it can run at any later
// time, on any goroutine, with no access to the Validator that emitted
// it. Items are plain values; callers move them freely between
// goroutines and may abandon them once one has failed.
type DeferredInputCheck struct {
	engine          ScriptEngine
	tx              *externalapi.DomainTransaction
	inputIndex      int
	scriptPublicKey *externalapi.ScriptPublicKey
	amount          uint64
	flags           txscript.ScriptFlags
	reusedValues    *consensushashing.SighashReusedValues
}

// Execute runs the check. It is a pure function of the item: the same
// item always returns the same result, regardless of which goroutine
// runs it or in what order relative to the transaction's other items.
func (check *DeferredInputCheck) Execute() error {
	return check.engine.Execute(check.tx, check.inputIndex, check.scriptPublicKey,
		check.amount, check.flags, check.reusedValues)
}

// InputIndex returns the index of the input this item verifies, for
// callers attributing a failure back to a specific input.
func (check *DeferredInputCheck) InputIndex() int {
	return check.inputIndex
}

type deferredResult struct {
	check DeferredInputCheck
	err   error
}

// RunDeferredChecks executes the given work items across a pool of
// worker goroutines and aggregates the results. It returns nil only
// after every item has been executed and passed; failures from all
// items are collected into a single ErrScriptValidation, attributed to
// their input indices, so a caller gets the complete diagnostic in one
// pass. An input whose scripts could not be parsed at all is reported
// as ErrScriptMalformed instead, mirroring the synchronous path.
//
// The items may belong to different transactions; the conjunctive
// result does not depend on execution order.
func RunDeferredChecks(checks []DeferredInputCheck) error {
	if len(checks) == 0 {
		return nil
	}

	workerCount := runtime.NumCPU()
	if workerCount > len(checks) {
		workerCount = len(checks)
	}
	log.Tracef("running %d deferred input checks on %d workers", len(checks), workerCount)

	checksChan := make(chan DeferredInputCheck, len(checks))
	for _, check := range checks {
		checksChan <- check
	}
	close(checksChan)

	resultsChan := make(chan deferredResult, len(checks))
	for i := 0; i < workerCount; i++ {
		spawn("RunDeferredChecks.worker", func() {
			for check := range checksChan {
				resultsChan <- deferredResult{check: check, err: check.Execute()}
			}
		})
	}

	var invalidInputs []ruleerrors.InvalidInput
	for i := 0; i < len(checks); i++ {
		result := <-resultsChan
		if result.err != nil {
			invalidInputs = append(invalidInputs, ruleerrors.InvalidInput{
				InputIndex:       result.check.inputIndex,
				PreviousOutpoint: result.check.tx.Inputs[result.check.inputIndex].PreviousOutpoint,
				Error:            result.err,
			})
		}
	}
	if len(invalidInputs) > 0 {
		sort.Slice(invalidInputs, func(i, j int) bool {
			return invalidInputs[i].InputIndex < invalidInputs[j].InputIndex
		})
		for _, invalid := range invalidInputs {
			if isMalformedScriptError(invalid.Error) {
				return errors.Wrapf(ruleerrors.ErrScriptMalformed, "failed to parse input "+
					"%d which references output %s - %s",
					invalid.InputIndex, invalid.PreviousOutpoint, invalid.Error)
			}
		}
		return ruleerrors.NewErrScriptValidation(invalidInputs)
	}
	return nil
}
