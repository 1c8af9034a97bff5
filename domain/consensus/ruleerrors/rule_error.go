package ruleerrors

import (
	"fmt"
	"strings"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrNoTxInputs indicates a transaction does not have any inputs. A
	// valid transaction must have at least one input.
	ErrNoTxInputs = newRuleError("ErrNoTxInputs")

	// ErrScriptMalformed indicates an input's unlocking script or the
	// referenced output's locking script could not be parsed by the
	// script engine, as opposed to parsing fine and failing evaluation.
	ErrScriptMalformed = newRuleError("ErrScriptMalformed")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a transaction failed due to one of the many validation
// rules. It has full support for errors.Is and errors.As, so the caller
// can find out the specific reason by calling errors.As with any of the
// rule error types declared in this package.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ErrMissingTxOut indicates a transaction output referenced by an input
// either does not exist or has already been spent.
type ErrMissingTxOut struct {
	MissingOutpoints []externalapi.DomainOutpoint
}

func (e ErrMissingTxOut) Error() string {
	return fmt.Sprintf("missing the following outpoint: %v", e.MissingOutpoints)
}

// NewErrMissingTxOut creates a new ErrMissingTxOut error wrapped in a RuleError
func NewErrMissingTxOut(missingOutpoints []externalapi.DomainOutpoint) error {
	return errors.WithStack(RuleError{
		message: "ErrMissingTxOut",
		inner:   ErrMissingTxOut{missingOutpoints},
	})
}

// InvalidInput is an input whose unlocking script failed to satisfy the
// referenced output's locking script, along with the error the script
// engine reported for it.
type InvalidInput struct {
	InputIndex       int
	PreviousOutpoint externalapi.DomainOutpoint
	Error            error
}

func (invalid InvalidInput) String() string {
	return fmt.Sprintf("(input %d referencing %s: %s)",
		invalid.InputIndex, invalid.PreviousOutpoint, invalid.Error)
}

// ErrScriptValidation indicates inputs whose unlocking scripts did not
// satisfy the referenced outputs' locking scripts under the rule flags
// in force. It carries every failing input so that a caller gets the
// complete diagnostic in a single pass.
type ErrScriptValidation struct {
	InvalidInputs []InvalidInput
}

func (e ErrScriptValidation) Error() string {
	descriptions := make([]string, len(e.InvalidInputs))
	for i, invalid := range e.InvalidInputs {
		descriptions[i] = invalid.String()
	}
	return fmt.Sprintf("script validation failed for the following inputs: %s",
		strings.Join(descriptions, ", "))
}

// NewErrScriptValidation creates a new ErrScriptValidation error wrapped in a RuleError
func NewErrScriptValidation(invalidInputs []InvalidInput) error {
	return errors.WithStack(RuleError{
		message: "ErrScriptValidation",
		inner:   ErrScriptValidation{invalidInputs},
	})
}
