package scriptengine

import "fmt"

// ErrorCode identifies a kind of script error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrMalformedScript indicates a locking script that could not be
	// parsed: a truncated clause operand, an unknown opcode, or a
	// missing terminal signature-check clause.
	ErrMalformedScript ErrorCode = iota

	// ErrMalformedSignatureScript indicates an unlocking script that
	// could not be parsed, e.g. one shorter than its declared
	// signature length or missing a clause argument.
	ErrMalformedSignatureScript

	// ErrUnsatisfiedLockTime indicates a lock-time guard whose
	// required value exceeds the transaction's lock time.
	ErrUnsatisfiedLockTime

	// ErrUnsatisfiedSequence indicates a sequence guard whose required
	// value exceeds the spending input's sequence.
	ErrUnsatisfiedSequence

	// ErrDiscouragedNop indicates the script uses an upgradable guard
	// opcode while their use is discouraged.
	ErrDiscouragedNop

	// ErrScriptHashMismatch indicates the redeem script supplied by
	// the unlocking script does not hash to the value the locking
	// script commits to.
	ErrScriptHashMismatch

	// ErrNullDummy indicates a non-zero dummy argument to a batch
	// signature check.
	ErrNullDummy

	// ErrCleanStack indicates the unlocking script carries bytes that
	// no clause of the locking script consumed.
	ErrCleanStack

	// ErrNonMinimalPush indicates the unlocking script uses a
	// non-minimal push encoding for its signature.
	ErrNonMinimalPush

	// ErrSignaturePadding indicates a signature carrying padding
	// beyond the signature itself and its hash-type byte.
	ErrSignaturePadding

	// ErrInvalidSignature indicates a signature that does not verify
	// against the committed public key over the signature hash.
	ErrInvalidSignature
)

// Error identifies a script-related error. It is used to indicate that
// an unlocking script did not satisfy a locking script under the rule
// flags in force, and why.
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// scriptError creates an Error given a set of arguments.
func scriptError(c ErrorCode, format string, args ...interface{}) Error {
	return Error{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}

// IsErrorCode returns whether err is a script Error with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	scriptErr, ok := err.(Error)
	return ok && scriptErr.ErrorCode == c
}
