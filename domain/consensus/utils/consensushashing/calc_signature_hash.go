package consensushashing

import (
	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint8

// Hash type bits from the end of a signature.
const (
	SigHashAll          SigHashType = 0b00000001
	SigHashNone         SigHashType = 0b00000010
	SigHashSingle       SigHashType = 0b00000100
	SigHashAnyOneCanPay SigHashType = 0b10000000

	// SigHashMask defines the number of bits of the hash type which are used
	// to identify which outputs are signed.
	SigHashMask = 0b00000111
)

// IsStandardSigHashType returns true if sht represents a standard SigHashType
func (sht SigHashType) IsStandardSigHashType() bool {
	switch sht {
	case SigHashAll, SigHashNone, SigHashSingle,
		SigHashAll | SigHashAnyOneCanPay, SigHashNone | SigHashAnyOneCanPay, SigHashSingle | SigHashAnyOneCanPay:
		return true
	default:
		return false
	}
}

func (sht SigHashType) isSigHashAll() bool {
	return sht&SigHashMask == SigHashAll
}
func (sht SigHashType) isSigHashNone() bool {
	return sht&SigHashMask == SigHashNone
}
func (sht SigHashType) isSigHashSingle() bool {
	return sht&SigHashMask == SigHashSingle
}
func (sht SigHashType) isSigHashAnyOneCanPay() bool {
	return sht&SigHashAnyOneCanPay == SigHashAnyOneCanPay
}

// SighashReusedValues houses the midstate hashes that are shared between
// the signature hashes of all of a transaction's inputs. They are built
// exactly once per transaction object and are read-only from then on, so
// a single instance is safely shared by every goroutine checking inputs
// of the same transaction. Without them the per-input hashing work is
// quadratic in the size of the transaction.
type SighashReusedValues struct {
	previousOutputsHash *externalapi.DomainHash
	sequencesHash       *externalapi.DomainHash
	outputsHash         *externalapi.DomainHash
}

// NewSighashReusedValues builds the reused midstate hashes for the given
// transaction.
func NewSighashReusedValues(tx *externalapi.DomainTransaction) *SighashReusedValues {
	return &SighashReusedValues{
		previousOutputsHash: previousOutputsHash(tx),
		sequencesHash:       sequencesHash(tx),
		outputsHash:         outputsHash(tx),
	}
}

func previousOutputsHash(tx *externalapi.DomainTransaction) *externalapi.DomainHash {
	writer := hashes.NewTransactionSigningHashWriter()
	for _, input := range tx.Inputs {
		writeOutpoint(writer, &input.PreviousOutpoint)
	}
	return writer.Finalize()
}

func sequencesHash(tx *externalapi.DomainTransaction) *externalapi.DomainHash {
	writer := hashes.NewTransactionSigningHashWriter()
	for _, input := range tx.Inputs {
		writeUint64(writer, input.Sequence)
	}
	return writer.Finalize()
}

func outputsHash(tx *externalapi.DomainTransaction) *externalapi.DomainHash {
	writer := hashes.NewTransactionSigningHashWriter()
	for _, output := range tx.Outputs {
		writeTransactionOutput(writer, output)
	}
	return writer.Finalize()
}

// CalculateSignatureHash returns the exact digest that must be signed in
// order to satisfy the given previous output's locking script when spent
// by inputIndex of the given transaction.
//
// forkID selects the signing domain: when true the digest is computed
// under the post-fork domain-separation key, making pre-fork signatures
// (and signatures for other chains sharing the history) invalid here and
// vice versa. Callers enforcing the fork-id rule flag must pass the same
// value the signer used.
func CalculateSignatureHash(tx *externalapi.DomainTransaction, inputIndex int,
	prevScriptPublicKey *externalapi.ScriptPublicKey, amount uint64, hashType SigHashType,
	forkID bool, reusedValues *SighashReusedValues) (*externalapi.DomainHash, error) {

	if !hashType.IsStandardSigHashType() {
		return nil, errors.Errorf("SigHashType %d is not a valid SigHash type", hashType)
	}
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return nil, errors.Errorf("input index %d is out of range for a transaction with %d inputs",
			inputIndex, len(tx.Inputs))
	}
	// SigHashSingle signs the output with the same index as the input, so
	// it is improper to use it on input indices that don't have one.
	if hashType.isSigHashSingle() && inputIndex >= len(tx.Outputs) {
		return nil, errors.New("sigHashSingle index out of bounds")
	}

	writer := hashes.NewTransactionSigningHashWriter()
	if !forkID {
		writer = hashes.NewLegacyTransactionSigningHashWriter()
	}
	input := tx.Inputs[inputIndex]
	zeroHash := externalapi.NewZeroHash()

	writeUint16(writer, tx.Version)

	if hashType.isSigHashAnyOneCanPay() {
		writer.InfallibleWrite(zeroHash.ByteSlice())
	} else {
		writer.InfallibleWrite(reusedValues.previousOutputsHash.ByteSlice())
	}

	if hashType.isSigHashAll() && !hashType.isSigHashAnyOneCanPay() {
		writer.InfallibleWrite(reusedValues.sequencesHash.ByteSlice())
	} else {
		writer.InfallibleWrite(zeroHash.ByteSlice())
	}

	writeOutpoint(writer, &input.PreviousOutpoint)
	writeUint16(writer, prevScriptPublicKey.Version)
	writeByteSlice(writer, prevScriptPublicKey.Script)
	writeUint64(writer, amount)
	writeUint64(writer, input.Sequence)

	switch {
	case hashType.isSigHashAll():
		writer.InfallibleWrite(reusedValues.outputsHash.ByteSlice())
	case hashType.isSigHashSingle():
		outputWriter := hashes.NewTransactionSigningHashWriter()
		writeTransactionOutput(outputWriter, tx.Outputs[inputIndex])
		writer.InfallibleWrite(outputWriter.Finalize().ByteSlice())
	case hashType.isSigHashNone():
		writer.InfallibleWrite(zeroHash.ByteSlice())
	}

	writeUint64(writer, tx.LockTime)
	writer.InfallibleWrite([]byte{byte(hashType)})

	return writer.Finalize(), nil
}
