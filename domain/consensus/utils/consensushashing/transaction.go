package consensushashing

import (
	"encoding/binary"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/hashes"
)

// TransactionID computes the identity of the given transaction.
//
// The identity covers the full transaction contents, including every
// input's signature script, so that any edit to the transaction - a
// re-signed input included - produces a new identity. Validation caches
// rely on this: a cached verdict must never survive a change to the
// bytes that were verified.
func TransactionID(tx *externalapi.DomainTransaction) *externalapi.DomainTransactionID {
	writer := hashes.NewTransactionIDWriter()
	writeTransaction(writer, tx)
	return transactionIDFromHash(writer.Finalize())
}

func transactionIDFromHash(hash *externalapi.DomainHash) *externalapi.DomainTransactionID {
	return externalapi.NewDomainTransactionIDFromByteArray(hash.ByteArray())
}

func writeTransaction(writer hashes.HashWriter, tx *externalapi.DomainTransaction) {
	writeUint16(writer, tx.Version)

	writeUint64(writer, uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		writeOutpoint(writer, &input.PreviousOutpoint)
		writeByteSlice(writer, input.SignatureScript)
		writeUint64(writer, input.Sequence)
	}

	writeUint64(writer, uint64(len(tx.Outputs)))
	for _, output := range tx.Outputs {
		writeTransactionOutput(writer, output)
	}

	writeUint64(writer, tx.LockTime)
}

func writeTransactionOutput(writer hashes.HashWriter, output *externalapi.DomainTransactionOutput) {
	writeUint64(writer, output.Value)
	writeUint16(writer, output.ScriptPublicKey.Version)
	writeByteSlice(writer, output.ScriptPublicKey.Script)
}

func writeOutpoint(writer hashes.HashWriter, outpoint *externalapi.DomainOutpoint) {
	writer.InfallibleWrite(outpoint.TransactionID.ByteSlice())
	writeUint32(writer, outpoint.Index)
}

func writeByteSlice(writer hashes.HashWriter, data []byte) {
	writeUint64(writer, uint64(len(data)))
	writer.InfallibleWrite(data)
}

func writeUint16(writer hashes.HashWriter, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	writer.InfallibleWrite(buf[:])
}

func writeUint32(writer hashes.HashWriter, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	writer.InfallibleWrite(buf[:])
}

func writeUint64(writer hashes.HashWriter, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	writer.InfallibleWrite(buf[:])
}
