package utxo

import (
	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
)

type utxoEntry struct {
	amount          uint64
	scriptPublicKey *externalapi.ScriptPublicKey
	isCoinbase      bool
}

// NewUTXOEntry creates a new utxoEntry representing the given txOut
func NewUTXOEntry(amount uint64, scriptPublicKey *externalapi.ScriptPublicKey, isCoinbase bool) externalapi.UTXOEntry {
	scriptPublicKeyClone := externalapi.ScriptPublicKey{
		Script:  make([]byte, len(scriptPublicKey.Script)),
		Version: scriptPublicKey.Version,
	}
	copy(scriptPublicKeyClone.Script, scriptPublicKey.Script)
	return &utxoEntry{
		amount:          amount,
		scriptPublicKey: &scriptPublicKeyClone,
		isCoinbase:      isCoinbase,
	}
}

func (u *utxoEntry) Amount() uint64 {
	return u.amount
}

func (u *utxoEntry) ScriptPublicKey() *externalapi.ScriptPublicKey {
	clone := *u.scriptPublicKey
	return &clone
}

func (u *utxoEntry) IsCoinbase() bool {
	return u.isCoinbase
}

// Equal returns whether entry equals to other
func (u *utxoEntry) Equal(other externalapi.UTXOEntry) bool {
	if u == nil || other == nil {
		return externalapi.UTXOEntry(u) == other
	}

	// If only the underlying value of other is nil it'll
	// make `other == nil` return false, so we check it
	// explicitly.
	downcastedOther := other.(*utxoEntry)
	if u == nil || downcastedOther == nil {
		return externalapi.UTXOEntry(u) == other
	}

	if u.amount != other.Amount() {
		return false
	}
	if !u.scriptPublicKey.Equal(other.ScriptPublicKey()) {
		return false
	}
	if u.isCoinbase != other.IsCoinbase() {
		return false
	}
	return true
}
