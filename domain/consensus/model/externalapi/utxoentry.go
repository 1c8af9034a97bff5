package externalapi

// UTXOEntry houses details about an individual transaction output in a
// UTXO set such as whether or not it was contained in a coinbase
// transaction, its public key script, and how much it pays.
type UTXOEntry interface {
	Amount() uint64
	ScriptPublicKey() *ScriptPublicKey // The public key script for the output.
	IsCoinbase() bool
	Equal(other UTXOEntry) bool
}
