package scriptengine

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
)

// RawTxInSignature returns the serialized Schnorr signature for the
// input idx of the given transaction, with hashType appended to it.
// forkID must match the ScriptEnableSighashForkID flag the validator
// will run with, since it selects the signing domain.
func RawTxInSignature(tx *externalapi.DomainTransaction, idx int,
	prevScriptPublicKey *externalapi.ScriptPublicKey, amount uint64,
	hashType consensushashing.SigHashType, forkID bool, key *secp256k1.SchnorrKeyPair,
	reusedValues *consensushashing.SighashReusedValues) ([]byte, error) {

	hash, err := consensushashing.CalculateSignatureHash(
		tx, idx, prevScriptPublicKey, amount, hashType, forkID, reusedValues)
	if err != nil {
		return nil, err
	}
	secpHash := secp256k1.Hash(*hash.ByteArray())
	signature, err := key.SchnorrSign(&secpHash)
	if err != nil {
		return nil, errors.Errorf("cannot sign tx input: %s", err)
	}

	return append(signature.Serialize()[:], byte(hashType)), nil
}

// SignatureScript creates an unlocking script for the idx'th input of
// tx, spending a previous output locked by prevScriptPublicKey. The
// guard arguments the locking script's clauses consume, if any, are
// appended after the signature in clause order.
func SignatureScript(tx *externalapi.DomainTransaction, idx int,
	prevScriptPublicKey *externalapi.ScriptPublicKey, amount uint64,
	hashType consensushashing.SigHashType, flags txscript.ScriptFlags,
	key *secp256k1.SchnorrKeyPair, reusedValues *consensushashing.SighashReusedValues,
	guardArguments ...[]byte) ([]byte, error) {

	forkID := flags.HasFlag(txscript.ScriptEnableSighashForkID)
	signature, err := RawTxInSignature(
		tx, idx, prevScriptPublicKey, amount, hashType, forkID, key, reusedValues)
	if err != nil {
		return nil, err
	}

	signatureScript := append([]byte{signaturePushLength}, signature...)
	for _, argument := range guardArguments {
		signatureScript = append(signatureScript, argument...)
	}
	return signatureScript, nil
}
