package scriptengine

import (
	"bytes"
	"encoding/binary"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/cruxnet/cruxd/domain/consensus/utils/hashes"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
)

// A locking script is a sequence of guard clauses terminated by exactly
// one signature-check clause. Guards consume their arguments from the
// front of the unlocking script's argument region in clause order.
const (
	// opCheckSig commits to a 32-byte Schnorr public key that must sign
	// the spending input's signature hash. Terminal.
	opCheckSig = 0x01

	// opCheckLockTime consumes an 8-byte little-endian value from the
	// unlocking arguments; the transaction's lock time must not be below
	// it. Enforced under ScriptVerifyLockTime.
	opCheckLockTime = 0x02

	// opCheckSequence consumes an 8-byte little-endian value from the
	// unlocking arguments; the spending input's sequence must not be
	// below it. Enforced under ScriptVerifySequence.
	opCheckSequence = 0x03

	// opUpgradableNop is reserved for future guard semantics and does
	// nothing today. Rejected under ScriptDiscourageUpgradableNops.
	opUpgradableNop = 0x04

	// opScriptHash commits to the 32-byte hash of a redeem script that
	// the unlocking arguments must carry. Under ScriptVerifyScriptHash
	// the remaining arguments are hashed, compared and consumed;
	// without the flag the clause is skipped entirely.
	opScriptHash = 0x05

	// opCheckSigBatch is opCheckSig's batch-verification form: it first
	// consumes a one-byte dummy argument kept for batching schemes,
	// then commits to a 32-byte public key. Terminal. The dummy must be
	// zero under ScriptVerifyNullDummy.
	opCheckSigBatch = 0x06
)

const (
	// pushEscape prefixes an unlocking script that declares its
	// signature push in the long form. The long form is redundant for
	// any signature this engine accepts, so it is rejected under
	// ScriptVerifyMinimalData.
	pushEscape = 0x4c

	signatureLength           = secp256k1.SerializedSchnorrSignatureSize
	publicKeyLength           = 32
	guardArgumentLength       = 8
	signaturePushLength       = signatureLength + 1
	paddedSignaturePush       = signaturePushLength + 1
	scriptHashLength          = externalapi.DomainHashSize
	maxScriptPublicKeyVersion = 0
)

// Engine is the reference implementation of script evaluation: it
// decides whether one input's unlocking script satisfies the locking
// script of the output it spends, under a set of rule flags. A single
// Engine is stateless across calls and safe for concurrent use.
type Engine struct {
	sigCache *SigCache
}

// New returns an Engine backed by the given signature verification
// cache. sigCache may be nil, in which case every signature is verified
// from scratch.
func New(sigCache *SigCache) *Engine {
	return &Engine{sigCache: sigCache}
}

// parsedSignatureScript is an unlocking script split into its fixed
// signature region and the argument region the locking script's guard
// clauses consume.
type parsedSignatureScript struct {
	signature secp256k1.SerializedSchnorrSignature
	hashType  consensushashing.SigHashType
	padded    bool
	longForm  bool
	arguments []byte
}

func parseSignatureScript(signatureScript []byte) (*parsedSignatureScript, error) {
	parsed := &parsedSignatureScript{}
	script := signatureScript

	if len(script) > 0 && script[0] == pushEscape {
		parsed.longForm = true
		script = script[1:]
	}
	if len(script) == 0 {
		return nil, scriptError(ErrMalformedSignatureScript, "empty signature script")
	}

	pushLength := int(script[0])
	script = script[1:]
	switch pushLength {
	case signaturePushLength:
	case paddedSignaturePush:
		parsed.padded = true
	default:
		return nil, scriptError(ErrMalformedSignatureScript,
			"signature push of %d bytes, expected %d or %d", pushLength, signaturePushLength, paddedSignaturePush)
	}
	if len(script) < pushLength {
		return nil, scriptError(ErrMalformedSignatureScript,
			"signature script declares a %d-byte push but carries %d bytes", pushLength, len(script))
	}

	copy(parsed.signature[:], script[:signatureLength])
	parsed.hashType = consensushashing.SigHashType(script[signatureLength])
	if !parsed.hashType.IsStandardSigHashType() {
		return nil, scriptError(ErrMalformedSignatureScript, "unknown hash type 0x%x", byte(parsed.hashType))
	}
	parsed.arguments = script[pushLength:]
	return parsed, nil
}

// consumeArgument cuts length bytes off the front of the argument
// region, failing if the unlocking script did not supply them.
func consumeArgument(arguments []byte, length int, clause string) ([]byte, []byte, error) {
	if len(arguments) < length {
		return nil, nil, scriptError(ErrMalformedSignatureScript,
			"%s requires a %d-byte argument, %d bytes left", clause, length, len(arguments))
	}
	return arguments[:length], arguments[length:], nil
}

// operand cuts length bytes off the front of the locking script.
func operand(script []byte, length int, clause string) ([]byte, []byte, error) {
	if len(script) < length {
		return nil, nil, scriptError(ErrMalformedScript,
			"%s requires a %d-byte operand, %d bytes left", clause, length, len(script))
	}
	return script[:length], script[length:], nil
}

// Execute evaluates the locking script of the previous output against
// the unlocking script of tx's inputIndex'th input under the given
// flags. A nil return means the input satisfies the output. Flags must
// already be normalized; Execute does not re-normalize.
//
// Every flag only adds failure conditions, with one exception:
// ScriptEnableSighashForkID selects the signing domain the signature
// hash is computed in, so it must match the domain the signer used.
func (e *Engine) Execute(tx *externalapi.DomainTransaction, inputIndex int,
	prevScriptPublicKey *externalapi.ScriptPublicKey, amount uint64,
	flags txscript.ScriptFlags, reusedValues *consensushashing.SighashReusedValues) error {

	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return errors.Errorf("transaction input index %d is out of range (>= %d)", inputIndex, len(tx.Inputs))
	}

	// Newer script versions are treated as anyone-can-spend, so that
	// outputs using them stay spendable when the version is assigned
	// meaning and older validators remain forward compatible.
	if prevScriptPublicKey.Version > maxScriptPublicKeyVersion {
		return nil
	}

	parsed, err := parseSignatureScript(tx.Inputs[inputIndex].SignatureScript)
	if err != nil {
		return err
	}

	script := prevScriptPublicKey.Script
	arguments := parsed.arguments
	signatureChecked := false

	for len(script) > 0 {
		opcode := script[0]
		script = script[1:]

		switch opcode {
		case opCheckSig, opCheckSigBatch:
			if opcode == opCheckSigBatch {
				var dummy []byte
				dummy, arguments, err = consumeArgument(arguments, 1, "batch signature check")
				if err != nil {
					return err
				}
				if flags.HasFlag(txscript.ScriptVerifyNullDummy) && dummy[0] != 0 {
					return scriptError(ErrNullDummy, "batch signature check dummy argument is 0x%x, must be zero", dummy[0])
				}
			}
			var pubKey []byte
			pubKey, script, err = operand(script, publicKeyLength, "signature check")
			if err != nil {
				return err
			}
			if len(script) != 0 {
				return scriptError(ErrMalformedScript,
					"%d trailing bytes after the terminal signature check", len(script))
			}
			err = e.checkSignature(tx, inputIndex, prevScriptPublicKey, amount, pubKey, parsed, flags, reusedValues)
			if err != nil {
				return err
			}
			signatureChecked = true

		case opCheckLockTime:
			var value []byte
			value, arguments, err = consumeArgument(arguments, guardArgumentLength, "lock-time guard")
			if err != nil {
				return err
			}
			required := binary.LittleEndian.Uint64(value)
			if flags.HasFlag(txscript.ScriptVerifyLockTime) && required > tx.LockTime {
				return scriptError(ErrUnsatisfiedLockTime,
					"lock time %d is below the required %d", tx.LockTime, required)
			}

		case opCheckSequence:
			var value []byte
			value, arguments, err = consumeArgument(arguments, guardArgumentLength, "sequence guard")
			if err != nil {
				return err
			}
			required := binary.LittleEndian.Uint64(value)
			sequence := tx.Inputs[inputIndex].Sequence
			if flags.HasFlag(txscript.ScriptVerifySequence) && required > sequence {
				return scriptError(ErrUnsatisfiedSequence,
					"input sequence %d is below the required %d", sequence, required)
			}

		case opUpgradableNop:
			if flags.HasFlag(txscript.ScriptDiscourageUpgradableNops) {
				return scriptError(ErrDiscouragedNop, "upgradable guard opcodes are discouraged")
			}

		case opScriptHash:
			var expectedHash []byte
			expectedHash, script, err = operand(script, scriptHashLength, "script-hash guard")
			if err != nil {
				return err
			}
			if flags.HasFlag(txscript.ScriptVerifyScriptHash) {
				writer := hashes.NewScriptHashWriter()
				writer.InfallibleWrite(arguments)
				redeemHash := writer.Finalize()
				if !bytes.Equal(redeemHash.ByteSlice(), expectedHash) {
					return scriptError(ErrScriptHashMismatch,
						"redeem script hashes to %s, locking script commits to %x", redeemHash, expectedHash)
				}
				arguments = nil
			}

		default:
			return scriptError(ErrMalformedScript, "unknown opcode 0x%x", opcode)
		}
	}

	if !signatureChecked {
		return scriptError(ErrMalformedScript, "locking script has no signature check")
	}
	if parsed.longForm && flags.HasFlag(txscript.ScriptVerifyMinimalData) {
		return scriptError(ErrNonMinimalPush, "signature pushed in the long form")
	}
	if parsed.padded && flags.HasFlag(txscript.ScriptVerifyStrictEncoding) {
		return scriptError(ErrSignaturePadding, "signature carries a padding byte")
	}
	if len(arguments) != 0 && flags.HasFlag(txscript.ScriptVerifyCleanStack) {
		return scriptError(ErrCleanStack, "%d unlocking bytes left unconsumed", len(arguments))
	}
	return nil
}

func (e *Engine) checkSignature(tx *externalapi.DomainTransaction, inputIndex int,
	prevScriptPublicKey *externalapi.ScriptPublicKey, amount uint64, serializedPubKey []byte,
	parsed *parsedSignatureScript, flags txscript.ScriptFlags,
	reusedValues *consensushashing.SighashReusedValues) error {

	forkID := flags.HasFlag(txscript.ScriptEnableSighashForkID)
	sigHash, err := consensushashing.CalculateSignatureHash(
		tx, inputIndex, prevScriptPublicKey, amount, parsed.hashType, forkID, reusedValues)
	if err != nil {
		return err
	}

	var pubKey secp256k1.SerializedSchnorrPublicKey
	copy(pubKey[:], serializedPubKey)
	if e.sigCache.Exists(*sigHash, &parsed.signature, &pubKey) {
		return nil
	}

	schnorrPubKey, err := secp256k1.DeserializeSchnorrPubKey(serializedPubKey)
	if err != nil {
		return scriptError(ErrInvalidSignature, "cannot parse public key: %s", err)
	}
	signature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(parsed.signature[:])
	if err != nil {
		return scriptError(ErrInvalidSignature, "cannot parse signature: %s", err)
	}
	secpHash := secp256k1.Hash(*sigHash.ByteArray())
	if !schnorrPubKey.SchnorrVerify(&secpHash, signature) {
		return scriptError(ErrInvalidSignature, "signature does not verify over sighash %s", sigHash)
	}

	e.sigCache.Add(*sigHash, &parsed.signature, &pubKey)
	return nil
}
