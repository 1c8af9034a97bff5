package scriptengine

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/hashes"
)

// maxScriptSize is the maximum length a built locking script may reach.
const maxScriptSize = 10000

// ScriptBuilder provides a facility for building custom locking
// scripts. It allows you to chain guard clauses and finish with a
// signature check, and only returns an error at the end so the chain
// reads naturally:
//
//	script, err := NewScriptBuilder().
//		AddLockTimeGuard().
//		AddCheckSig(pubKey).
//		Script()
type ScriptBuilder struct {
	script []byte
	err    error
}

// NewScriptBuilder returns a new instance of a script builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{}
}

func (b *ScriptBuilder) addClause(opcode byte, operand []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(b.script)+1+len(operand) > maxScriptSize {
		b.err = errors.Errorf("adding a clause of %d bytes would exceed the maximum script size %d",
			1+len(operand), maxScriptSize)
		return b
	}
	b.script = append(b.script, opcode)
	b.script = append(b.script, operand...)
	return b
}

// AddCheckSig appends the terminal signature-check clause committing to
// the given serialized Schnorr public key. No clause may follow it.
func (b *ScriptBuilder) AddCheckSig(pubKey []byte) *ScriptBuilder {
	if b.err == nil && len(pubKey) != publicKeyLength {
		b.err = errors.Errorf("public key is %d bytes, expected %d", len(pubKey), publicKeyLength)
		return b
	}
	return b.addClause(opCheckSig, pubKey)
}

// AddBatchCheckSig appends the terminal batch signature-check clause,
// which additionally consumes a one-byte dummy argument from the
// unlocking script.
func (b *ScriptBuilder) AddBatchCheckSig(pubKey []byte) *ScriptBuilder {
	if b.err == nil && len(pubKey) != publicKeyLength {
		b.err = errors.Errorf("public key is %d bytes, expected %d", len(pubKey), publicKeyLength)
		return b
	}
	return b.addClause(opCheckSigBatch, pubKey)
}

// AddLockTimeGuard appends a clause requiring the spending
// transaction's lock time to reach the value the unlocking script
// supplies.
func (b *ScriptBuilder) AddLockTimeGuard() *ScriptBuilder {
	return b.addClause(opCheckLockTime, nil)
}

// AddSequenceGuard appends a clause requiring the spending input's
// sequence to reach the value the unlocking script supplies.
func (b *ScriptBuilder) AddSequenceGuard() *ScriptBuilder {
	return b.addClause(opCheckSequence, nil)
}

// AddUpgradableNop appends a clause that currently does nothing.
func (b *ScriptBuilder) AddUpgradableNop() *ScriptBuilder {
	return b.addClause(opUpgradableNop, nil)
}

// AddScriptHashGuard appends a clause committing to the hash of
// redeemScript, which the unlocking script must supply in full.
func (b *ScriptBuilder) AddScriptHashGuard(redeemScript []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	writer := hashes.NewScriptHashWriter()
	writer.InfallibleWrite(redeemScript)
	return b.addClause(opScriptHash, writer.Finalize().ByteSlice())
}

// Script returns the built script and any error that occurred while
// building it.
func (b *ScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}

// PayToPubKey returns a ScriptPublicKey that pays to the given
// serialized Schnorr public key. It is the most common locking script:
// a bare terminal signature check.
func PayToPubKey(pubKey []byte) (*externalapi.ScriptPublicKey, error) {
	script, err := NewScriptBuilder().AddCheckSig(pubKey).Script()
	if err != nil {
		return nil, err
	}
	return &externalapi.ScriptPublicKey{Script: script, Version: 0}, nil
}

// GuardArgument encodes a lock-time or sequence guard argument the way
// the unlocking script must carry it.
func GuardArgument(value uint64) []byte {
	argument := make([]byte, guardArgumentLength)
	binary.LittleEndian.PutUint64(argument, value)
	return argument
}
