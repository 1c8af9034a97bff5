package hashes

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	transactionIDDomain         = "CruxTransactionID"
	transactionSigningDomain    = "CruxSigHash"
	legacyTransactionSigningKey = "CruxSigHashLegacy"
	scriptHashDomain            = "CruxScriptHash"
)

// NewTransactionIDWriter returns a new HashWriter used for transaction IDs
func NewTransactionIDWriter() HashWriter {
	blake, err := blake2b.New256([]byte(transactionIDDomain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", transactionIDDomain))
	}
	return HashWriter{blake}
}

// NewTransactionSigningHashWriter returns a new HashWriter used for signature hashes
// in the current signing domain
func NewTransactionSigningHashWriter() HashWriter {
	blake, err := blake2b.New256([]byte(transactionSigningDomain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", transactionSigningDomain))
	}
	return HashWriter{blake}
}

// NewLegacyTransactionSigningHashWriter returns a new HashWriter used for signature
// hashes in the legacy, pre-fork signing domain
func NewLegacyTransactionSigningHashWriter() HashWriter {
	blake, err := blake2b.New256([]byte(legacyTransactionSigningKey))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", legacyTransactionSigningKey))
	}
	return HashWriter{blake}
}

// NewScriptHashWriter returns a new HashWriter used for hashes of redeem scripts
func NewScriptHashWriter() HashWriter {
	blake, err := blake2b.New256([]byte(scriptHashDomain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", scriptHashDomain))
	}
	return HashWriter{blake}
}

// NewKeyedHashWriter returns a new HashWriter keyed with the given key. It is
// used where the hashing domain must be unpredictable to an attacker, e.g.
// cache keys. The key must be at most 64 bytes long.
func NewKeyedHashWriter(key []byte) (HashWriter, error) {
	blake, err := blake2b.New256(key)
	if err != nil {
		return HashWriter{}, errors.WithStack(err)
	}
	return HashWriter{blake}, nil
}
