package main

import (
	"encoding/binary"
	"time"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/processes/inputvalidator"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/cruxnet/cruxd/domain/consensus/utils/scriptcache"
	"github.com/cruxnet/cruxd/domain/consensus/utils/scriptengine"
	"github.com/cruxnet/cruxd/domain/consensus/utils/sighashcache"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
	"github.com/cruxnet/cruxd/domain/consensus/utils/utxo"
	"github.com/cruxnet/cruxd/infrastructure/logger"
)

const (
	outputValue        = 100_000_000
	sigCacheEntries    = 100_000
	sighashCacheSize   = 10_000
	interruptCheckMask = 0xff
)

type benchEnvironment struct {
	validator    *inputvalidator.Validator
	ledger       utxo.Collection
	transactions []*externalapi.DomainTransaction
}

// buildEnvironment generates a synthetic ledger and a batch of signed
// transactions spending it, all paying to a single generated key.
func buildEnvironment(cfg *configFlags) (*benchEnvironment, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "buildEnvironment")
	defer onEnd()

	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate a key pair")
	}
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		return nil, err
	}
	serializedPubKey, err := publicKey.Serialize()
	if err != nil {
		return nil, err
	}
	scriptPublicKey, err := scriptengine.PayToPubKey(serializedPubKey[:])
	if err != nil {
		return nil, err
	}

	// A zero cache size runs the whole bench in degraded mode: every
	// lookup misses and the timing difference between passes vanishes.
	var cache *scriptcache.Cache
	if cfg.CacheMebibytes > 0 {
		cache, err = scriptcache.New(cfg.CacheMebibytes * 1024 * 1024)
		if err != nil {
			return nil, err
		}
	}
	midstates, err := sighashcache.New(sighashCacheSize)
	if err != nil {
		return nil, err
	}
	engine := scriptengine.New(scriptengine.NewSigCache(sigCacheEntries))
	validator := inputvalidator.New(engine, cache, midstates)

	ledger := utxo.NewCollection()
	transactions := make([]*externalapi.DomainTransaction, cfg.TransactionCount)
	var fundingCounter uint64
	for i := range transactions {
		inputs := make([]*externalapi.DomainTransactionInput, cfg.InputsPerTx)
		for j := range inputs {
			fundingCounter++
			var fundingIDBytes [externalapi.DomainHashSize]byte
			binary.LittleEndian.PutUint64(fundingIDBytes[:], fundingCounter)
			outpoint := externalapi.NewDomainOutpoint(
				externalapi.NewDomainTransactionIDFromByteArray(&fundingIDBytes), 0)
			ledger.Add(outpoint, utxo.NewUTXOEntry(outputValue, scriptPublicKey, false))
			inputs[j] = &externalapi.DomainTransactionInput{PreviousOutpoint: *outpoint}
		}
		tx := &externalapi.DomainTransaction{
			Version: 0,
			Inputs:  inputs,
			Outputs: []*externalapi.DomainTransactionOutput{{
				Value:           outputValue - 1000,
				ScriptPublicKey: scriptPublicKey,
			}},
		}
		reusedValues := consensushashing.NewSighashReusedValues(tx)
		for j, input := range tx.Inputs {
			signatureScript, err := scriptengine.SignatureScript(tx, j, scriptPublicKey, outputValue,
				consensushashing.SigHashAll, txscript.StandardVerifyFlags, keyPair, reusedValues)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to sign input %d of transaction %d", j, i)
			}
			input.SignatureScript = signatureScript
		}
		transactions[i] = tx
	}

	return &benchEnvironment{
		validator:    validator,
		ledger:       ledger,
		transactions: transactions,
	}, nil
}

func benchLoop(cfg *configFlags, interrupt chan struct{}) error {
	environment, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}
	log.Infof("Generated %d transactions with %d inputs each", len(environment.transactions), cfg.InputsPerTx)

	// Pass 1 simulates mempool admission: synchronous validation under
	// standard rules, populating the script cache on the way.
	start := time.Now()
	for i, tx := range environment.transactions {
		if i&interruptCheckMask == 0 && isInterrupted(interrupt) {
			return nil
		}
		err := environment.validator.ValidateInputs(tx, environment.ledger,
			txscript.StandardVerifyFlags, true, nil)
		if err != nil {
			return errors.Wrapf(err, "transaction %d failed mempool-style validation", i)
		}
	}
	logPass("mempool pass", len(environment.transactions), time.Since(start))

	// Pass 2 simulates block connection: deferred work items executed on
	// a worker pool, with the caller inserting into the cache only after
	// the whole batch verified. The standard flags are reused so a
	// transaction admitted in pass 1 is a cache hit here, just as a
	// block usually carries transactions the pool has already seen.
	start = time.Now()
	deferredChecks := make([]inputvalidator.DeferredInputCheck, 0, len(environment.transactions)*cfg.InputsPerTx)
	for i, tx := range environment.transactions {
		err := environment.validator.ValidateInputs(tx, environment.ledger,
			txscript.StandardVerifyFlags, true, &deferredChecks)
		if err != nil {
			return errors.Wrapf(err, "transaction %d failed block-style scheduling", i)
		}
	}
	log.Infof("Block pass scheduled %d deferred input checks", len(deferredChecks))
	err = inputvalidator.RunDeferredChecks(deferredChecks)
	if err != nil {
		return errors.Wrap(err, "deferred input checks failed")
	}
	for _, tx := range environment.transactions {
		environment.validator.InsertValidated(tx, txscript.StandardVerifyFlags)
	}
	logPass("block pass", len(environment.transactions), time.Since(start))

	return nil
}

func logPass(name string, transactionCount int, elapsed time.Duration) {
	perSecond := float64(transactionCount) / elapsed.Seconds()
	log.Infof("%s: %d transactions in %s (%.0f tx/s)", name, transactionCount, elapsed, perSecond)
}

func isInterrupted(interrupt chan struct{}) bool {
	select {
	case <-interrupt:
		return true
	default:
		return false
	}
}
