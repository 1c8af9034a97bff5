package inputvalidator

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/ruleerrors"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/cruxnet/cruxd/domain/consensus/utils/scriptcache"
	"github.com/cruxnet/cruxd/domain/consensus/utils/scriptengine"
	"github.com/cruxnet/cruxd/domain/consensus/utils/sighashcache"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
	"github.com/cruxnet/cruxd/domain/consensus/utils/utxo"
)

const testAmount = 100_000

type testContext struct {
	keyPair          *secp256k1.SchnorrKeyPair
	serializedPubKey []byte
	validator        *Validator
	ledger           utxo.Collection
	fundingCounter   byte
}

func newTestContext(t *testing.T) *testContext {
	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		t.Fatalf("GenerateSchnorrKeyPair: %s", err)
	}
	pubKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("SchnorrPublicKey: %s", err)
	}
	serializedPubKey, err := pubKey.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %s", err)
	}

	cache, err := scriptcache.New(1 << 20)
	if err != nil {
		t.Fatalf("scriptcache.New: %s", err)
	}
	midstates, err := sighashcache.New(100)
	if err != nil {
		t.Fatalf("sighashcache.New: %s", err)
	}
	engine := scriptengine.New(scriptengine.NewSigCache(1000))

	return &testContext{
		keyPair:          keyPair,
		serializedPubKey: serializedPubKey[:],
		validator:        New(engine, cache, midstates),
		ledger:           utxo.NewCollection(),
	}
}

// fund adds a new unspent output locked by the given script to the
// ledger and returns its outpoint.
func (ctx *testContext) fund(t *testing.T, scriptPublicKey *externalapi.ScriptPublicKey,
	isCoinbase bool) *externalapi.DomainOutpoint {

	ctx.fundingCounter++
	fundingID := externalapi.NewDomainTransactionIDFromByteArray(
		&[externalapi.DomainHashSize]byte{0xf0, ctx.fundingCounter})
	outpoint := externalapi.NewDomainOutpoint(fundingID, 0)
	ctx.ledger.Add(outpoint, utxo.NewUTXOEntry(testAmount, scriptPublicKey, isCoinbase))
	return outpoint
}

// fundPayToPubKey funds a plain pay-to-pubkey output for the context's key.
func (ctx *testContext) fundPayToPubKey(t *testing.T) *externalapi.DomainOutpoint {
	scriptPublicKey, err := scriptengine.PayToPubKey(ctx.serializedPubKey)
	if err != nil {
		t.Fatalf("PayToPubKey: %s", err)
	}
	return ctx.fund(t, scriptPublicKey, false)
}

// spendingTransaction builds an unsigned transaction spending the given
// outpoints into a single anyone-can-spend output.
func spendingTransaction(outpoints []*externalapi.DomainOutpoint, lockTime uint64) *externalapi.DomainTransaction {
	inputs := make([]*externalapi.DomainTransactionInput, len(outpoints))
	for i, outpoint := range outpoints {
		inputs[i] = &externalapi.DomainTransactionInput{PreviousOutpoint: *outpoint}
	}
	return &externalapi.DomainTransaction{
		Version: 0,
		Inputs:  inputs,
		Outputs: []*externalapi.DomainTransactionOutput{{
			Value:           testAmount - 1000,
			ScriptPublicKey: &externalapi.ScriptPublicKey{Script: []byte{0x04}, Version: 0},
		}},
		LockTime: lockTime,
	}
}

// signInputs signs every input of tx against the ledger, appending each
// input's guard arguments after its signature. guardArguments may be
// nil or shorter than the input count.
func (ctx *testContext) signInputs(t *testing.T, tx *externalapi.DomainTransaction,
	flags txscript.ScriptFlags, guardArguments map[int][][]byte) {

	reusedValues := consensushashing.NewSighashReusedValues(tx)
	for i, input := range tx.Inputs {
		entry, ok := ctx.ledger.Resolve(&input.PreviousOutpoint)
		if !ok {
			t.Fatalf("input %d references an unfunded outpoint %s", i, input.PreviousOutpoint)
		}
		signatureScript, err := scriptengine.SignatureScript(tx, i, entry.ScriptPublicKey(), entry.Amount(),
			consensushashing.SigHashAll, flags, ctx.keyPair, reusedValues, guardArguments[i]...)
		if err != nil {
			t.Fatalf("SignatureScript for input %d: %s", i, err)
		}
		input.SignatureScript = signatureScript
	}
}

func assertMissingOutpoint(t *testing.T, err error, outpoint *externalapi.DomainOutpoint) {
	var missingErr ruleerrors.ErrMissingTxOut
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected ErrMissingTxOut, got: %v", err)
	}
	for _, missing := range missingErr.MissingOutpoints {
		if missing.Equal(outpoint) {
			return
		}
	}
	t.Fatalf("expected %s among the missing outpoints, got %v", outpoint, missingErr.MissingOutpoints)
}

func TestNoInputs(t *testing.T) {
	ctx := newTestContext(t)
	tx := &externalapi.DomainTransaction{Version: 0}
	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, false, nil)
	if !errors.Is(err, ruleerrors.ErrNoTxInputs) {
		t.Fatalf("expected ErrNoTxInputs, got: %v", err)
	}
}

func TestCacheSoundness(t *testing.T) {
	ctx := newTestContext(t)
	outpoint := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)

	// First call misses and inserts, second call hits. A hit in deferred
	// mode must emit zero work items.
	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	if err != nil {
		t.Fatalf("expected a valid transaction, got: %s", err)
	}
	var deferredChecks []DeferredInputCheck
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("expected a cache hit, got: %s", err)
	}
	if len(deferredChecks) != 0 {
		t.Fatalf("a cache hit must emit zero deferred checks, got %d", len(deferredChecks))
	}

	// A different rule flag set is a different cache key: no hit, one
	// work item per input.
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.StandardVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}
	if len(deferredChecks) != len(tx.Inputs) {
		t.Fatalf("expected %d deferred checks under a different flag set, got %d",
			len(tx.Inputs), len(deferredChecks))
	}

	// Two spellings of the same logical flag set share one cache entry.
	withImplied := txscript.ScriptEnableSighashForkID | txscript.ScriptVerifyCleanStack | txscript.ScriptVerifyScriptHash
	withoutImplied := txscript.ScriptEnableSighashForkID | txscript.ScriptVerifyCleanStack
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, withImplied, true, nil)
	if err != nil {
		t.Fatalf("expected a valid transaction, got: %s", err)
	}
	deferredChecks = nil
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, withoutImplied, true, &deferredChecks)
	if err != nil {
		t.Fatalf("expected a cache hit for the normalized flag set, got: %s", err)
	}
	if len(deferredChecks) != 0 {
		t.Fatalf("normalized-equal flag sets must share a cache entry, got %d deferred checks", len(deferredChecks))
	}
}

func TestInvalidTransactionIsNeverCached(t *testing.T) {
	ctx := newTestContext(t)
	outpoint := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)
	// Corrupt the signature after signing.
	tx.Inputs[0].SignatureScript[10] ^= 0xff

	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	var scriptErr ruleerrors.ErrScriptValidation
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ErrScriptValidation, got: %v", err)
	}

	// Had the failure been cached, this would emit zero items.
	var deferredChecks []DeferredInputCheck
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}
	if len(deferredChecks) != len(tx.Inputs) {
		t.Fatalf("an invalid transaction must never be cached: expected %d deferred checks, got %d",
			len(tx.Inputs), len(deferredChecks))
	}
}

func TestWholeTransactionGranularity(t *testing.T) {
	ctx := newTestContext(t)
	first := ctx.fundPayToPubKey(t)
	second := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{first, second}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)
	// Corrupt only the second input; the first stays valid.
	tx.Inputs[1].SignatureScript[10] ^= 0xff

	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	var scriptErr ruleerrors.ErrScriptValidation
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ErrScriptValidation, got: %v", err)
	}
	if len(scriptErr.InvalidInputs) != 1 || scriptErr.InvalidInputs[0].InputIndex != 1 {
		t.Fatalf("expected exactly input 1 to fail, got: %s", scriptErr)
	}

	// The transaction-level entry must not exist even though input 0
	// individually passed: one item per input, not fewer.
	var deferredChecks []DeferredInputCheck
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}
	if len(deferredChecks) != 2 {
		t.Fatalf("expected 2 deferred checks for the partially-valid transaction, got %d", len(deferredChecks))
	}
}

func TestMalformedScriptClassification(t *testing.T) {
	ctx := newTestContext(t)
	first := ctx.fundPayToPubKey(t)
	second := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{first, second}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)
	// An unlocking script that cannot be parsed is a different rule
	// violation than one that parses and fails evaluation.
	tx.Inputs[1].SignatureScript = []byte{0x02}

	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	if !errors.Is(err, ruleerrors.ErrScriptMalformed) {
		t.Fatalf("expected ErrScriptMalformed, got: %v", err)
	}

	var deferredChecks []DeferredInputCheck
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}
	err = RunDeferredChecks(deferredChecks)
	if !errors.Is(err, ruleerrors.ErrScriptMalformed) {
		t.Fatalf("expected ErrScriptMalformed from the deferred run, got: %v", err)
	}
}

func TestDeferredMode(t *testing.T) {
	ctx := newTestContext(t)
	first := ctx.fundPayToPubKey(t)
	second := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{first, second}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)

	var deferredChecks []DeferredInputCheck
	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}
	if len(deferredChecks) != 2 {
		t.Fatalf("expected one deferred check per input, got %d", len(deferredChecks))
	}

	err = RunDeferredChecks(deferredChecks)
	if err != nil {
		t.Fatalf("expected all deferred checks to pass, got: %s", err)
	}

	// Scheduling alone must not have inserted anything; only the caller
	// does that, after aggregating results.
	var secondPass []DeferredInputCheck
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &secondPass)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}
	if len(secondPass) != 2 {
		t.Fatalf("deferred mode must not insert into the cache by itself, got %d checks", len(secondPass))
	}

	ctx.validator.InsertValidated(tx, txscript.MandatoryVerifyFlags)
	var thirdPass []DeferredInputCheck
	err = ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &thirdPass)
	if err != nil {
		t.Fatalf("expected a cache hit, got: %s", err)
	}
	if len(thirdPass) != 0 {
		t.Fatalf("expected zero deferred checks after InsertValidated, got %d", len(thirdPass))
	}
}

func TestDeferredChecksAttributeFailures(t *testing.T) {
	ctx := newTestContext(t)
	first := ctx.fundPayToPubKey(t)
	second := ctx.fundPayToPubKey(t)
	third := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{first, second, third}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)
	tx.Inputs[2].SignatureScript[10] ^= 0xff

	var deferredChecks []DeferredInputCheck
	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, &deferredChecks)
	if err != nil {
		t.Fatalf("deferred scheduling must succeed, got: %s", err)
	}

	err = RunDeferredChecks(deferredChecks)
	var scriptErr ruleerrors.ErrScriptValidation
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ErrScriptValidation from the deferred run, got: %v", err)
	}
	if len(scriptErr.InvalidInputs) != 1 || scriptErr.InvalidInputs[0].InputIndex != 2 {
		t.Fatalf("expected the failure attributed to input 2, got: %s", scriptErr)
	}
}

func TestDoubleSpendNotBypassedByCache(t *testing.T) {
	ctx := newTestContext(t)
	outpoint := ctx.fundPayToPubKey(t)
	tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
	ctx.signInputs(t, tx, txscript.MandatoryVerifyFlags, nil)

	err := ctx.validator.ValidateInputs(tx, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	if err != nil {
		t.Fatalf("expected a valid transaction, got: %s", err)
	}

	// Apply the spend, then try a second distinct transaction spending
	// the same output. The ledger, not the cache, must reject it.
	err = ctx.ledger.ApplyTransaction(tx, false)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	conflicting := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 7)
	conflicting.Inputs[0].SignatureScript = tx.Inputs[0].SignatureScript

	err = ctx.validator.ValidateInputs(conflicting, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	assertMissingOutpoint(t, err, outpoint)
}

func TestCompetingSpendsOfACoinbaseOutput(t *testing.T) {
	ctx := newTestContext(t)
	scriptPublicKey, err := scriptengine.PayToPubKey(ctx.serializedPubKey)
	if err != nil {
		t.Fatalf("PayToPubKey: %s", err)
	}
	coinbaseOutpoint := ctx.fund(t, scriptPublicKey, true)

	transactionA := spendingTransaction([]*externalapi.DomainOutpoint{coinbaseOutpoint}, 0)
	ctx.signInputs(t, transactionA, txscript.MandatoryVerifyFlags, nil)
	transactionB := spendingTransaction([]*externalapi.DomainOutpoint{coinbaseOutpoint}, 99)
	ctx.signInputs(t, transactionB, txscript.MandatoryVerifyFlags, nil)

	// Individually, each competing spend validates fine; B's validation
	// leaves a cache entry behind.
	err = ctx.validator.ValidateInputs(transactionA, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	if err != nil {
		t.Fatalf("expected transaction A to validate, got: %s", err)
	}
	err = ctx.validator.ValidateInputs(transactionB, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	if err != nil {
		t.Fatalf("expected transaction B to validate, got: %s", err)
	}

	// A block carrying both must be rejected: once A's spend is applied,
	// B's input no longer resolves.
	blockLedger := utxo.NewCollection()
	for outpoint, entry := range ctx.ledger {
		blockLedger.Add(&outpoint, entry)
	}
	err = blockLedger.ApplyTransaction(transactionA, false)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	err = ctx.validator.ValidateInputs(transactionB, blockLedger, txscript.MandatoryVerifyFlags, true, nil)
	assertMissingOutpoint(t, err, coinbaseOutpoint)

	// A block carrying only A is fine even though B was cache-validated
	// and never confirmed; a later pool re-check of B against the
	// post-A ledger then fails on resolution despite B's cache entry.
	err = ctx.ledger.ApplyTransaction(transactionA, false)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	err = ctx.validator.ValidateInputs(transactionB, ctx.ledger, txscript.MandatoryVerifyFlags, true, nil)
	assertMissingOutpoint(t, err, coinbaseOutpoint)
}

func TestAbsoluteLockTimeGuard(t *testing.T) {
	ctx := newTestContext(t)
	lockTimeGuarded, err := scriptengine.NewScriptBuilder().
		AddLockTimeGuard().
		AddCheckSig(ctx.serializedPubKey).
		Script()
	if err != nil {
		t.Fatalf("building the lock-time script: %s", err)
	}
	scriptPublicKey := &externalapi.ScriptPublicKey{Script: lockTimeGuarded, Version: 0}
	flags := txscript.MandatoryVerifyFlags | txscript.ScriptVerifyLockTime

	for _, useCache := range []bool{false, true} {
		outpoint := ctx.fund(t, scriptPublicKey, false)

		// The supplied lock value exceeds the transaction's lock time.
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 100)
		ctx.signInputs(t, tx, flags, map[int][][]byte{0: {scriptengine.GuardArgument(101)}})
		err := ctx.validator.ValidateInputs(tx, ctx.ledger, flags, useCache, nil)
		var scriptErr ruleerrors.ErrScriptValidation
		if !errors.As(err, &scriptErr) {
			t.Fatalf("useCache=%t: expected ErrScriptValidation, got: %v", useCache, err)
		}

		// Only the lock value changes; the signature stays valid since
		// the unlocking script is not covered by the signature hash, and
		// the changed transaction gets a fresh cache key.
		ctx.signInputs(t, tx, flags, map[int][][]byte{0: {scriptengine.GuardArgument(100)}})
		err = ctx.validator.ValidateInputs(tx, ctx.ledger, flags, useCache, nil)
		if err != nil {
			t.Fatalf("useCache=%t: expected the satisfied lock to validate, got: %s", useCache, err)
		}
	}
}

// lcg is a small deterministic pseudo-random sequence, so the monotonic
// restriction property is sampled over the same flag sets on every run.
type lcg struct {
	state uint64
}

func (l *lcg) next() uint64 {
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return l.state >> 16
}

func TestMonotonicFlagRestriction(t *testing.T) {
	ctx := newTestContext(t)
	forkID := txscript.ScriptEnableSighashForkID

	// Build a spread of transactions with flag-dependent defects. Each
	// is signed in the fork-id domain, which is the required flag that
	// every sampled set includes: it selects the signing domain rather
	// than restricting, so it is not itself subject to the property.
	type scenario struct {
		name string
		tx   *externalapi.DomainTransaction
	}

	var scenarios []scenario
	addScenario := func(name string, build func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction,
		scriptPublicKey *externalapi.ScriptPublicKey) {
		outpoint := ctx.fund(t, scriptPublicKey, false)
		scenarios = append(scenarios, scenario{name: name, tx: build(outpoint)})
	}

	payToPubKey, err := scriptengine.PayToPubKey(ctx.serializedPubKey)
	if err != nil {
		t.Fatalf("PayToPubKey: %s", err)
	}
	addScenario("valid", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
		ctx.signInputs(t, tx, forkID, nil)
		return tx
	}, payToPubKey)

	addScenario("stack residue", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
		ctx.signInputs(t, tx, forkID, map[int][][]byte{0: {{0x42, 0x42}}})
		return tx
	}, payToPubKey)

	addScenario("bad signature", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
		ctx.signInputs(t, tx, forkID, nil)
		tx.Inputs[0].SignatureScript[10] ^= 0xff
		return tx
	}, payToPubKey)

	batchScript, err := scriptengine.NewScriptBuilder().AddBatchCheckSig(ctx.serializedPubKey).Script()
	if err != nil {
		t.Fatalf("building the batch script: %s", err)
	}
	addScenario("non-zero dummy", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
		ctx.signInputs(t, tx, forkID, map[int][][]byte{0: {{0x01}}})
		return tx
	}, &externalapi.ScriptPublicKey{Script: batchScript, Version: 0})

	lockTimeScript, err := scriptengine.NewScriptBuilder().
		AddLockTimeGuard().
		AddCheckSig(ctx.serializedPubKey).
		Script()
	if err != nil {
		t.Fatalf("building the lock-time script: %s", err)
	}
	addScenario("unsatisfied lock time", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 50)
		ctx.signInputs(t, tx, forkID, map[int][][]byte{0: {scriptengine.GuardArgument(51)}})
		return tx
	}, &externalapi.ScriptPublicKey{Script: lockTimeScript, Version: 0})

	nopScript, err := scriptengine.NewScriptBuilder().
		AddUpgradableNop().
		AddCheckSig(ctx.serializedPubKey).
		Script()
	if err != nil {
		t.Fatalf("building the nop script: %s", err)
	}
	addScenario("upgradable nop", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
		ctx.signInputs(t, tx, forkID, nil)
		return tx
	}, &externalapi.ScriptPublicKey{Script: nopScript, Version: 0})

	redeemScript := []byte{0x01, 0x02, 0x03}
	scriptHashScript, err := scriptengine.NewScriptBuilder().
		AddScriptHashGuard(redeemScript).
		AddCheckSig(ctx.serializedPubKey).
		Script()
	if err != nil {
		t.Fatalf("building the script-hash script: %s", err)
	}
	addScenario("wrong redeem script", func(outpoint *externalapi.DomainOutpoint) *externalapi.DomainTransaction {
		tx := spendingTransaction([]*externalapi.DomainOutpoint{outpoint}, 0)
		ctx.signInputs(t, tx, forkID, map[int][][]byte{0: {{0x09, 0x09, 0x09}}})
		return tx
	}, &externalapi.ScriptPublicKey{Script: scriptHashScript, Version: 0})

	// Sample pairs (subset, superset) of flag sets, each including the
	// required fork-id flag, and check that validity under the superset
	// implies validity under the subset: adding a restricting flag can
	// only ever turn a pass into a failure.
	random := &lcg{state: 0x5eed}
	const draws = 4096
	allRestricting := uint64(txscript.StandardVerifyFlags &^ forkID)

	for draw := 0; draw < draws; draw++ {
		chosen := &scenarios[int(random.next())%len(scenarios)]
		superset := forkID | txscript.ScriptFlags(random.next()&allRestricting)
		subset := forkID | (superset & txscript.ScriptFlags(random.next()&allRestricting))

		supersetErr := ctx.validator.ValidateInputs(chosen.tx, ctx.ledger, superset, false, nil)
		subsetErr := ctx.validator.ValidateInputs(chosen.tx, ctx.ledger, subset, false, nil)
		if supersetErr == nil && subsetErr != nil {
			t.Fatalf("draw %d: scenario %q passed under flags %b but failed under the subset %b: %s\ntx: %s",
				draw, chosen.name, superset, subset, subsetErr, spew.Sdump(chosen.tx))
		}
	}
}
