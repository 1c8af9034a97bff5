package txscript

// ScriptFlags is a bitmask defining additional operations or tests that
// will be done when executing a script pair. Flags are purely
// restrictive: enabling one can only turn a passing script into a
// failing one, never the reverse. The single carve-out is
// ScriptEnableSighashForkID, which changes how signature hashes are
// interpreted and must always be supplied by callers whose signers use
// the post-fork signing domain.
type ScriptFlags uint32

const (
	// ScriptVerifyStrictEncoding defines that signatures must be
	// strictly encoded, with no padding beyond the signature itself
	// and its hash-type byte.
	ScriptVerifyStrictEncoding ScriptFlags = 1 << iota

	// ScriptVerifyScriptHash defines that script-hash outputs are
	// evaluated against the redeem script the spender supplies, rather
	// than being treated as anyone-can-spend.
	ScriptVerifyScriptHash

	// ScriptVerifyNullDummy defines that the extra dummy argument
	// consumed by batch signature checks must be a zero byte.
	ScriptVerifyNullDummy

	// ScriptVerifyCleanStack defines that nothing may be left of the
	// unlocking script once the locking script has consumed what it
	// needs. It only makes sense together with ScriptVerifyScriptHash,
	// which Normalize enforces.
	ScriptVerifyCleanStack

	// ScriptVerifyMinimalData defines that pushed data must use the
	// smallest possible encoding.
	ScriptVerifyMinimalData

	// ScriptVerifyLockTime defines that absolute lock-time guards in
	// locking scripts are enforced against the transaction's lock time.
	ScriptVerifyLockTime

	// ScriptVerifySequence defines that relative lock-time guards in
	// locking scripts are enforced against the spending input's
	// sequence.
	ScriptVerifySequence

	// ScriptDiscourageUpgradableNops defines that the use of
	// currently-unassigned guard opcodes is treated as a failure, so
	// that transactions relying on them do not propagate before the
	// opcodes are given meaning.
	ScriptDiscourageUpgradableNops

	// ScriptEnableSighashForkID defines that signature hashes are
	// computed under the post-fork domain-separation key. Signatures
	// made for other signing domains never verify under it, and ones
	// made under it never verify elsewhere.
	ScriptEnableSighashForkID
)

// allFlags is the union of every defined flag. Keep it in sync when
// adding flags; TestNormalizeExhaustive iterates up to it.
const allFlags = ScriptVerifyStrictEncoding |
	ScriptVerifyScriptHash |
	ScriptVerifyNullDummy |
	ScriptVerifyCleanStack |
	ScriptVerifyMinimalData |
	ScriptVerifyLockTime |
	ScriptVerifySequence |
	ScriptDiscourageUpgradableNops |
	ScriptEnableSighashForkID

// MandatoryVerifyFlags are the rules every block connection enforces.
const MandatoryVerifyFlags = ScriptVerifyScriptHash |
	ScriptVerifyStrictEncoding |
	ScriptEnableSighashForkID

// StandardVerifyFlags are the rules enforced at mempool admission. They
// are a superset of MandatoryVerifyFlags: a transaction standard enough
// for the pool is always valid in a block.
const StandardVerifyFlags = MandatoryVerifyFlags |
	ScriptVerifyNullDummy |
	ScriptVerifyCleanStack |
	ScriptVerifyMinimalData |
	ScriptVerifyLockTime |
	ScriptVerifySequence |
	ScriptDiscourageUpgradableNops

// impliedFlags is the closed implication relation between flags: if the
// key flag is set, every flag in the value must be set as well for the
// combination to be meaningful. Normalize forces the implied flags on.
// The relation is a fixed table, so flag interactions can be checked
// exhaustively rather than only sampled.
var impliedFlags = map[ScriptFlags]ScriptFlags{
	// A clean stack cannot be judged without evaluating redeem
	// scripts, since an unevaluated redeem script is indistinguishable
	// from stack residue.
	ScriptVerifyCleanStack: ScriptVerifyScriptHash,
}

// HasFlag returns whether all the bits in flag are set in flags.
func (flags ScriptFlags) HasFlag(flag ScriptFlags) bool {
	return flags&flag == flag
}

// Normalize returns flags closed over the implication relation: any
// flag whose companions are required gets those companions forced on.
// Two flag sets that are logically equivalent normalize to the same
// value, so cache keys derived from normalized flags never split one
// logical rule set into distinct entries.
func (flags ScriptFlags) Normalize() ScriptFlags {
	normalized := flags
	for {
		before := normalized
		for flag, implied := range impliedFlags {
			if normalized.HasFlag(flag) {
				normalized |= implied
			}
		}
		if normalized == before {
			return normalized
		}
	}
}
