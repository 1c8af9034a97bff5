package txscript

import (
	"testing"
)

// TestNormalizeExhaustive walks every possible flag combination and checks
// that normalization is a closure: idempotent, monotone (never drops a
// flag), and that no normalized set is left with an implied companion
// missing.
func TestNormalizeExhaustive(t *testing.T) {
	for combination := ScriptFlags(0); combination <= allFlags; combination++ {
		normalized := combination.Normalize()

		if normalized&combination != combination {
			t.Fatalf("Normalize(%b) = %b dropped flags", combination, normalized)
		}
		if normalized.Normalize() != normalized {
			t.Fatalf("Normalize(%b) = %b is not idempotent", combination, normalized)
		}
		for flag, implied := range impliedFlags {
			if normalized.HasFlag(flag) && !normalized.HasFlag(implied) {
				t.Fatalf("Normalize(%b) = %b has %b set without its implied %b",
					combination, normalized, flag, implied)
			}
		}
	}
}

func TestNormalizeCleanStackImpliesScriptHash(t *testing.T) {
	normalized := ScriptVerifyCleanStack.Normalize()
	if !normalized.HasFlag(ScriptVerifyScriptHash) {
		t.Fatalf("expected clean-stack to imply script-hash evaluation, got %b", normalized)
	}
}

// TestStandardFlagsAreNormalized makes sure the predefined flag sets are
// fixed points of Normalize, so using them directly as cache keys is
// equivalent to normalizing first.
func TestStandardFlagsAreNormalized(t *testing.T) {
	for _, flags := range []ScriptFlags{MandatoryVerifyFlags, StandardVerifyFlags} {
		if flags.Normalize() != flags {
			t.Fatalf("flag set %b is not normalized", flags)
		}
	}

	if StandardVerifyFlags&MandatoryVerifyFlags != MandatoryVerifyFlags {
		t.Fatal("standard flags must be a superset of mandatory flags")
	}
}
