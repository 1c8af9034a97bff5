package sighashcache

import (
	"testing"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
)

func transactionForTest(lockTime uint64) *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Version: 0,
		Inputs: []*externalapi.DomainTransactionInput{{
			PreviousOutpoint: *externalapi.NewDomainOutpoint(
				externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{1}), 0),
			Sequence: 1,
		}},
		Outputs: []*externalapi.DomainTransactionOutput{{
			Value:           1000,
			ScriptPublicKey: &externalapi.ScriptPublicKey{Script: []byte{0x01}, Version: 0},
		}},
		LockTime: lockTime,
	}
}

func TestGetAndAdd(t *testing.T) {
	cache, err := New(2)
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	tx := transactionForTest(0)
	transactionID := consensushashing.TransactionID(tx)

	if _, ok := cache.Get(transactionID); ok {
		t.Fatal("expected a miss on a fresh cache")
	}

	reusedValues := consensushashing.NewSighashReusedValues(tx)
	cache.Add(transactionID, reusedValues)

	cached, ok := cache.Get(transactionID)
	if !ok {
		t.Fatal("expected a hit after Add")
	}
	if cached != reusedValues {
		t.Fatal("expected the exact midstates that were added")
	}
}

func TestEvictionBeyondCapacity(t *testing.T) {
	cache, err := New(1)
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	first := transactionForTest(1)
	second := transactionForTest(2)
	firstID := consensushashing.TransactionID(first)
	secondID := consensushashing.TransactionID(second)

	cache.Add(firstID, consensushashing.NewSighashReusedValues(first))
	cache.Add(secondID, consensushashing.NewSighashReusedValues(second))

	if _, ok := cache.Get(firstID); ok {
		t.Fatal("expected the least recently used entry to be evicted")
	}
	if _, ok := cache.Get(secondID); !ok {
		t.Fatal("expected the most recent entry to survive")
	}
}

func TestNilCache(t *testing.T) {
	var cache *Cache

	tx := transactionForTest(0)
	transactionID := consensushashing.TransactionID(tx)
	cache.Add(transactionID, consensushashing.NewSighashReusedValues(tx))
	if _, ok := cache.Get(transactionID); ok {
		t.Fatal("a nil cache must always miss")
	}
}
