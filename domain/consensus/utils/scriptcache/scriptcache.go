package scriptcache

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/hashes"
	"github.com/cruxnet/cruxd/domain/consensus/utils/txscript"
	"github.com/pkg/errors"
)

const (
	shardCount = 64

	// approximateBytesPerEntry is the estimated in-memory cost of one
	// cache entry: the 32-byte key plus map bucket overhead.
	approximateBytesPerEntry = 96
)

// Cache remembers which transactions have had every one of their inputs'
// scripts verified successfully, and under which exact rule flags. It is
// a performance cache and never a source of truth: membership means "a
// full verification under this precise key already succeeded", absence
// means nothing, and no negative outcome is ever recorded.
//
// Keys are salted with a per-instance random key so an attacker cannot
// grind transactions into colliding cache slots offline. Entries are
// spread over independently-locked shards so inserts on one shard never
// block lookups on the others; block connection validates many
// transactions concurrently against a single Cache.
//
// A nil *Cache is valid and means caching is unavailable: lookups miss
// and inserts do nothing, so every validation simply falls back to full
// script execution.
type Cache struct {
	salt             [32]byte
	shards           [shardCount]shard
	capacityPerShard int
}

type shard struct {
	mutex   sync.RWMutex
	entries map[[32]byte]struct{}
}

// New creates a Cache that will hold approximately maxBytes worth of
// entries. Creating a new Cache is the only way to discard prior
// entries; there is no reset.
func New(maxBytes uint64) (*Cache, error) {
	maxEntries := maxBytes / approximateBytesPerEntry
	capacityPerShard := int(maxEntries / shardCount)
	if capacityPerShard < 1 {
		capacityPerShard = 1
	}

	cache := &Cache{capacityPerShard: capacityPerShard}
	if _, err := rand.Read(cache.salt[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate script cache salt")
	}
	for i := range cache.shards {
		cache.shards[i].entries = make(map[[32]byte]struct{}, capacityPerShard)
	}
	return cache, nil
}

// Lookup returns whether the given transaction has previously been fully
// verified under the given flags. Flags must already be normalized by
// the caller; two different normalizations of the same logical rule set
// would otherwise occupy two slots.
func (c *Cache) Lookup(transactionID *externalapi.DomainTransactionID, flags txscript.ScriptFlags) bool {
	if c == nil {
		return false
	}
	key := c.entryKey(transactionID, flags)
	shard := &c.shards[key[0]%shardCount]

	shard.mutex.RLock()
	defer shard.mutex.RUnlock()
	_, ok := shard.entries[key]
	return ok
}

// Insert records that the given transaction has been fully verified
// under the given flags. It is idempotent and safe for concurrent use.
// When a shard is full a random resident entry is evicted; losing an
// entry only costs a future re-verification, never a wrong answer.
func (c *Cache) Insert(transactionID *externalapi.DomainTransactionID, flags txscript.ScriptFlags) {
	if c == nil {
		return
	}
	key := c.entryKey(transactionID, flags)
	shard := &c.shards[key[0]%shardCount]

	shard.mutex.Lock()
	defer shard.mutex.Unlock()
	if _, ok := shard.entries[key]; ok {
		return
	}
	if len(shard.entries) >= c.capacityPerShard {
		// Rely on the random starting point of Go's map iteration to
		// pick the victim. The salt already prevents an adversary from
		// steering which entries share a shard, so the eviction order
		// does not need to be any smarter.
		for existingKey := range shard.entries {
			delete(shard.entries, existingKey)
			break
		}
	}
	shard.entries[key] = struct{}{}
}

// EntryCount returns the current number of entries across all shards.
func (c *Cache) EntryCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mutex.RLock()
		count += len(shard.entries)
		shard.mutex.RUnlock()
	}
	return count
}

// MaxEntries returns the total entry capacity of the cache.
func (c *Cache) MaxEntries() int {
	if c == nil {
		return 0
	}
	return c.capacityPerShard * shardCount
}

func (c *Cache) entryKey(transactionID *externalapi.DomainTransactionID, flags txscript.ScriptFlags) [32]byte {
	writer, err := hashes.NewKeyedHashWriter(c.salt[:])
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. The salt is exactly 32 bytes"))
	}
	writer.InfallibleWrite(transactionID.ByteSlice())

	var flagBytes [4]byte
	binary.LittleEndian.PutUint32(flagBytes[:], uint32(flags))
	writer.InfallibleWrite(flagBytes[:])

	return *writer.Finalize().ByteArray()
}
