package scriptengine

import (
	"sync"

	"github.com/kaspanet/go-secp256k1"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
)

// sigCacheEntry represents an entry in the SigCache. Entries within the
// SigCache are keyed according to the sigHash of the signature. In the
// occasion of a sigHash collision, the validity of the cached entry is
// determined by comparing the full signature and public key as well.
type sigCacheEntry struct {
	signature secp256k1.SerializedSchnorrSignature
	pubKey    secp256k1.SerializedSchnorrPublicKey
}

// SigCache implements a Schnorr signature verification cache with a
// randomized entry eviction policy. Only valid signatures are ever added
// to the cache: the presence of an entry proves the (sigHash, signature,
// pubKey) triple previously verified, so re-verification can be skipped.
//
// The cache is safe for concurrent access.
type SigCache struct {
	sync.RWMutex
	validSigs  map[externalapi.DomainHash]sigCacheEntry
	maxEntries uint
}

// NewSigCache creates and initializes a new instance of SigCache. Its
// sole parameter is the maximum number of entries allowed to exist in
// the cache at any particular moment.
func NewSigCache(maxEntries uint) *SigCache {
	return &SigCache{
		validSigs:  make(map[externalapi.DomainHash]sigCacheEntry, maxEntries),
		maxEntries: maxEntries,
	}
}

// Exists returns whether the triple has previously been recorded as a
// valid signature of sigHash.
//
// This function is safe for concurrent access. Readers won't be blocked
// unless there exists a writer, adding an entry to the SigCache.
func (s *SigCache) Exists(sigHash externalapi.DomainHash,
	signature *secp256k1.SerializedSchnorrSignature, pubKey *secp256k1.SerializedSchnorrPublicKey) bool {

	if s == nil {
		return false
	}
	s.RLock()
	entry, ok := s.validSigs[sigHash]
	s.RUnlock()

	return ok && entry.pubKey == *pubKey && entry.signature == *signature
}

// Add adds an entry for a signature over sigHash under the given public
// key. In the event that the SigCache is 'full', an existing entry is
// randomly chosen to be evicted in order to make room for the new one.
//
// This function is safe for concurrent access. Writers will block
// simultaneous readers until function execution has concluded.
func (s *SigCache) Add(sigHash externalapi.DomainHash,
	signature *secp256k1.SerializedSchnorrSignature, pubKey *secp256k1.SerializedSchnorrPublicKey) {

	if s == nil || s.maxEntries == 0 {
		return
	}
	s.Lock()
	defer s.Unlock()

	// If adding this new entry will put us over the max number of allowed
	// entries, then evict an entry. Go's range statement iterates maps in
	// pseudo-random order, so picking the first visited key approximates
	// a random eviction with no bookkeeping.
	if uint(len(s.validSigs)+1) > s.maxEntries {
		for foundSigHash := range s.validSigs {
			delete(s.validSigs, foundSigHash)
			break
		}
	}
	s.validSigs[sigHash] = sigCacheEntry{signature: *signature, pubKey: *pubKey}
}
