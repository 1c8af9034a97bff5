package sighashcache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/cruxnet/cruxd/domain/consensus/model/externalapi"
	"github.com/cruxnet/cruxd/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// Cache keeps the reused sighash midstates of recently seen transactions
// keyed by transaction ID, so a transaction validated at mempool
// admission does not have to rebuild them when the block carrying it is
// connected. The midstates are read-only once built, which is what makes
// sharing them across validation attempts sound.
type Cache struct {
	reusedValues *lru.Cache
}

// New creates a Cache that holds midstates for up to maxTransactions
// transactions, evicting the least recently used beyond that.
func New(maxTransactions int) (*Cache, error) {
	reusedValues, err := lru.New(maxTransactions)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Cache{reusedValues: reusedValues}, nil
}

// Get returns the cached midstates for the given transaction ID, if any.
func (c *Cache) Get(transactionID *externalapi.DomainTransactionID) (*consensushashing.SighashReusedValues, bool) {
	if c == nil {
		return nil, false
	}
	value, ok := c.reusedValues.Get(*transactionID)
	if !ok {
		return nil, false
	}
	return value.(*consensushashing.SighashReusedValues), true
}

// Add caches the midstates for the given transaction ID.
func (c *Cache) Add(transactionID *externalapi.DomainTransactionID,
	reusedValues *consensushashing.SighashReusedValues) {

	if c == nil {
		return
	}
	c.reusedValues.Add(*transactionID, reusedValues)
}
