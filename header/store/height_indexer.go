package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-datastore"

	"github.com/celestiaorg/celestia-light/header"
)

// heightIndexer simply stores and caches mappings between header Height and Hash.
type heightIndexer struct {
	ds    datastore.Batching
	cache *lru.Cache[uint64, header.Hash]
}

// newHeightIndexer creates new heightIndexer.
func newHeightIndexer(ds datastore.Batching, indexCacheSize int) (*heightIndexer, error) {
	cache, err := lru.New[uint64, header.Hash](indexCacheSize)
	if err != nil {
		return nil, err
	}

	return &heightIndexer{
		ds:    ds,
		cache: cache,
	}, nil
}

// HashByHeight loads a header hash corresponding to the given height.
func (hi *heightIndexer) HashByHeight(ctx context.Context, h uint64) (header.Hash, error) {
	if v, ok := hi.cache.Get(h); ok {
		return v, nil
	}

	val, err := hi.ds.Get(ctx, heightKey(h))
	if err != nil {
		return nil, err
	}

	hi.cache.Add(h, val)
	return val, nil
}

// IndexTo saves mapping between header Height and Hash to the given batch.
func (hi *heightIndexer) IndexTo(ctx context.Context, batch datastore.Batch, headers ...*header.ExtendedHeader) error {
	for _, h := range headers {
		err := batch.Put(ctx, heightKey(h.Height()), h.Hash())
		if err != nil {
			return err
		}
	}

	return nil
}
