package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/celestia-light/header"
	"github.com/celestiaorg/celestia-light/header/headertest"
)

func TestStore_AppendAndGet(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore())

	_, err := store.Head(ctx)
	assert.ErrorIs(t, err, header.ErrNoHead)
	assert.EqualValues(t, 0, store.Height())

	headers := suite.GenExtendedHeaders(10)
	for _, h := range headers {
		require.NoError(t, store.Append(ctx, h))
	}
	assert.EqualValues(t, 10, store.Height())

	head, err := store.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, suite.Head().Hash(), head.Hash())

	for _, h := range headers {
		byHeight, err := store.GetByHeight(ctx, h.Height())
		require.NoError(t, err)
		assert.Equal(t, h.Hash(), byHeight.Hash())

		byHash, err := store.Get(ctx, h.Hash())
		require.NoError(t, err)
		assert.Equal(t, h.Height(), byHash.Height())

		ok, err := store.Has(ctx, h.Hash())
		require.NoError(t, err)
		assert.True(t, ok)
	}

	rng, err := store.GetRange(ctx, 3, 8)
	require.NoError(t, err)
	require.Len(t, rng, 5)
	for i, h := range rng {
		assert.Equal(t, headers[i+2].Hash(), h.Hash())
	}

	_, err = store.GetByHeight(ctx, 11)
	assert.ErrorIs(t, err, header.ErrNotFound)
	_, err = store.Get(ctx, headertest.RandExtendedHeader(t).Hash())
	assert.ErrorIs(t, err, header.ErrNotFound)
}

func TestStore_EmptyAcceptsOnlyGenesis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(2)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore())

	err := store.Append(ctx, headers[1])
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.EqualValues(t, 0, store.Height())

	require.NoError(t, store.Append(ctx, headers[0]))
	require.NoError(t, store.Append(ctx, headers[1]))
}

func TestStore_AppendIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore())

	headers := suite.GenExtendedHeaders(5)
	for _, h := range headers {
		require.NoError(t, store.Append(ctx, h))
	}

	for _, h := range headers {
		err := store.Append(ctx, h)
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.EqualValues(t, 5, store.Height())
}

func TestStore_Conflict(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore())
	for _, h := range suite.GenExtendedHeaders(5) {
		require.NoError(t, store.Append(ctx, h))
	}

	fork := suite.Fork()
	forked := fork.GenExtendedHeaders(2)
	require.NoError(t, store.Append(ctx, suite.NextHeader()))

	// a different header at an already filled height
	err := store.Append(ctx, forked[0])
	assert.ErrorIs(t, err, ErrConflict)

	// a header at head+1 not linking to the head
	err = store.Append(ctx, forked[1])
	assert.ErrorIs(t, err, ErrConflict)

	assert.EqualValues(t, 6, store.Height())
	head, err := store.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, suite.Head().Hash(), head.Hash())
}

func TestStore_OutOfOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore())
	headers := suite.GenExtendedHeaders(5)
	require.NoError(t, store.Append(ctx, headers[0]))
	require.NoError(t, store.Append(ctx, headers[1]))

	err := store.Append(ctx, headers[3])
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.EqualValues(t, 2, store.Height())
}

func TestStore_Persistence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	ds := dssync.MutexWrap(datastore.NewMapDatastore())

	store, err := NewStore(ds, WithWriteBatchSize(4))
	require.NoError(t, err)
	require.NoError(t, store.Start(ctx))

	headers := suite.GenExtendedHeaders(10)
	for _, h := range headers {
		require.NoError(t, store.Append(ctx, h))
	}
	require.NoError(t, store.Stop(ctx))
	assert.ErrorIs(t, store.Append(ctx, suite.NextHeader()), errStoppedStore)

	reopened, err := NewStore(ds)
	require.NoError(t, err)
	require.NoError(t, reopened.Start(ctx))
	t.Cleanup(func() {
		_ = reopened.Stop(context.Background())
	})

	assert.EqualValues(t, 10, reopened.Height())
	for _, h := range headers {
		stored, err := reopened.GetByHeight(ctx, h.Height())
		require.NoError(t, err)
		assert.Equal(t, h.Hash(), stored.Hash())
	}

	// the chain continues from the persisted head
	require.NoError(t, reopened.Append(ctx, suite.Head()))
	assert.EqualValues(t, 11, reopened.Height())
}

func TestStore_PrefixInvariant(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	headers := suite.GenExtendedHeaders(100)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore(), WithWriteBatchSize(8))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				height := store.Height()
				for h := uint64(1); h <= height; h++ {
					stored, err := store.GetByHeight(ctx, h)
					if !assert.NoError(t, err) {
						return
					}
					if !assert.Equal(t, headers[h-1].Hash(), stored.Hash()) {
						return
					}
				}
			}
		}()
	}

	for _, h := range headers {
		require.NoError(t, store.Append(ctx, h))
	}
	close(done)
	wg.Wait()
}

func TestStore_WaitHeight(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)

	suite := headertest.NewTestSuite(t)
	store := NewTestStore(ctx, t, datastore.NewMapDatastore())
	headers := suite.GenExtendedHeaders(3)

	res := make(chan *header.ExtendedHeader, 1)
	go func() {
		h, err := store.WaitHeight(ctx, 3)
		assert.NoError(t, err)
		res <- h
	}()

	for _, h := range headers {
		require.NoError(t, store.Append(ctx, h))
	}

	select {
	case h := <-res:
		assert.Equal(t, headers[2].Hash(), h.Hash())
	case <-ctx.Done():
		t.Fatal("timeout waiting for height")
	}

	// elapsed heights are served right away
	h, err := store.WaitHeight(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, headers[0].Hash(), h.Hash())
}

func TestParameters_Validate(t *testing.T) {
	_, err := NewStore(datastore.NewMapDatastore(), WithStoreCacheSize(0))
	assert.Error(t, err)
	_, err = NewStore(datastore.NewMapDatastore(), WithIndexCacheSize(-1))
	assert.Error(t, err)
	_, err = NewStore(datastore.NewMapDatastore(), WithWriteBatchSize(0))
	assert.Error(t, err)
}
