package store

import (
	"context"
	"testing"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"
)

// NewTestStore creates and starts a Store over the given datastore,
// stopping it on test cleanup.
func NewTestStore(ctx context.Context, t testing.TB, ds datastore.Datastore, opts ...Option) *Store {
	store, err := NewStore(dssync.MutexWrap(ds), opts...)
	require.NoError(t, err)

	err = store.Start(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Stop(context.Background())
	})
	return store
}
