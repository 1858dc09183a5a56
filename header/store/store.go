package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	logging "github.com/ipfs/go-log/v2"

	"github.com/celestiaorg/celestia-light/header"
)

var log = logging.Logger("header/store")

var (
	// ErrOutOfOrder is returned when the appended header is not adjacent to the head.
	ErrOutOfOrder = errors.New("header/store: out of order header")
	// ErrConflict is returned when the appended header does not link to the head, or
	// when a different header is already stored at its height.
	ErrConflict = errors.New("header/store: conflicting header")
	// ErrDuplicate is returned when the appended header is already stored.
	// It is benign and the store is left untouched.
	ErrDuplicate = errors.New("header/store: duplicate header")

	// errStoppedStore is returned for attempted operations on a stopped store
	errStoppedStore = errors.New("header/store: stopped store")
)

func isDuplicate(err error) bool  { return errors.Is(err, ErrDuplicate) }
func isConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func isOutOfOrder(err error) bool { return errors.Is(err, ErrOutOfOrder) }

// Store keeps the contiguous chain of validated ExtendedHeaders over a Datastore.
// Headers are indexed by their hash and height, and the head only ever grows by one
// linked header at a time. Readers never observe a height before the header at it
// is available.
type Store struct {
	// header storing
	//
	// underlying KV store
	ds datastore.Batching
	// recently accessed headers
	cache *lru.Cache[string, *header.ExtendedHeader]

	// header heights management
	//
	// maps heights to hashes
	heightIndex *heightIndexer
	// manages current store read head height (1) and
	// allows callers to wait till header for a height is stored (2)
	heightSub *heightSub

	// writing to datastore
	//
	// serialises appends
	writeLk sync.Mutex
	// writeHead maintains the current write head
	writeHead *header.ExtendedHeader
	// pending keeps headers pending to be written in one batch
	pending *batch
	// signals the flushLoop a batch is ready
	flushCh chan struct{}
	// signals the flushLoop to stop
	stopCh chan struct{}
	// signals when writes are finished
	writesDn chan struct{}

	metrics *metrics

	Params Parameters
}

// NewStore constructs a Store over datastore.
func NewStore(ds datastore.Batching, opts ...Option) (*Store, error) {
	params := DefaultParameters()
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("header/store: store creation failed: %w", err)
	}

	cache, err := lru.New[string, *header.ExtendedHeader](params.StoreCacheSize)
	if err != nil {
		return nil, err
	}

	wrappedStore := namespace.Wrap(ds, storePrefix)
	index, err := newHeightIndexer(wrappedStore, params.IndexCacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{
		ds:          wrappedStore,
		cache:       cache,
		heightIndex: index,
		heightSub:   newHeightSub(),
		pending:     newBatch(params.WriteBatchSize),
		flushCh:     make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		writesDn:    make(chan struct{}),
		Params:      params,
	}, nil
}

// Start loads the persisted head, if any, and starts the background writer.
func (s *Store) Start(ctx context.Context) error {
	head, err := s.readHead(ctx)
	switch {
	case errors.Is(err, datastore.ErrNotFound), errors.Is(err, header.ErrNotFound):
		log.Info("empty store, waiting for genesis")
	case err != nil:
		return fmt.Errorf("header/store: loading head: %w", err)
	default:
		s.writeHead = head
		s.heightSub.SetHeight(head.Height())
		log.Infow("loaded head", "height", head.Height(), "hash", head.Hash())
	}

	go s.flushLoop()
	return nil
}

// Stop flushes all the pending headers and stops the background writer.
func (s *Store) Stop(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errStoppedStore
	default:
	}
	// prevent further writes to Store
	s.writeLk.Lock()
	close(s.stopCh)
	s.writeLk.Unlock()

	select {
	case <-s.writesDn: // wait till it is done writing
	case <-ctx.Done():
		return ctx.Err()
	}

	// cleanup caches
	s.cache.Purge()
	s.heightIndex.cache.Purge()
	return s.metrics.close()
}

// Height reports the height of the contiguous validated head, or zero for an empty store.
func (s *Store) Height() uint64 {
	return s.heightSub.Height()
}

// Head returns the header at the current head height.
func (s *Store) Head(ctx context.Context) (*header.ExtendedHeader, error) {
	height := s.Height()
	if height == 0 {
		return nil, header.ErrNoHead
	}
	return s.GetByHeight(ctx, height)
}

// Get returns the header with the given hash.
func (s *Store) Get(ctx context.Context, hash header.Hash) (*header.ExtendedHeader, error) {
	if v, ok := s.cache.Get(hash.String()); ok {
		return v, nil
	}
	// check if the requested header is not yet written on disk
	if h := s.pending.Get(hash); h != nil {
		return h, nil
	}

	b, err := s.ds.Get(ctx, hashKey(hash))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, header.ErrNotFound
		}

		return nil, err
	}

	h, err := header.UnmarshalExtendedHeader(b)
	if err != nil {
		return nil, fmt.Errorf("header/store: corrupted header %s: %w", hash, err)
	}

	s.cache.Add(h.Hash().String(), h)
	return h, nil
}

// GetByHeight returns the header at the given height,
// or header.ErrNotFound if the height is above the head.
func (s *Store) GetByHeight(ctx context.Context, height uint64) (*header.ExtendedHeader, error) {
	if height == 0 {
		return nil, fmt.Errorf("header/store: height must be bigger than zero")
	}
	if height > s.Height() {
		return nil, header.ErrNotFound
	}
	return s.getByHeight(ctx, height)
}

// WaitHeight blocks until the header at the given height is stored and returns it.
func (s *Store) WaitHeight(ctx context.Context, height uint64) (*header.ExtendedHeader, error) {
	if height == 0 {
		return nil, fmt.Errorf("header/store: height must be bigger than zero")
	}
	// if the requested 'height' was not yet published
	// we subscribe to it
	h, err := s.heightSub.Sub(ctx, height)
	if !errors.Is(err, errElapsedHeight) {
		return h, err
	}
	// otherwise, the errElapsedHeight is thrown,
	// which means the requested 'height' should be present
	return s.getByHeight(ctx, height)
}

func (s *Store) getByHeight(ctx context.Context, height uint64) (*header.ExtendedHeader, error) {
	// check if the requested header is not yet written on disk
	if h := s.pending.GetByHeight(height); h != nil {
		return h, nil
	}

	hash, err := s.heightIndex.HashByHeight(ctx, height)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, header.ErrNotFound
		}

		return nil, err
	}

	return s.Get(ctx, hash)
}

// GetRange returns the contiguous range of headers in [from:to).
func (s *Store) GetRange(ctx context.Context, from, to uint64) ([]*header.ExtendedHeader, error) {
	if from == 0 || from >= to {
		return nil, fmt.Errorf("header/store: invalid range [%d:%d)", from, to)
	}

	h, err := s.GetByHeight(ctx, to-1)
	if err != nil {
		return nil, err
	}

	ln := to - from
	headers := make([]*header.ExtendedHeader, ln)
	for i := ln - 1; i > 0; i-- {
		headers[i] = h
		h, err = s.Get(ctx, h.LastHeader())
		if err != nil {
			return nil, err
		}
	}
	headers[0] = h

	return headers, nil
}

// Has checks whether the header with the given hash is stored.
func (s *Store) Has(ctx context.Context, hash header.Hash) (bool, error) {
	if ok := s.cache.Contains(hash.String()); ok {
		return ok, nil
	}
	// check if the requested header is not yet written on disk
	if ok := s.pending.Has(hash); ok {
		return ok, nil
	}

	return s.ds.Has(ctx, hashKey(hash))
}

// Append extends the chain with the given header. The header must already be validated.
//
// It returns ErrOutOfOrder for a header above head+1, ErrConflict for a header not linking
// to the head or differing from the stored one at its height, and ErrDuplicate for an
// already stored header. An empty store accepts only the genesis height.
func (s *Store) Append(ctx context.Context, h *header.ExtendedHeader) (err error) {
	if h == nil || h.Commit == nil {
		return errors.New("header/store: nil header")
	}
	defer func() { s.metrics.observeAppend(ctx, err) }()

	// taking the ownership of append
	// mainly, this is need to avoid race conditions for s.writeHead
	s.writeLk.Lock()
	defer s.writeLk.Unlock()

	select {
	case <-s.stopCh:
		return errStoppedStore
	default:
	}

	height := s.heightSub.Height()
	switch {
	case h.Height() == 0:
		return fmt.Errorf("header/store: header height must be bigger than zero")
	case h.Height() > height+1:
		return fmt.Errorf("%w: head is at %d, got %d", ErrOutOfOrder, height, h.Height())
	case h.Height() <= height:
		stored, err := s.getByHeight(ctx, h.Height())
		if err != nil {
			return err
		}
		if bytes.Equal(stored.Hash(), h.Hash()) {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: height %d has %s stored, got %s", ErrConflict, h.Height(), stored.Hash(), h.Hash())
	}

	if head := s.writeHead; head != nil && !bytes.Equal(h.LastHeader(), head.Hash()) {
		return fmt.Errorf("%w: head %s at %d, got header linking to %s",
			ErrConflict, head.Hash(), head.Height(), h.LastHeader())
	}

	// make the header readable first, then advance the height
	s.pending.Append(h)
	s.heightSub.Pub(h)
	s.writeHead = h
	log.Debugw("new head", "height", h.Height(), "hash", h.Hash())

	if s.pending.Len() >= s.Params.WriteBatchSize {
		select {
		case s.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// flushLoop performs writing task to the underlying datastore in a separate routine
// This way writes are controlled and manageable from one place allowing
// (1) Appends not to be blocked on long disk IO writes and underlying DB compactions
// (2) Batching header writes
func (s *Store) flushLoop() {
	defer close(s.writesDn)
	ctx := context.Background()
	for {
		var stopping bool
		select {
		case <-s.flushCh:
		case <-s.stopCh:
			stopping = true
		}

		headers := s.pending.GetAll()
		startTime := time.Now()
		err := s.flush(ctx, headers...)
		s.metrics.observeFlush(ctx, time.Since(startTime), err != nil)
		if err != nil {
			from, to := headers[0].Height(), headers[len(headers)-1].Height()
			log.Errorw("writing header batch", "from", from, "to", to, "err", err)
		} else {
			s.pending.Trim(len(headers))
		}

		if stopping {
			return
		}
	}
}

// flush writes the given headers on disk
func (s *Store) flush(ctx context.Context, headers ...*header.ExtendedHeader) (err error) {
	ln := len(headers)
	if ln == 0 {
		return nil
	}

	batch, err := s.ds.Batch(ctx)
	if err != nil {
		return err
	}

	// collect all the headers in the batch to be written
	for _, h := range headers {
		b, err := h.MarshalBinary()
		if err != nil {
			return err
		}

		err = batch.Put(ctx, headerKey(h), b)
		if err != nil {
			return err
		}
	}

	// add reference to the new head
	err = batch.Put(ctx, headKey, headers[ln-1].Hash())
	if err != nil {
		return err
	}

	// write height indexes for headers as well
	err = s.heightIndex.IndexTo(ctx, batch, headers...)
	if err != nil {
		return err
	}

	// finally, commit the batch on disk
	if err = batch.Commit(ctx); err != nil {
		return err
	}

	for _, h := range headers {
		s.cache.Add(h.Hash().String(), h)
	}
	return nil
}

// readHead loads the head from the disk.
func (s *Store) readHead(ctx context.Context) (*header.ExtendedHeader, error) {
	b, err := s.ds.Get(ctx, headKey)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, b)
}
