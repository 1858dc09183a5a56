package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/celestiaorg/celestia-light/header"
)

// errElapsedHeight is thrown when a requested height was already provided to heightSub.
var errElapsedHeight = errors.New("elapsed height")

// heightSub provides a minimalistic mechanism to wait till header for a height becomes available.
type heightSub struct {
	// height refers to the latest locally available header height
	// that has been fully verified and inserted into the subjective chain
	height       atomic.Uint64
	heightReqsLk sync.Mutex
	heightReqs   map[uint64][]chan *header.ExtendedHeader
}

// newHeightSub instantiates new heightSub.
func newHeightSub() *heightSub {
	return &heightSub{
		heightReqs: make(map[uint64][]chan *header.ExtendedHeader),
	}
}

// Height reports current height.
func (hs *heightSub) Height() uint64 {
	return hs.height.Load()
}

// SetHeight sets the new head height for heightSub.
func (hs *heightSub) SetHeight(height uint64) {
	hs.height.Store(height)
}

// Sub subscribes for a header of a given height.
// It can return errElapsedHeight, which means a requested header was already provided
// and caller should get it elsewhere.
func (hs *heightSub) Sub(ctx context.Context, height uint64) (*header.ExtendedHeader, error) {
	if hs.Height() >= height {
		return nil, errElapsedHeight
	}

	hs.heightReqsLk.Lock()
	if hs.Height() >= height {
		// This is a rare case we have to account for.
		// The lock above can park a goroutine long enough for hs.height to change for a requested height,
		// leaving the request never fulfilled and the goroutine deadlocked.
		hs.heightReqsLk.Unlock()
		return nil, errElapsedHeight
	}
	resp := make(chan *header.ExtendedHeader, 1)
	hs.heightReqs[height] = append(hs.heightReqs[height], resp)
	hs.heightReqsLk.Unlock()

	select {
	case resp := <-resp:
		return resp, nil
	case <-ctx.Done():
		// no need to keep the request around
		hs.heightReqsLk.Lock()
		reqs := hs.heightReqs[height]
		for i, req := range reqs {
			if req == resp {
				hs.heightReqs[height] = append(reqs[:i], reqs[i+1:]...)
				break
			}
		}
		if len(hs.heightReqs[height]) == 0 {
			delete(hs.heightReqs, height)
		}
		hs.heightReqsLk.Unlock()
		return nil, ctx.Err()
	}
}

// Pub processes all the outstanding subscriptions matching the given header.
// Pub is only safe when called from one goroutine.
// For Pub to work correctly, heightSub has to be initialized with SetHeight
// so that given header is contiguous to the height on heightSub.
func (hs *heightSub) Pub(h *header.ExtendedHeader) {
	height := hs.Height()
	if height+1 != h.Height() {
		log.Fatalw("PLEASE FILE A BUG REPORT: header given to the heightSub is in the wrong order",
			"expected", height+1, "got", h.Height())
		return
	}
	// the header must be readable by the store before the height advances
	hs.SetHeight(h.Height())

	hs.heightReqsLk.Lock()
	defer hs.heightReqsLk.Unlock()

	reqs, ok := hs.heightReqs[h.Height()]
	if ok {
		for _, req := range reqs {
			req <- h // reqs must always be buffered, so this won't block
		}
		delete(hs.heightReqs, h.Height())
	}
}
