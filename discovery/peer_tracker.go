package discovery

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

const (
	// rewardScore is added to the score of a peer that served valid data
	rewardScore = 1.0
	// maxScore bounds the score a peer can accumulate, so that a long history of good
	// behaviour cannot outweigh recent misbehaviour for too long
	maxScore = 10.0
	// maxAwaitingTime is how long the score of a disconnected peer is kept
	maxAwaitingTime = time.Hour
)

// peerStat keeps the score of a peer.
type peerStat struct {
	score float64
	// removedAt is set once the peer disconnects
	removedAt time.Time
}

// peerTracker ranks peers by the quality of the data they served.
type peerTracker struct {
	lk    sync.RWMutex
	stats map[peer.ID]*peerStat
}

func newPeerTracker() *peerTracker {
	return &peerTracker{
		stats: make(map[peer.ID]*peerStat),
	}
}

func (p *peerTracker) stat(id peer.ID) *peerStat {
	stat, ok := p.stats[id]
	if !ok {
		stat = &peerStat{}
		p.stats[id] = stat
	}
	return stat
}

func (p *peerTracker) penalize(id peer.ID, weight float64) float64 {
	p.lk.Lock()
	defer p.lk.Unlock()
	stat := p.stat(id)
	stat.score -= weight
	return stat.score
}

func (p *peerTracker) reward(id peer.ID) {
	p.lk.Lock()
	defer p.lk.Unlock()
	stat := p.stat(id)
	stat.score = min(stat.score+rewardScore, maxScore)
}

func (p *peerTracker) score(id peer.ID) float64 {
	p.lk.RLock()
	defer p.lk.RUnlock()
	if stat, ok := p.stats[id]; ok {
		return stat.score
	}
	return 0
}

func (p *peerTracker) connected(id peer.ID) {
	p.lk.Lock()
	defer p.lk.Unlock()
	if stat, ok := p.stats[id]; ok {
		stat.removedAt = time.Time{}
	}
}

func (p *peerTracker) disconnected(id peer.ID) {
	p.lk.Lock()
	defer p.lk.Unlock()
	if stat, ok := p.stats[id]; ok {
		stat.removedAt = time.Now().Add(maxAwaitingTime)
	}
}

// rank sorts the given peers by score, best first.
// Peers of equal score keep their relative order.
func (p *peerTracker) rank(peers []peer.ID) []peer.ID {
	p.lk.RLock()
	defer p.lk.RUnlock()

	scoreOf := func(id peer.ID) float64 {
		if stat, ok := p.stats[id]; ok {
			return stat.score
		}
		return 0
	}
	slices.SortStableFunc(peers, func(a, b peer.ID) int {
		return cmp.Compare(scoreOf(b), scoreOf(a))
	})
	return peers
}

// gc removes the scores of peers disconnected for more than maxAwaitingTime.
func (p *peerTracker) gc() {
	p.lk.Lock()
	defer p.lk.Unlock()
	now := time.Now()
	for id, stat := range p.stats {
		if !stat.removedAt.IsZero() && stat.removedAt.Before(now) {
			delete(p.stats, id)
		}
	}
}

func (p *peerTracker) size() int {
	p.lk.RLock()
	defer p.lk.RUnlock()
	return len(p.stats)
}
