package discovery

import (
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
)

func TestPeerTracker_Rank(t *testing.T) {
	tracker := newPeerTracker()
	peers := []peer.ID{"a", "b", "c", "d"}

	tracker.penalize("a", 0.5)
	tracker.reward("c")

	assert.Equal(t, []peer.ID{"c", "b", "d", "a"}, tracker.rank(peers))
}

func TestPeerTracker_RewardIsCapped(t *testing.T) {
	tracker := newPeerTracker()
	for range 100 {
		tracker.reward("a")
	}
	assert.Equal(t, maxScore, tracker.score("a"))
	assert.Equal(t, maxScore-1, tracker.penalize("a", 1))
}

func TestPeerTracker_GC(t *testing.T) {
	tracker := newPeerTracker()
	tracker.penalize("gone", 1)
	tracker.penalize("back", 1)
	tracker.penalize("here", 1)

	tracker.disconnected("gone")
	tracker.disconnected("back")
	tracker.connected("back")
	// pretend the disconnection happened long ago
	tracker.stats["gone"].removedAt = time.Now().Add(-time.Second)

	tracker.gc()
	assert.Equal(t, 2, tracker.size())
	assert.Zero(t, tracker.score("gone"))
	assert.Equal(t, -1.0, tracker.score("back"))
}
