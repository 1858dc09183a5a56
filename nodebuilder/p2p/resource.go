package p2p

import (
	"context"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/network"
	rcmgr "github.com/libp2p/go-libp2p/p2p/host/resource-manager"
	ma "github.com/multiformats/go-multiaddr"
	madns "github.com/multiformats/go-multiaddr-dns"
)

// resourceManager constructs a scaled ResourceManager that never limits
// the connections to bootstrappers and mutual peers.
func resourceManager(ctx context.Context, cfg Config, bootstrappers Bootstrappers) (network.ResourceManager, error) {
	limits := rcmgr.DefaultLimits
	libp2p.SetDefaultServiceLimits(&limits)

	mutual, err := cfg.mutualPeers()
	if err != nil {
		return nil, err
	}

	allowlist := make([]ma.Multiaddr, 0, len(bootstrappers)+len(mutual))
	for _, info := range append(mutual, bootstrappers...) {
		for _, maddr := range info.Addrs {
			resolved, err := madns.DefaultResolver.Resolve(ctx, maddr)
			if err != nil {
				log.Warnw("error resolving peer DNS", "addr", maddr.String(), "err", err)
				continue
			}
			allowlist = append(allowlist, resolved...)
		}
	}

	return rcmgr.NewResourceManager(
		rcmgr.NewFixedLimiter(limits.AutoScale()),
		rcmgr.WithAllowlistedMultiaddrs(allowlist),
	)
}
