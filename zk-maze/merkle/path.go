package merkle

import (
	"context"
	"fmt"

	"github.com/kysee/maze/zk-maze/types"
	"golang.org/x/sync/errgroup"
)

// AccountReader returns the raw bytes of a ledger account, or an empty slice if it does not exist.
type AccountReader interface {
	Account(ctx context.Context, key types.PubKey) ([]byte, error)
}

const DefaultFetchParallelism = 8

type fetchConfig struct {
	parallelism int
}

type FetchOption func(*fetchConfig)

// WithParallelism bounds the number of in-flight account reads.
func WithParallelism(n int) FetchOption {
	return func(c *fetchConfig) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// GetNeighborPath reads the sibling nodes of leafIndex from the ledger. Accounts that were
// never written stand for the default node of their layer. The result always has len == depth.
func GetNeighborPath(ctx context.Context, reader AccountReader, vault types.PubKey, pool *types.Pool, leafIndex uint64, opts ...FetchOption) (types.MerklePath, error) {
	cfg := fetchConfig{parallelism: DefaultFetchParallelism}
	for _, opt := range opts {
		opt(&cfg)
	}

	locs, err := NeighborLocations(pool.Depth, leafIndex)
	if err != nil {
		return nil, err
	}
	defaults := DefaultNodes(pool.Hasher, pool.Depth)

	path := make(types.MerklePath, len(locs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)
	for i, loc := range locs {
		g.Go(func() error {
			raw, err := reader.Account(gctx, NodeAddress(vault, loc.Layer, loc.Index))
			if err != nil {
				return fmt.Errorf("fetch node %v: %w", loc, err)
			}
			node, ok, err := DecodeNode(raw)
			if err != nil {
				return fmt.Errorf("node %v: %w", loc, err)
			}
			if !ok {
				node = defaults[loc.Layer]
			}
			path[i] = node
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return path, nil
}
