package driver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BuildFunc constructs an independent runner for one seed.
type BuildFunc func(seed int64) (*Runner, error)

// RunEnsemble runs one runner per seed in [seedStart, seedStart+runs),
// at most limit at a time. Results are in seed order. The first failure
// cancels the remaining runs.
func RunEnsemble(ctx context.Context, runs int, seedStart int64, limit int, build BuildFunc, cfg Config) ([]*Result, error) {
	if runs <= 0 {
		return nil, fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidConfig, runs)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	results := make([]*Result, runs)

	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < runs; i++ {
		i := i
		seed := seedStart + int64(i)
		g.Go(func() error {
			r, err := build(seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			defer r.env.Close()

			res, err := r.Run(gCtx, cfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			res.Seed = seed
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
