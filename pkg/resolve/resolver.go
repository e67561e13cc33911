// CLAUDE:SUMMARY Priority-chain resolution of single-year cause labels against the frozen reference vocabulary, sharded across workers.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hazyhaar/causa-registry/pkg/label"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyReferenceSet is returned when no label was observed in more than
// one year: every candidate would self-map and the run would mean nothing.
var ErrEmptyReferenceSet = errors.New("empty reference set: no cause label observed in more than one year")

// Resolver maps candidates onto the reference vocabulary. It is read-only
// after New and safe for concurrent use.
type Resolver struct {
	cfg    Config
	refs   *label.ReferenceSet
	index  *label.BlockIndex
	chain  []Strategy
	logger *slog.Logger
}

// New validates cfg, builds the block index and the strategy chain:
// exact, accent, prefix, fuzzy.
func New(cfg Config, refs *label.ReferenceSet, logger *slog.Logger) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if refs == nil || refs.Len() == 0 {
		return nil, ErrEmptyReferenceSet
	}
	if logger == nil {
		logger = slog.Default()
	}

	index := label.NewBlockIndex(refs)
	r := &Resolver{
		cfg:    cfg,
		refs:   refs,
		index:  index,
		logger: logger,
		chain: []Strategy{
			exactStrategy{refs: refs},
			accentStrategy{refs: refs, score: cfg.AccentScore},
			prefixStrategy{refs: refs, minLen: cfg.MinPrefixLength},
			fuzzyStrategy{
				index:     index,
				threshold: cfg.FuzzyThreshold,
				minRatio:  cfg.MinLengthRatio,
				maxRatio:  cfg.MaxLengthRatio,
			},
		},
	}
	logger.Debug("resolver ready",
		"references", refs.Len(),
		"blocks", index.Len(),
		"avg_block_size", fmt.Sprintf("%.2f", index.AvgBlockSize()),
	)
	return r, nil
}

// Config returns the resolver's thresholds.
func (r *Resolver) Config() Config {
	return r.cfg
}

// References returns the frozen vocabulary.
func (r *Resolver) References() *label.ReferenceSet {
	return r.refs
}

// Resolve runs the strategy chain on one candidate. The first accepted
// match wins; without one the label maps to its own normalized form.
func (r *Resolver) Resolve(c *label.Stat) Decision {
	return r.resolve(c.Original, Query{Normalized: c.Normalized(), Folded: c.Folded()})
}

// ResolveText resolves free text that did not come from an aggregated stat.
func (r *Resolver) ResolveText(raw string) Decision {
	return r.resolve(raw, NewQuery(raw))
}

func (r *Resolver) resolve(original string, q Query) Decision {
	for _, s := range r.chain {
		m, ok := s.Match(q)
		if !ok {
			continue
		}
		return Decision{
			Original:   original,
			Target:     m.Target,
			Kind:       s.Kind(),
			Similarity: Round4(m.Similarity),
		}
	}
	return Decision{Original: original, Target: q.Normalized, Kind: KindUnchanged, Similarity: 1.0}
}

// ResolveAll resolves every candidate. Candidates are split in contiguous
// shards, one goroutine each; the output keeps the input order.
func (r *Resolver) ResolveAll(ctx context.Context, cands []*label.Stat) ([]Decision, error) {
	out := make([]Decision, len(cands))
	if len(cands) == 0 {
		return out, nil
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(cands) {
		workers = len(cands)
	}
	shard := (len(cands) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(cands); start += shard {
		end := min(start+shard, len(cands))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = r.Resolve(cands[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve candidates: %w", err)
	}
	return out, nil
}
