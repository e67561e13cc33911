// CLAUDE:SUMMARY Online resolution over a reviewed mapping: mapping hit first, live strategy chain otherwise, TTL-cached.
package lookup

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hazyhaar/causa-registry/pkg/label"
	"github.com/hazyhaar/causa-registry/pkg/mapping"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

// Origin tells where a result came from.
type Origin string

const (
	OriginMapping Origin = "mapping"
	OriginLive    Origin = "live"
)

// MaxBatch bounds ResolveBatch.
const MaxBatch = 100

// ErrBatchTooLarge is returned when a batch exceeds MaxBatch labels.
var ErrBatchTooLarge = errors.New("batch too large")

// ErrEmptyLabel is returned for blank input.
var ErrEmptyLabel = errors.New("empty label")

// Result is the canonical form of one raw label.
type Result struct {
	Original   string       `json:"causa_original"`
	Corrected  string       `json:"causa_corregida"`
	Kind       resolve.Kind `json:"tipo_correccion"`
	Similarity float64      `json:"similitud"`
	Origin     Origin       `json:"origin"`
	Cached     bool         `json:"cached,omitempty"`
}

// Stats describes the loaded mapping and the cache.
type Stats struct {
	Records     int                  `json:"records"`
	References  int                  `json:"references"`
	UniqueAfter int                  `json:"unique_after"`
	ByKind      map[resolve.Kind]int `json:"by_kind"`
	Cached      int                  `json:"cached"`
	Live        bool                 `json:"live"`
}

// Service resolves labels against a mapping. Safe for concurrent use.
type Service struct {
	mapping  *mapping.Mapping
	records  map[string]mapping.Record
	resolver *resolve.Resolver // nil when the mapping carries no reference
	cache    *gocache.Cache
	summary  *mapping.Summary
	refs     int
	logger   *slog.Logger
}

// New builds the service. The live resolver is built from the mapping's
// multi-year records; without any, unknown labels fall back unchanged.
func New(m *mapping.Mapping, cfg resolve.Config, ttl time.Duration, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		mapping: m,
		records: make(map[string]mapping.Record, m.Len()),
		cache:   gocache.New(ttl, 2*ttl),
		summary: mapping.Summarize(m.Records),
		logger:  logger,
	}
	for _, r := range m.Records {
		s.records[r.Original] = r
	}

	vocab := label.NewReferenceSetFromForms(m.References())
	s.refs = vocab.Len()
	res, err := resolve.New(cfg, vocab, logger)
	switch {
	case errors.Is(err, resolve.ErrEmptyReferenceSet):
		logger.Warn("mapping has no multi-year record, live resolution disabled")
	case err != nil:
		return nil, err
	default:
		s.resolver = res
	}
	return s, nil
}

// Resolve returns the canonical form of raw.
func (s *Service) Resolve(raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, ErrEmptyLabel
	}
	if r, ok := s.records[raw]; ok {
		return Result{
			Original:   raw,
			Corrected:  r.Corrected,
			Kind:       r.Kind,
			Similarity: r.Similarity,
			Origin:     OriginMapping,
		}, nil
	}
	if v, ok := s.cache.Get(raw); ok {
		res := v.(Result)
		res.Cached = true
		return res, nil
	}

	var d resolve.Decision
	if s.resolver != nil {
		d = s.resolver.ResolveText(raw)
	} else {
		d = resolve.Decision{Original: raw, Target: label.Normalize(raw), Kind: resolve.KindUnchanged, Similarity: 1.0}
	}
	res := Result{
		Original:   raw,
		Corrected:  d.Target,
		Kind:       d.Kind,
		Similarity: d.Similarity,
		Origin:     OriginLive,
	}
	s.cache.SetDefault(raw, res)
	s.logger.Debug("live resolution", "label", raw, "target", d.Target, "kind", d.Kind)
	return res, nil
}

// ResolveBatch resolves up to MaxBatch labels, keeping the input order.
func (s *Service) ResolveBatch(raws []string) ([]Result, error) {
	if len(raws) > MaxBatch {
		return nil, ErrBatchTooLarge
	}
	out := make([]Result, len(raws))
	for i, raw := range raws {
		r, err := s.Resolve(raw)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Stats reports the mapping composition and the cache size.
func (s *Service) Stats() Stats {
	return Stats{
		Records:     s.mapping.Len(),
		References:  s.refs,
		UniqueAfter: s.summary.UniqueAfter,
		ByKind:      s.summary.ByKind,
		Cached:      s.cache.ItemCount(),
		Live:        s.resolver != nil,
	}
}

// Flush empties the live-resolution cache.
func (s *Service) Flush() {
	s.cache.Flush()
}
