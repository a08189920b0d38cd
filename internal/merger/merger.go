// Package merger turns independently-paginated per-source pages into one
// globally-ordered, resumable result stream. Sources advance at their
// own pace; the combined cursor tracks each one separately and sources
// recorded as drained are never fetched again.
package merger

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tokenmesh/marketplace-backend/internal/continuation"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

// Comparator orders entities for merging; negative means a comes first.
type Comparator[T any] func(a, b T) int

// Fetcher loads the next page of one source. A nil continuation means
// "from the beginning".
type Fetcher[T any] func(ctx context.Context, cont *string, size int) (domain.Slice[T], error)

// ArgSlice is one source's fetched page tagged with the source key and
// the continuation the page was fetched with.
type ArgSlice[T any] struct {
	SourceKey string
	// FetchedWith is the continuation used for this fetch; nil when the
	// source was started from the beginning.
	FetchedWith *string
	Slice       domain.Slice[T]
}

// Merger merges pages of T. The comparator gives the global order; IDOf
// breaks comparator ties so that output order never depends on which
// source's call returned first. ContinuationFor builds a value-derived
// continuation from an entity and is what makes mid-page resumption of a
// partially-consumed source possible; when it is nil the merger falls
// back to re-emitting the continuation the page was fetched with, which
// re-fetches already-seen rows on the next call.
type Merger[T any] struct {
	Compare         Comparator[T]
	IDOf            func(T) string
	ContinuationFor func(T) string
	Log             *logger.Logger
}

func New[T any](cmp Comparator[T], idOf func(T) string, contFor func(T) string, log *logger.Logger) *Merger[T] {
	return &Merger[T]{Compare: cmp, IDOf: idOf, ContinuationFor: contFor, Log: log.With("component", "merger")}
}

// MergeSlices performs a k-way merge over pre-fetched slices, taking at
// most size entities, and records every source's next resume point in
// the returned cursor.
func (m *Merger[T]) MergeSlices(slices []ArgSlice[T], size int) ([]T, continuation.Combined) {
	out := continuation.Combined{}
	if size <= 0 {
		size = 50
	}

	// Deterministic source order so comparator ties resolved by IDOf are
	// reproducible no matter how the slices were assembled.
	ordered := make([]ArgSlice[T], len(slices))
	copy(ordered, slices)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SourceKey < ordered[j].SourceKey })

	heads := make([]int, len(ordered))
	merged := make([]T, 0, size)

	for len(merged) < size {
		best := -1
		for i, s := range ordered {
			if heads[i] >= len(s.Slice.Entities) {
				continue
			}
			if best == -1 {
				best = i
				continue
			}
			a := s.Slice.Entities[heads[i]]
			b := ordered[best].Slice.Entities[heads[best]]
			c := m.Compare(a, b)
			if c < 0 || (c == 0 && m.IDOf(a) < m.IDOf(b)) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		merged = append(merged, ordered[best].Slice.Entities[heads[best]])
		heads[best]++
	}

	for i, s := range ordered {
		consumed := heads[i]
		total := len(s.Slice.Entities)
		switch {
		case consumed == total && s.Slice.Continuation == nil:
			// Page fully consumed and the source said it has nothing
			// more: drained for the rest of the session.
			out.SetCompleted(s.SourceKey)
		case consumed == total:
			out.Set(s.SourceKey, *s.Slice.Continuation)
		case consumed > 0 && m.ContinuationFor != nil:
			out.Set(s.SourceKey, m.ContinuationFor(s.Slice.Entities[consumed-1]))
		default:
			// Nothing consumed (or no extractor): resume by re-fetching
			// the same page. An absent entry already means "from the
			// beginning", so only a real continuation is recorded.
			if s.FetchedWith != nil {
				out.Set(s.SourceKey, *s.FetchedWith)
			}
		}
	}

	return merged, out
}

// FetchAndMerge fetches the next page of every non-drained source
// concurrently, then merges. A source that fails keeps its cursor
// position and contributes nothing to this page; sources the incoming
// cursor marks as drained are skipped and re-emitted as drained.
func (m *Merger[T]) FetchAndMerge(ctx context.Context, fetchers map[string]Fetcher[T], cursor continuation.Combined, size int) ([]T, continuation.Combined, error) {
	keys := make([]string, 0, len(fetchers))
	for k := range fetchers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	carried := continuation.Combined{}
	type slot struct {
		arg    ArgSlice[T]
		failed bool
	}
	slots := make([]*slot, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		if cursor.IsCompleted(key) {
			carried.SetCompleted(key)
			continue
		}
		var fetchedWith *string
		if cont, ok := cursor.Get(key); ok {
			c := cont
			fetchedWith = &c
		}
		i, key := i, key
		fetch := fetchers[key]
		g.Go(func() error {
			slice, err := fetch(gctx, fetchedWith, size)
			if err != nil {
				m.Log.Error("source fetch failed, excluding from page",
					"source", key, "error", err)
				slots[i] = &slot{arg: ArgSlice[T]{SourceKey: key, FetchedWith: fetchedWith}, failed: true}
				return nil
			}
			slots[i] = &slot{arg: ArgSlice[T]{SourceKey: key, FetchedWith: fetchedWith, Slice: slice}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var args []ArgSlice[T]
	for _, s := range slots {
		if s == nil {
			continue
		}
		if s.failed {
			// Keep the failed source's position so the client loses
			// nothing; it will be retried on the next page.
			if s.arg.FetchedWith != nil {
				carried.Set(s.arg.SourceKey, *s.arg.FetchedWith)
			}
			continue
		}
		args = append(args, s.arg)
	}

	merged, next := m.MergeSlices(args, size)
	for k, v := range carried {
		next[k] = v
	}
	return merged, next, nil
}

// TrimPage is the single-source variant: comparator-ordered trim to size
// with no per-source cursor map.
func (m *Merger[T]) TrimPage(slice domain.Slice[T], size int) domain.Slice[T] {
	if size <= 0 || len(slice.Entities) <= size {
		return slice
	}
	entities := make([]T, len(slice.Entities))
	copy(entities, slice.Entities)
	sort.SliceStable(entities, func(i, j int) bool {
		c := m.Compare(entities[i], entities[j])
		if c != 0 {
			return c < 0
		}
		return m.IDOf(entities[i]) < m.IDOf(entities[j])
	})
	entities = entities[:size]
	var cont *string
	if m.ContinuationFor != nil {
		c := m.ContinuationFor(entities[len(entities)-1])
		cont = &c
	} else {
		cont = slice.Continuation
	}
	return domain.Slice[T]{Entities: entities, Continuation: cont}
}
