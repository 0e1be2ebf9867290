// Package gather runs bounded scatter/gather fetches keyed by string ids.
// Every call is a stage barrier: it returns only after all of its tasks have
// finished, and the first task error cancels the rest.
package gather

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight tasks when a caller passes limit <= 0.
const DefaultConcurrency = 8

// BatchFunc fetches a batch of ids. Ids missing from the returned map are
// treated as absent, not as errors.
type BatchFunc[T any] func(ctx context.Context, ids []string) (map[string]T, error)

// KeyFunc fetches the value for a single key.
type KeyFunc[T any] func(ctx context.Context, key string) (T, error)

// Distinct returns the sorted set of non-empty ids.
func Distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Chunk splits ids into consecutive batches of at most size. A non-positive
// size yields a single batch.
func Chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 || size >= len(ids) {
		return [][]string{ids}
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// Batches fetches the distinct ids in chunks of batchSize, running at most
// limit chunks at once, and merges the results.
func Batches[T any](ctx context.Context, ids []string, batchSize, limit int, fetch BatchFunc[T]) (map[string]T, error) {
	out := make(map[string]T)
	chunks := Chunk(Distinct(ids), batchSize)
	if len(chunks) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(limit))

	var mu sync.Mutex
	for _, chunk := range chunks {
		g.Go(func() error {
			got, err := fetch(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for k, v := range got {
				out[k] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "gather: batches")
	}
	return out, nil
}

// Each runs fn once per distinct key, at most limit at a time, and collects
// the results by key.
func Each[T any](ctx context.Context, keys []string, limit int, fn KeyFunc[T]) (map[string]T, error) {
	keys = Distinct(keys)
	out := make(map[string]T, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(limit))

	var mu sync.Mutex
	for _, key := range keys {
		g.Go(func() error {
			v, err := fn(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "gather: each")
	}
	return out, nil
}

func concurrency(limit int) int {
	if limit <= 0 {
		return DefaultConcurrency
	}
	return limit
}
