package gather

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinct(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"blanks dropped", []string{"", ""}, []string{}},
		{"sorted and unique", []string{"p3", "p1", "p3", "", "p2"}, []string{"p1", "p2", "p3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distinct(tt.in))
		})
	}
}

func TestChunk(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	assert.Nil(t, Chunk(nil, 2))
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Chunk(ids, 2))
	assert.Equal(t, [][]string{ids}, Chunk(ids, 0))
	assert.Equal(t, [][]string{ids}, Chunk(ids, 10))
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}, Chunk(ids, 1))
}

func TestBatches_MergesChunks(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var seen [][]string

	fetch := func(_ context.Context, ids []string) (map[string]int, error) {
		calls.Add(1)
		mu.Lock()
		seen = append(seen, ids)
		mu.Unlock()
		out := make(map[string]int, len(ids))
		for _, id := range ids {
			if id == "missing" {
				continue
			}
			n, _ := strconv.Atoi(id[1:])
			out[id] = n
		}
		return out, nil
	}

	got, err := Batches(context.Background(), []string{"x3", "x1", "x2", "x1", "missing", ""}, 2, 4, fetch)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"x1": 1, "x2": 2, "x3": 3}, got)
	assert.Equal(t, int32(2), calls.Load())
	for _, chunk := range seen {
		assert.LessOrEqual(t, len(chunk), 2)
	}
}

func TestBatches_Empty(t *testing.T) {
	called := false
	got, err := Batches(context.Background(), nil, 10, 2, func(context.Context, []string) (map[string]string, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, called)
}

func TestBatches_PropagatesError(t *testing.T) {
	boom := errors.New("catalog unavailable")
	_, err := Batches(context.Background(), []string{"a", "b", "c"}, 1, 2, func(_ context.Context, ids []string) (map[string]int, error) {
		if ids[0] == "b" {
			return nil, boom
		}
		return map[string]int{ids[0]: 1}, nil
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, boom))
	assert.Contains(t, err.Error(), "gather: batches")
}

func TestEach_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	keys := make([]string, 20)
	for i := range keys {
		keys[i] = "k" + strconv.Itoa(i)
	}

	got, err := Each(context.Background(), keys, 3, func(_ context.Context, key string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return key + "!", nil
	})
	require.NoError(t, err)

	assert.Len(t, got, 20)
	assert.Equal(t, "k7!", got["k7"])
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestEach_CancelsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Each(context.Background(), []string{"a", "b"}, 1, func(ctx context.Context, key string) (int, error) {
		if key == "a" {
			return 0, boom
		}
		return 0, ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, boom))
}

func TestEach_DefaultConcurrency(t *testing.T) {
	got, err := Each(context.Background(), []string{"b", "a", "b"}, 0, func(_ context.Context, key string) (int, error) {
		return len(key), nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, got)
}
