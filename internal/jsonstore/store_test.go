package jsonstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storefront/internal/jsonstore"
)

type doc struct {
	ID   string   `json:"id"`
	N    int      `json:"n"`
	Tags []string `json:"tags"`
}

func (d doc) Clone() doc {
	d.Tags = append([]string(nil), d.Tags...)
	return d
}

func open(t *testing.T, path string, opts ...jsonstore.Option) *jsonstore.Store[doc] {
	t.Helper()
	s, err := jsonstore.Open[doc](context.Background(), path, opts...)
	require.NoError(t, err)
	return s
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

func insert(d doc) func([]doc) ([]doc, error) {
	return func(items []doc) ([]doc, error) { return append(items, d), nil }
}

func TestOpenCreatesEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db", "docs.json")

	s := open(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
	assert.Equal(t, "docs", s.Name())

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))

	_, err := jsonstore.Open[doc](context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, jsonstore.ErrCorrupt)
}

func TestUpdatePersistsWholeCollection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.json")
	s := open(t, path)

	require.NoError(t, s.Update(ctx, insert(doc{ID: "a", N: 1})))
	require.NoError(t, s.Update(ctx, insert(doc{ID: "b", N: 2, Tags: []string{"x"}})))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n  {"), "expected pretty-printed array, got %s", raw)

	reopened := open(t, path)
	got, err := reopened.All(ctx)
	require.NoError(t, err)

	mem, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, mem, got)
	assert.Len(t, got, 2)
}

func TestFailedMutationLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.json")
	s := open(t, path)
	require.NoError(t, s.Update(ctx, insert(doc{ID: "a"})))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	errNope := errors.New("nope")
	err = s.Update(ctx, func(items []doc) ([]doc, error) {
		items[0].N = 99
		return nil, errNope
	})
	assert.ErrorIs(t, err, errNope)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, _, err := s.Find(ctx, func(d doc) bool { return d.ID == "a" })
	require.NoError(t, err)
	assert.Equal(t, 0, got.N)
}

func TestWriteFailureKeepsMemoryAndRetries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.json")

	var calls atomic.Int32
	var failing atomic.Bool
	write := func(p string, data []byte) error {
		if failing.Load() {
			calls.Add(1)
			return errors.New("disk full")
		}
		return jsonstore.WriteFileAtomic(p, data)
	}

	reg := prometheus.NewRegistry()
	m := jsonstore.NewMetrics(reg)
	s := open(t, path,
		jsonstore.WithWriteFunc(write),
		jsonstore.WithRetry(3, time.Millisecond),
		jsonstore.WithMetrics(m),
	)

	failing.Store(true)
	err := s.Update(ctx, insert(doc{ID: "a"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, jsonstore.ErrPersist)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1.0, counterValue(t, m.Writes.WithLabelValues("docs", "error")))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	failing.Store(false)
	require.NoError(t, s.Update(ctx, insert(doc{ID: "b"})))
	assert.Equal(t, 1.0, counterValue(t, m.Writes.WithLabelValues("docs", "ok")))
}

func TestReadsReturnIndependentCopies(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "docs.json"))
	require.NoError(t, s.Update(ctx, insert(doc{ID: "a", Tags: []string{"orig"}})))

	got, ok, err := s.Find(ctx, func(d doc) bool { return d.ID == "a" })
	require.NoError(t, err)
	require.True(t, ok)
	got.Tags[0] = "mutated"
	got.N = 42

	again, _, err := s.Find(ctx, func(d doc) bool { return d.ID == "a" })
	require.NoError(t, err)
	assert.Equal(t, []string{"orig"}, again.Tags)
	assert.Equal(t, 0, again.N)
}

func TestConcurrentUpdatesAreLinearized(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.json")
	s := open(t, path)
	require.NoError(t, s.Update(ctx, insert(doc{ID: "counter"})))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, func(items []doc) ([]doc, error) {
				items[0].N++
				return items, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _, err := open(t, path).Find(ctx, func(d doc) bool { return d.ID == "counter" })
	require.NoError(t, err)
	assert.Equal(t, n, got.N)
}

func TestLockAcquisitionHonorsContext(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "docs.json"))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Update(context.Background(), func(items []doc) ([]doc, error) {
			close(entered)
			<-release
			return items, nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.All(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}
