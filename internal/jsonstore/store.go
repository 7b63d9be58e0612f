// Package jsonstore keeps one collection of entities in memory and mirrors it
// to a pretty-printed JSON array on disk.
//
// Every Store owns its slice and its file. A single-permit semaphore
// linearizes all access, reads hand out deep clones, and every mutation
// rewrites the whole file through a temp file and a rename. The lock is held
// until the rename completes so the file always reflects the latest committed
// mutation, and memory is only replaced once the file is durable.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrCorrupt = errors.New("jsonstore: file is not a valid collection")
	ErrPersist = errors.New("jsonstore: persist failed")
)

// Cloner is implemented by every stored entity. Clone must return a copy that
// shares no mutable memory with the receiver.
type Cloner[T any] interface {
	Clone() T
}

// WriteFunc replaces the backing file with data.
type WriteFunc func(path string, data []byte) error

type options struct {
	name     string
	log      *zap.Logger
	metrics  *Metrics
	attempts int
	backoff  time.Duration
	write    WriteFunc
}

type Option func(*options)

// WithName sets the collection label used in logs and metrics. Defaults to
// the file's base name without extension.
func WithName(name string) Option { return func(o *options) { o.name = name } }

func WithLogger(log *zap.Logger) Option { return func(o *options) { o.log = log } }

func WithMetrics(m *Metrics) Option { return func(o *options) { o.metrics = m } }

// WithRetry bounds persist attempts. Waits grow from base, doubling, with jitter.
func WithRetry(attempts int, base time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.attempts = attempts
		}
		o.backoff = base
	}
}

// WithWriteFunc swaps the file writer. Tests use it to inject failures.
func WithWriteFunc(fn WriteFunc) Option { return func(o *options) { o.write = fn } }

type Store[T Cloner[T]] struct {
	path  string
	opts  options
	lock  *semaphore.Weighted
	items []T
}

// Open loads path, creating it with an empty collection when it does not
// exist. A file that does not decode into []T yields ErrCorrupt.
func Open[T Cloner[T]](ctx context.Context, path string, opts ...Option) (*Store[T], error) {
	o := options{
		name:     trimExt(filepath.Base(path)),
		attempts: 3,
		backoff:  20 * time.Millisecond,
		write:    WriteFileAtomic,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	o.log = o.log.With(zap.String("collection", o.name))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}

	s := &Store[T]{path: path, opts: o, lock: semaphore.NewWeighted(1)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := o.write(path, []byte("[]")); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		s.items = []T{}
		o.log.Info("store file created", zap.String("path", path))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if items == nil {
		items = []T{}
	}
	s.items = items

	o.log.Info("store loaded", zap.String("path", path), zap.Int("count", len(items)))
	return s, nil
}

func (s *Store[T]) Name() string { return s.opts.name }
func (s *Store[T]) Path() string { return s.path }

// Filter returns clones of every item keep accepts. A nil keep matches all.
func (s *Store[T]) Filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.lock.Release(1)

	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if keep == nil || keep(it) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (s *Store[T]) All(ctx context.Context) ([]T, error) {
	return s.Filter(ctx, nil)
}

// Find returns a clone of the first item match accepts.
func (s *Store[T]) Find(ctx context.Context, match func(T) bool) (T, bool, error) {
	var zero T
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return zero, false, err
	}
	defer s.lock.Release(1)

	for _, it := range s.items {
		if match(it) {
			return it.Clone(), true, nil
		}
	}
	return zero, false, nil
}

// Update hands fn a private copy of the collection and persists whatever fn
// returns. When fn fails nothing is written and the collection is unchanged;
// the same holds when the write itself fails.
func (s *Store[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lock.Release(1)

	work := make([]T, len(s.items))
	for i, it := range s.items {
		work[i] = it.Clone()
	}

	next, err := fn(work)
	if err != nil {
		return err
	}
	if next == nil {
		next = []T{}
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: encode: %w", ErrPersist, s.opts.name, err)
	}

	if err := s.persist(ctx, data); err != nil {
		return err
	}

	s.items = next
	return nil
}

func (s *Store[T]) persist(ctx context.Context, data []byte) error {
	start := time.Now()

	var err error
retry:
	for attempt := 1; attempt <= s.opts.attempts; attempt++ {
		if err = s.opts.write(s.path, data); err == nil {
			break
		}
		if attempt == s.opts.attempts {
			break
		}

		wait := jitter(s.opts.backoff << (attempt - 1))
		s.opts.log.Warn("store write failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
			break retry
		case <-time.After(wait):
		}
	}

	s.opts.metrics.observe(s.opts.name, time.Since(start), err)

	if err != nil {
		s.opts.log.Error("store write failed", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrPersist, s.opts.name, err)
	}

	s.opts.log.Debug("store persisted", zap.Int("bytes", len(data)), zap.Duration("took", time.Since(start)))
	return nil
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(half+1)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
