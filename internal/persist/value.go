package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/npezzotti/go-classroom/internal/storage"
)

const writeTimeout = 5 * time.Second

// Value binds an in-memory value of type T to one key of a store. Reads are
// served from memory; writes update memory immediately and are written
// through by a single background writer, latest value wins.
type Value[T any] struct {
	log   *log.Logger
	store storage.Store
	key   string

	mu      sync.RWMutex
	value   T
	loading bool

	loadOnce sync.Once
	loaded   chan struct{}
	loadErr  error

	pendingLock sync.Mutex
	pending     []byte
	hasPending  bool

	wake    chan struct{}
	flushCh chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
	closed  sync.Once

	// OnWriteError is called after a failed write, if set.
	OnWriteError func(err error)
}

func NewValue[T any](logger *log.Logger, store storage.Store, key string, defaultValue T) *Value[T] {
	v := &Value[T]{
		log:     logger,
		store:   store,
		key:     key,
		value:   defaultValue,
		loading: true,
		loaded:  make(chan struct{}),
		wake:    make(chan struct{}, 1),
		flushCh: make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go v.run()

	return v
}

// Load reads the key once. A missing key keeps the default. Read and parse
// errors are logged and also keep the default. A read error is returned so
// the caller can avoid overwriting data it could not see; later calls
// return the same result.
func (v *Value[T]) Load(ctx context.Context) error {
	v.loadOnce.Do(func() {
		defer func() {
			v.mu.Lock()
			v.loading = false
			v.mu.Unlock()
			close(v.loaded)
		}()

		raw, ok, err := v.store.Get(ctx, v.key)
		if err != nil {
			v.log.Printf("warn: error loading %s from storage: %v", v.key, err)
			v.loadErr = fmt.Errorf("load %s: %w", v.key, err)
			return
		}
		if !ok {
			return
		}

		var parsed T
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			v.log.Printf("warn: error parsing %s from storage: %v", v.key, err)
			return
		}

		v.mu.Lock()
		v.value = parsed
		v.mu.Unlock()
	})

	return v.loadErr
}

// Loaded is closed once Load has completed.
func (v *Value[T]) Loaded() <-chan struct{} {
	return v.loaded
}

func (v *Value[T]) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set never blocks on I/O. The write happens in the background and a
// failure only gets logged.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		v.log.Printf("warn: error encoding %s: %v", v.key, err)
		v.writeFailed(err)
		return
	}

	v.pendingLock.Lock()
	v.pending = raw
	v.hasPending = true
	v.pendingLock.Unlock()

	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every Set issued before the call has been written or
// has failed.
func (v *Value[T]) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case v.flushCh <- reply:
	case <-v.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes anything still pending and stops the writer.
func (v *Value[T]) Close(ctx context.Context) error {
	v.closed.Do(func() {
		close(v.stop)
	})

	select {
	case <-v.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *Value[T]) run() {
	defer close(v.done)

	for {
		select {
		case <-v.wake:
			v.writePending()
		case reply := <-v.flushCh:
			v.writePending()
			close(reply)
		case <-v.stop:
			v.writePending()
			return
		}
	}
}

func (v *Value[T]) writePending() {
	v.pendingLock.Lock()
	raw, ok := v.pending, v.hasPending
	v.pending, v.hasPending = nil, false
	v.pendingLock.Unlock()

	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := v.store.Set(ctx, v.key, string(raw)); err != nil {
		v.log.Printf("warn: error saving %s to storage: %v", v.key, err)
		v.writeFailed(err)
	}
}

func (v *Value[T]) writeFailed(err error) {
	if v.OnWriteError != nil {
		v.OnWriteError(err)
	}
}
