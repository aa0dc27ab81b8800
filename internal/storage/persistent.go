package storage

import (
	"context"
	"errors"
	"reflect"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const probeKey = "__storage_test__"

// Usage reports how many bytes each key occupies (key plus encoded value)
type Usage struct {
	PerKeyBytes map[string]int `json:"perKeyBytes"`
	TotalBytes  int            `json:"totalBytes"`
}

// Persistent wraps a Storage backend with JSON encoding and fail-soft semantics.
// No method returns an error: failures are logged and reported as false or a default.
// When the availability probe fails, all writes are skipped and the caller's
// in-memory state is the only copy for the session.
type Persistent struct {
	backend Storage
	logger  *zap.Logger
	json    jsoniter.API

	mu        sync.Mutex
	available bool
	degraded  bool
	evicted   bool
}

// NewPersistent probes the backend and returns the fail-soft facade over it
func NewPersistent(ctx context.Context, backend Storage, logger *zap.Logger) *Persistent {
	p := &Persistent{
		backend: backend,
		logger:  logger,
		json:    jsoniter.ConfigCompatibleWithStandardLibrary,
	}
	p.available = p.probe(ctx)
	if !p.available {
		logger.Warn("Storage unavailable, running without persistence for this session")
	}
	return p
}

// probe attempts a throwaway write and delete
func (p *Persistent) probe(ctx context.Context) bool {
	if err := p.backend.Set(ctx, probeKey, []byte(`"test"`)); err != nil {
		p.logger.Warn("Storage probe write failed", zap.Error(err))
		return false
	}
	if err := p.backend.Remove(ctx, probeKey); err != nil {
		p.logger.Warn("Storage probe delete failed", zap.Error(err))
		return false
	}
	return true
}

// IsAvailable reports whether the backend passed the availability probe
func (p *Persistent) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Degraded reports whether a quota error has been hit during this session
func (p *Persistent) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// Set encodes value as JSON and stores it under key
func (p *Persistent) Set(ctx context.Context, key string, value any) bool {
	if !p.IsAvailable() {
		return false
	}

	data, err := p.json.Marshal(value)
	if err != nil {
		p.logger.Error("Failed to encode value", zap.String("key", key), zap.Error(err))
		return false
	}

	err = p.backend.Set(ctx, key, data)
	if errors.Is(err, ErrQuotaExceeded) {
		p.handleQuotaExceeded(ctx, key)
		return false
	}
	if err != nil {
		p.logger.Error("Failed to save value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// handleQuotaExceeded evicts the search history once and marks the store degraded.
// The rejected write is not retried.
func (p *Persistent) handleQuotaExceeded(ctx context.Context, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Warn("Storage quota exceeded", zap.String("key", key))
	if !p.evicted {
		p.evicted = true
		if err := p.backend.Remove(ctx, KeySearchHistory); err != nil {
			p.logger.Error("Failed to evict search history", zap.Error(err))
		} else {
			p.logger.Info("Evicted search history to free space")
		}
	}
	p.degraded = true
}

// Get decodes the value stored under key into dst.
// It returns false when the key is missing or cannot be decoded, leaving dst untouched.
// Fields absent from the stored value keep the values dst already holds.
func (p *Persistent) Get(ctx context.Context, key string, dst any) bool {
	if !p.IsAvailable() {
		return false
	}

	data, err := p.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		p.logger.Error("Failed to load value", zap.String("key", key), zap.Error(err))
		return false
	}

	typ := reflect.TypeOf(dst)
	if typ == nil || typ.Kind() != reflect.Pointer {
		p.logger.Error("Cannot decode value into non-pointer", zap.String("key", key))
		return false
	}

	// Validate against a scratch value first; a failed decode leaves partial writes behind
	scratch := reflect.New(typ.Elem()).Interface()
	if err := p.json.Unmarshal(data, scratch); err != nil {
		p.logger.Error("Failed to decode value", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := p.json.Unmarshal(data, dst); err != nil {
		p.logger.Error("Failed to decode value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key
func (p *Persistent) Remove(ctx context.Context, key string) bool {
	if !p.IsAvailable() {
		return false
	}
	if err := p.backend.Remove(ctx, key); err != nil {
		p.logger.Error("Failed to remove value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Clear removes every application key
func (p *Persistent) Clear(ctx context.Context) bool {
	ok := true
	for _, key := range AllKeys {
		if !p.Remove(ctx, key) {
			ok = false
		}
	}
	return ok
}

// UsageReport sums the stored bytes per key
func (p *Persistent) UsageReport(ctx context.Context) Usage {
	usage := Usage{PerKeyBytes: make(map[string]int)}
	if !p.IsAvailable() {
		return usage
	}

	keys, err := p.backend.Keys(ctx)
	if err != nil {
		p.logger.Error("Failed to list keys", zap.Error(err))
		return usage
	}

	for _, key := range keys {
		value, err := p.backend.Get(ctx, key)
		if err != nil {
			p.logger.Warn("Skipping key in usage report", zap.String("key", key), zap.Error(err))
			continue
		}
		size := len(key) + len(value)
		usage.PerKeyBytes[key] = size
		usage.TotalBytes += size
	}
	return usage
}
