package service

import (
	"context"
	"sync"
	"time"
)

// Ключи кеша публичных данных района.
const (
	CacheKeyContacts       = "community:contacts"
	CacheKeyPublicSettings = "community:settings:public"
)

// CacheService: in-memory кеш с TTL для данных, которые читают без входа.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	data      any
	expiresAt time.Time
}

// NewCacheService создаёт кеш. Фоновая очистка работает, пока жив ctx.
func NewCacheService(ctx context.Context) *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
	go cs.cleanup(ctx, 5*time.Minute)
	return cs
}

// Get возвращает значение, если оно есть и не истекло.
func (cs *CacheService) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		// истёкшие записи удаляет cleanup
		return nil, false
	}
	return entry.data, true
}

// Set сохраняет значение на ttl.
func (cs *CacheService) Set(key string, value any, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
}

// Delete удаляет ключ.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// GetOrSet возвращает значение из кеша или вычисляет и сохраняет его.
// Ошибка fn не кешируется.
func (cs *CacheService) GetOrSet(key string, ttl time.Duration, fn func() (any, error)) (any, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	cs.Set(key, value, ttl)
	return value, nil
}

func (cs *CacheService) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.evictExpired()
		}
	}
}

func (cs *CacheService) evictExpired() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for key, entry := range cs.cache {
		if now.After(entry.expiresAt) {
			delete(cs.cache, key)
		}
	}
}

// cached: типизированная обёртка над GetOrSet. Без кеша просто вызывает fn.
func cached[T any](cs *CacheService, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if cs == nil {
		return fn()
	}
	value, err := cs.GetOrSet(key, ttl, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
