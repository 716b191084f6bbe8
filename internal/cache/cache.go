// Package cache реализует кэш удалённых коллекций с окном свежести
// и слиянием конкурентных запросов к одному ключу.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL — окно свежести кэшированной коллекции по умолчанию.
const DefaultTTL = 5 * time.Minute

// Fetcher загружает коллекцию из удалённого источника по ключу.
type Fetcher[T any] func(ctx context.Context, key string) ([]T, error)

type entry[T any] struct {
	payload   []T
	fetchedAt time.Time
}

// Collection кэширует коллекции по строковому ключу. Чтение внутри окна
// свежести обслуживается из кэша без сетевого вызова; конкурентные
// перезапросы одного ключа сливаются в один вызов Fetcher. Неудачный
// перезапрос не трогает устаревшую, но пригодную запись.
type Collection[T any] struct {
	ttl   time.Duration
	fetch Fetcher[T]

	mu      sync.RWMutex
	entries map[string]entry[T]
	loading map[string]bool

	group singleflight.Group

	now func() time.Time
}

// New создаёт кэш коллекций с указанным окном свежести.
// Неположительный ttl заменяется на DefaultTTL.
func New[T any](ttl time.Duration, fetch Fetcher[T]) *Collection[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Collection[T]{
		ttl:     ttl,
		fetch:   fetch,
		entries: make(map[string]entry[T]),
		loading: make(map[string]bool),
		now:     time.Now,
	}
}

// Get возвращает коллекцию для ключа. Свежая запись возвращается из
// кэша, устаревшая или отсутствующая перезапрашивается. При ошибке
// перезапроса прежняя запись сохраняется, ошибка отдаётся вызывающему.
func (c *Collection[T]) Get(ctx context.Context, key string) ([]T, error) {
	if payload, ok := c.cached(key); ok {
		return payload, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// пока первый вызов держал singleflight, запись могла обновиться
		if payload, ok := c.cached(key); ok {
			return payload, nil
		}

		c.setLoading(key, true)
		defer c.setLoading(key, false)

		payload, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[T]{payload: payload, fetchedAt: c.now()}
		c.mu.Unlock()

		return copyPayload(payload), nil
	})
	if err != nil {
		return nil, err
	}

	return res.([]T), nil
}

// Refresh безусловно сбрасывает запись и перезапрашивает коллекцию.
func (c *Collection[T]) Refresh(ctx context.Context, key string) ([]T, error) {
	c.Invalidate(key)
	return c.Get(ctx, key)
}

// Invalidate удаляет запись кэша для ключа.
func (c *Collection[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Loading сообщает, выполняется ли сейчас загрузка для ключа.
func (c *Collection[T]) Loading(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading[key]
}

func (c *Collection[T]) cached(key string) ([]T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return copyPayload(e.payload), true
}

func (c *Collection[T]) setLoading(key string, v bool) {
	c.mu.Lock()
	c.loading[key] = v
	c.mu.Unlock()
}

func copyPayload[T any](payload []T) []T {
	res := make([]T, len(payload))
	copy(res, payload)
	return res
}
