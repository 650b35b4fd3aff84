// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package exprcache caches compiled DSL expressions keyed by their
// source text and the schema they were compiled against, so that a
// Project's assignments and filters are parsed, type-checked, and
// lowered only once per distinct (expression, schema shape) pair
// rather than once per row batch.
package exprcache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dobonomodo_expr_cache_hits_total",
		Help: "Compiled-expression cache hits.",
	})
	missCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dobonomodo_expr_cache_misses_total",
		Help: "Compiled-expression cache misses.",
	})
)

type key struct {
	expr        string
	schemaPrint string
	mode        int
}

// Cache memoizes a compilation function's result by (expression text,
// schema fingerprint, mode). It never evicts: callers bound growth by
// scoping a Cache to the lifetime of a single Run, where the number of
// distinct expressions is small and fixed by the Project definition.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[key]cacheEntry[T]
}

type cacheEntry[T any] struct {
	val T
	err error
}

// New constructs an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{items: make(map[key]cacheEntry[T])}
}

// GetOrCompile returns the cached (value, error) for the given key,
// compiling and storing it on first access. A cached error is returned
// again on every subsequent lookup without re-invoking compile.
func (c *Cache[T]) GetOrCompile(expr, schemaPrint string, mode int, compile func() (T, error)) (T, error) {
	k := key{expr: expr, schemaPrint: schemaPrint, mode: mode}

	c.mu.RLock()
	entry, ok := c.items[k]
	c.mu.RUnlock()
	if ok {
		hitCount.Inc()
		return entry.val, entry.err
	}

	missCount.Inc()
	val, err := compile()

	c.mu.Lock()
	c.items[k] = cacheEntry[T]{val: val, err: err}
	c.mu.Unlock()

	return val, err
}

// Len reports the number of distinct entries cached, for diagnostics.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
