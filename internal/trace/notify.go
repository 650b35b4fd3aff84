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

package trace

import "sync"

// Var holds the latest value of type T plus a channel that closes
// every time the value changes, so a waiter can be woken without
// polling. Get returns the current value and the channel to wait on
// for the next update.
type Var[T any] struct {
	mu      sync.Mutex
	value   T
	updated chan struct{}
}

// Get returns the current value and a channel that closes the next
// time Set is called.
func (v *Var[T]) Get() (T, <-chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.updated == nil {
		v.updated = make(chan struct{})
	}
	return v.value, v.updated
}

// Set stores value and wakes every goroutine waiting on a channel
// returned by a prior Get.
func (v *Var[T]) Set(value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
	if v.updated != nil {
		close(v.updated)
	}
	v.updated = make(chan struct{})
}
