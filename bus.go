// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"reflect"
	"sync"
)

// Bus is the identity under which systems share deferred streams.
//
// Systems register with a bus at construction; sharing is by interned
// string key. [ModeCustom] systems share under their custom key.
// [ModeActive] systems share under their world name while that world is
// the bus's active world (see [Bus.Activate]); otherwise they fall back
// to private visibility.
//
// A bus carries only deferred streams; all tick-local state stays inside
// the owning system.
type Bus struct {
	mu     sync.Mutex
	shares map[string]*share
	active string
}

// NewBus creates an empty bus. The active world starts as "".
func NewBus() *Bus {
	return &Bus{shares: make(map[string]*share)}
}

// Activate flags the given world as the active one. Systems in
// [ModeActive] resolve their sharing against the active world at access
// time.
func (b *Bus) Activate(world string) {
	b.mu.Lock()
	b.active = world
	b.mu.Unlock()
}

// ActiveWorld returns the currently active world name.
func (b *Bus) ActiveWorld() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// share interns the share for a key.
func (b *Bus) share(key string) *share {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.shares[key]
	if s == nil {
		s = newShare()
		b.shares[key] = s
	}
	return s
}

// share holds the deferred streams visible under one sharing key.
type share struct {
	mu       sync.Mutex
	deferred map[reflect.Type][]Stream
}

func newShare() *share {
	return &share{deferred: make(map[reflect.Type][]Stream)}
}

// put appends streams to the deferred list for an event type.
func (s *share) put(t reflect.Type, streams []Stream) {
	if len(streams) == 0 {
		return
	}
	s.mu.Lock()
	s.deferred[t] = append(s.deferred[t], streams...)
	s.mu.Unlock()
}

// take removes and returns all deferred streams for an event type.
func (s *share) take(t reflect.Type) []Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	streams := s.deferred[t]
	if len(streams) == 0 {
		return nil
	}
	delete(s.deferred, t)
	return streams
}

// count returns the number of deferred streams for an event type.
func (s *share) count(t reflect.Type) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deferred[t])
}
