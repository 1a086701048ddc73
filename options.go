// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

// Mode determines which systems share deferred streams.
type Mode int

const (
	// ModeDefault confines visibility to the owning System instance.
	ModeDefault Mode = iota

	// ModeActive shares deferred streams among systems attached to the
	// same Bus whose world is the bus's active world.
	ModeActive

	// ModeCustom shares deferred streams among systems attached to the
	// same Bus under equal custom keys.
	ModeCustom
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeActive:
		return "active"
	case ModeCustom:
		return "custom"
	default:
		return "invalid"
	}
}

type poolConfig struct {
	capacity   int
	persistent bool
}

// PoolOption configures a [BlockPool].
type PoolOption func(*poolConfig)

// WithPoolCapacity bounds the free list; capacity rounds up to the next
// power of two. Blocks released beyond the bound go to the collector.
func WithPoolCapacity(n int) PoolOption {
	return func(c *poolConfig) { c.capacity = n }
}

// WithPersistentPool controls whether recycled blocks survive scheduling
// boundaries. Persistent pools (the default) are required when multiple
// systems update at different tick rates, so blocks backing deferred
// streams are never reused prematurely. A non-persistent pool empties its
// free list at every System.Update.
func WithPersistentPool(persistent bool) PoolOption {
	return func(c *poolConfig) { c.persistent = persistent }
}

type systemConfig struct {
	mode  Mode
	key   string
	world string
	bus   *Bus
}

// SystemOption configures a [System].
type SystemOption func(*systemConfig)

// WithMode selects the deferred-stream sharing mode.
func WithMode(m Mode) SystemOption {
	return func(c *systemConfig) { c.mode = m }
}

// WithCustomKey sets the sharing key for [ModeCustom].
func WithCustomKey(key string) SystemOption {
	return func(c *systemConfig) { c.key = key }
}

// WithWorld names the world this system belongs to, for [ModeActive].
func WithWorld(world string) SystemOption {
	return func(c *systemConfig) { c.world = world }
}

// WithBus attaches the system to a [Bus]. Required for [ModeActive] and
// [ModeCustom].
func WithBus(b *Bus) SystemOption {
	return func(c *systemConfig) { c.bus = b }
}
