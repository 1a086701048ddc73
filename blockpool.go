// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iobuf"
	"code.hybscloud.com/lfq"
)

// BlockSize is the fixed payload size of one pool block in bytes.
// It equals the page size, so block payloads are page-aligned allocations.
const BlockSize = 4096

// DefaultPoolCapacity is the default bound of the free list.
const DefaultPoolCapacity = 1024

// block is one fixed-size payload buffer chained into a partition.
// A block is owned by exactly one partition at a time; ownership moves
// only through BlockPool acquire/release.
type block struct {
	next *block
	buf  []byte // BlockSize bytes, page-aligned
}

// BlockPool amortizes allocation of fixed-size blocks across many
// short-lived streams.
//
// The fast path pops a recycled block from a lock-free MPMC free list
// ([lfq.QueuePtr]); when the list is empty, acquire falls through to a
// fresh page-aligned allocation. Release never fails: when the bounded
// free list is full, the block is dropped to the collector.
//
// All operations are safe for concurrent use from any goroutine.
type BlockPool struct {
	free       lfq.QueuePtr
	persistent bool

	allocated atomix.Int64 // blocks obtained from the allocator
	inUse     atomix.Int64 // blocks currently owned by partitions
}

// NewBlockPool creates a block pool.
//
// By default the pool is persistent: recycled blocks survive scheduling
// boundaries. Configure with [WithPoolCapacity] and [WithPersistentPool].
func NewBlockPool(opts ...PoolOption) *BlockPool {
	cfg := poolConfig{capacity: DefaultPoolCapacity, persistent: true}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.capacity < 2 {
		panic("estream: pool capacity must be >= 2")
	}
	return &BlockPool{
		free:       lfq.NewMPMCPtr(cfg.capacity),
		persistent: cfg.persistent,
	}
}

// acquire returns a block owned by the caller. The payload is not zeroed.
func (p *BlockPool) acquire() *block {
	p.inUse.Add(1)
	if ptr, err := p.free.Dequeue(); err == nil {
		return (*block)(ptr)
	}
	p.allocated.Add(1)
	return &block{buf: iobuf.AlignedMem(BlockSize, iobuf.PageSize)}
}

// release returns a block to the free list. Never fails; when the free
// list is full the block is left to the collector.
func (p *BlockPool) release(b *block) {
	b.next = nil
	p.inUse.Add(-1)
	if p.free.Enqueue(unsafe.Pointer(b)) != nil {
		p.allocated.Add(-1)
	}
}

// releaseChain returns a whole partition chain to the pool.
func (p *BlockPool) releaseChain(head *block) {
	for b := head; b != nil; {
		next := b.next
		p.release(b)
		b = next
	}
}

// Drain empties the free list, handing its memory to the collector.
// In-use blocks are unaffected. Called at process teardown, and at every
// end-of-tick for non-persistent pools.
func (p *BlockPool) Drain() {
	for {
		if _, err := p.free.Dequeue(); err != nil {
			return
		}
		p.allocated.Add(-1)
	}
}

// tick is the end-of-tick hook invoked by System.Update.
func (p *BlockPool) tick() {
	if !p.persistent {
		p.Drain()
	}
}

// Persistent reports whether recycled blocks survive scheduling
// boundaries.
func (p *BlockPool) Persistent() bool {
	return p.persistent
}

// InUse returns the number of blocks currently owned by partitions.
func (p *BlockPool) InUse() int {
	return int(p.inUse.Load())
}

// Allocated returns the number of live blocks obtained from the
// allocator, whether in use or recycled.
func (p *BlockPool) Allocated() int {
	return int(p.allocated.Load())
}
