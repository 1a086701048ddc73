// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"encoding/binary"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// itemAlign is the natural alignment of item starts within a block.
const itemAlign = 4

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// partition is one independent FIFO sub-stream: an ordered chain of pool
// blocks plus tail metadata. During production a partition is written by
// exactly one worker, so its fields need no atomicity; visibility to
// readers is ordered by the producer handle.
type partition struct {
	first      *block
	last       *block
	lastOffset int
	count      int
	opened     atomix.Int32 // IndexStream: at-most-once open claim
	_          pad
}

// streamCore is the chain machinery shared by both stream flavors.
type streamCore struct {
	parts []partition
	pool  *BlockPool
	state atomix.Int32  // 1 created, 0 disposal scheduled
	gen   atomix.Uint64 // bumped on dispose; stale views are rejected
}

func (c *streamCore) init(pool *BlockPool, partitions int) {
	c.parts = make([]partition, partitions)
	c.pool = pool
	c.state.Store(1)
}

// check validates a writer view against the stream lifecycle.
func (c *streamCore) check(gen uint64) error {
	if c.state.LoadAcquire() == 0 {
		return ErrStreamDisposed
	}
	if c.gen.Load() != gen {
		return ErrStaleWriter
	}
	return nil
}

func (c *streamCore) partitionCount() int {
	return len(c.parts)
}

func (c *streamCore) totalItemCount() int {
	total := 0
	for i := range c.parts {
		total += c.parts[i].count
	}
	return total
}

func (c *streamCore) isCreated() bool {
	return c.state.LoadAcquire() == 1
}

// itemSlot reserves n contiguous bytes in p at 4-byte alignment, linking a
// fresh block when the tail block cannot hold the item whole.
func (c *streamCore) itemSlot(p *partition, n int) []byte {
	if p.first == nil {
		b := c.pool.acquire()
		p.first, p.last, p.lastOffset = b, b, 0
	}
	off := (p.lastOffset + itemAlign - 1) &^ (itemAlign - 1)
	if BlockSize-off < n {
		b := c.pool.acquire()
		p.last.next = b
		p.last = b
		off = 0
	}
	p.lastOffset = off + n
	return p.last.buf[off : off+n]
}

// appendItem commits one item of raw bytes to p. len(src) <= BlockSize.
func (c *streamCore) appendItem(p *partition, src []byte) {
	copy(c.itemSlot(p, len(src)), src)
	p.count++
}

// appendLarge commits one length-prefixed item that may straddle any
// number of blocks.
func (c *streamCore) appendLarge(p *partition, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return ErrTooLong
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	copy(c.itemSlot(p, len(prefix)), prefix[:])

	for src := payload; len(src) > 0; {
		if p.lastOffset == BlockSize {
			b := c.pool.acquire()
			p.last.next = b
			p.last = b
			p.lastOffset = 0
		}
		m := min(BlockSize-p.lastOffset, len(src))
		copy(p.last.buf[p.lastOffset:], src[:m])
		p.lastOffset += m
		src = src[m:]
	}
	p.count++
	return nil
}

// releaseAll walks every partition chain back into the pool.
func (c *streamCore) releaseAll() {
	for i := range c.parts {
		p := &c.parts[i]
		c.pool.releaseChain(p.first)
		p.first, p.last = nil, nil
	}
}

// dispose flips the stream to disposed immediately and schedules physical
// release behind the given handle.
func (c *streamCore) dispose(after Handle) Handle {
	if !c.state.CompareAndSwapAcqRel(1, 0) {
		return Handle{}
	}
	c.gen.Add(1)
	if after.Done() {
		c.releaseAll()
		return Handle{}
	}
	done := make(chan struct{})
	go func() {
		after.Wait()
		c.releaseAll()
		close(done)
	}()
	return Handle{c: done}
}

// Write appends a bit-for-bit copy of v as one item of the partition the
// writer view resolves to. The value's layout must be plain bytes; items
// larger than one block must use [WriteLarge].
//
// Items are framed at 4-byte natural alignment and are never split across
// blocks.
func Write[T any](w ItemWriter, v T) error {
	if err := checkUnmanaged[T](); err != nil {
		return err
	}
	c, p, err := w.target()
	if err != nil {
		return err
	}
	n := int(unsafe.Sizeof(v))
	if n > BlockSize {
		return ErrItemSize
	}
	if n == 0 {
		p.count++
		return nil
	}
	c.appendItem(p, unsafe.Slice((*byte)(unsafe.Pointer(&v)), n))
	return nil
}

// WriteLarge appends payload as one length-prefixed item that may straddle
// any number of blocks. The prefix is 4 bytes little-endian; payloads at
// or above 4 GiB return ErrTooLong.
func WriteLarge(w ItemWriter, payload []byte) error {
	c, p, err := w.target()
	if err != nil {
		return err
	}
	return c.appendLarge(p, payload)
}
