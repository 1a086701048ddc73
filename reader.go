// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"encoding/binary"
	"unsafe"
)

// Reader is a cursor over one stream.
//
// A Reader is a plain value: copies are independent cursors, and any
// number of them may scan a frozen stream concurrently as long as writers
// have completed (ordered by the producer handle). Reading follows the
// begin/read/end shape per partition:
//
//	n, _ := r.BeginPartition(2)
//	for range n {
//	    ev, _ := estream.Read[Damage](&r)
//	    apply(ev)
//	}
//	r.EndPartition()
//
// EndPartition fails unless every item of the partition was consumed.
type Reader struct {
	c      *streamCore
	cur    int // partition being read, -1 when idle
	blk    *block
	off    int
	remain int // items remaining in the current partition
}

func newReader(c *streamCore) Reader {
	return Reader{c: c, cur: -1}
}

// PartitionCount returns the stream's partition count.
func (r *Reader) PartitionCount() int {
	return r.c.partitionCount()
}

// TotalItemCount sums the element counts of all partitions.
func (r *Reader) TotalItemCount() int {
	return r.c.totalItemCount()
}

// RemainingInPartition returns the number of unread items in the current
// partition, or 0 when no partition is active.
func (r *Reader) RemainingInPartition() int {
	if r.cur < 0 {
		return 0
	}
	return r.remain
}

// BeginPartition seeks to partition i's first block and returns its
// element count. i must be in [0, PartitionCount); the previous partition
// must have been closed.
func (r *Reader) BeginPartition(i int) (int, error) {
	if r.c.state.LoadAcquire() == 0 {
		return 0, ErrStreamDisposed
	}
	if r.cur >= 0 {
		return 0, ErrPartitionOpen
	}
	if i < 0 || i >= len(r.c.parts) {
		return 0, ErrPartitionRange
	}
	p := &r.c.parts[i]
	r.cur = i
	r.blk = p.first
	r.off = 0
	r.remain = p.count
	return p.count, nil
}

// EndPartition closes the current partition. It fails with
// ErrIncompleteRead unless all items have been consumed.
func (r *Reader) EndPartition() error {
	if r.cur < 0 {
		return ErrReadInactive
	}
	if r.remain > 0 {
		return ErrIncompleteRead
	}
	r.cur = -1
	r.blk = nil
	r.off = 0
	return nil
}

// next validates that one more item may be consumed.
func (r *Reader) next() error {
	if r.cur < 0 {
		return ErrReadInactive
	}
	if r.remain == 0 {
		return ErrOverRead
	}
	return nil
}

// itemBytes positions the cursor at the next n-byte item, mirroring the
// writer's framing: align to 4 bytes, advance to the next block when the
// remainder of this one cannot hold the item whole.
func (r *Reader) itemBytes(n int) []byte {
	off := (r.off + itemAlign - 1) &^ (itemAlign - 1)
	if BlockSize-off < n {
		r.blk = r.blk.next
		off = 0
	}
	r.off = off + n
	return r.blk.buf[off : off+n]
}

// Read returns the next item of the current partition.
//
// The type must match what the producer wrote at this position; framing is
// bit-exact and carries no per-item type information.
func Read[T any](r *Reader) (T, error) {
	var v T
	if err := checkUnmanaged[T](); err != nil {
		return v, err
	}
	if err := r.next(); err != nil {
		return v, err
	}
	n := int(unsafe.Sizeof(v))
	if n > BlockSize {
		return v, ErrItemSize
	}
	if n > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), n), r.itemBytes(n))
	}
	r.remain--
	return v, nil
}

// Peek returns the next item without advancing the cursor.
func Peek[T any](r *Reader) (T, error) {
	tmp := *r
	return Read[T](&tmp)
}

// ReadLarge reads one length-prefixed item written by [WriteLarge],
// reassembling the payload across blocks.
func ReadLarge(r *Reader) ([]byte, error) {
	if err := r.next(); err != nil {
		return nil, err
	}
	prefix := r.itemBytes(4)
	n := int(binary.LittleEndian.Uint32(prefix))
	payload := make([]byte, n)
	for dst := payload; len(dst) > 0; {
		if r.off == BlockSize {
			r.blk = r.blk.next
			r.off = 0
		}
		m := min(BlockSize-r.off, len(dst))
		copy(dst[:m], r.blk.buf[r.off:r.off+m])
		r.off += m
		dst = dst[m:]
	}
	r.remain--
	return payload, nil
}
