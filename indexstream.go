// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

// IndexStream is an append-only stream whose partition key is supplied by
// the caller, for deterministic placement. The partition count is fixed at
// construction and must equal the caller's intended partition domain;
// there is no resize.
//
// Writing goes through the [IndexWriter] state machine. Distinct
// partitions may be written concurrently by distinct IndexWriter values;
// each partition may be opened at most once per stream lifetime.
type IndexStream struct {
	sc streamCore
}

// NewIndexStream creates a caller-indexed stream with the given partition
// count. Panics if partitions < 1.
func NewIndexStream(pool *BlockPool, partitions int) *IndexStream {
	if partitions < 1 {
		panic("estream: partition count must be >= 1")
	}
	s := &IndexStream{}
	s.sc.init(pool, partitions)
	return s
}

// IndexWriter returns a fresh writer state machine over the stream.
// Each concurrent writing task takes its own value.
func (s *IndexStream) IndexWriter() IndexWriter {
	return IndexWriter{c: &s.sc, gen: s.sc.gen.Load(), cur: -1}
}

// PartitionCount returns the number of partitions.
func (s *IndexStream) PartitionCount() int { return s.sc.partitionCount() }

// TotalItemCount sums the element counts of all partitions.
func (s *IndexStream) TotalItemCount() int { return s.sc.totalItemCount() }

// IsCreated reports whether the stream payload is still live.
func (s *IndexStream) IsCreated() bool { return s.sc.isCreated() }

// Reader returns a fresh cursor over the stream.
func (s *IndexStream) Reader() Reader { return newReader(&s.sc) }

// Dispose schedules block release after the given handle resolves.
// IsCreated reads false immediately.
func (s *IndexStream) Dispose(after Handle) Handle { return s.sc.dispose(after) }

func (s *IndexStream) core() *streamCore { return &s.sc }

// IndexWriter is the producer state machine of an [IndexStream]:
//
//	Idle → BeginPartition(i) → Open(i) → EndPartition → Idle
//
// Writes are legal only while a partition is open. The canonical form
// balances every BeginPartition with an EndPartition; as an optional
// variant, BeginPartition on an open writer implicitly closes the previous
// partition first. Re-opening a partition index that was ever opened on
// this stream is a protocol error.
type IndexWriter struct {
	c   *streamCore
	gen uint64
	cur int // open partition index, -1 when idle
}

// BeginPartition opens partition i for writing.
//
// i must be in [0, PartitionCount) and must not have been opened before on
// this stream, by any writer value. An open partition on this writer is
// implicitly closed.
func (w *IndexWriter) BeginPartition(i int) error {
	if err := w.c.check(w.gen); err != nil {
		return err
	}
	if i < 0 || i >= len(w.c.parts) {
		return ErrPartitionRange
	}
	if !w.c.parts[i].opened.CompareAndSwapAcqRel(0, 1) {
		return ErrPartitionReopened
	}
	w.cur = i
	return nil
}

// EndPartition closes the open partition. An empty open/close pair is
// legal; its reader observes zero items.
func (w *IndexWriter) EndPartition() error {
	if err := w.c.check(w.gen); err != nil {
		return err
	}
	if w.cur < 0 {
		return ErrPartitionClosed
	}
	w.cur = -1
	return nil
}

func (w *IndexWriter) target() (*streamCore, *partition, error) {
	if err := w.c.check(w.gen); err != nil {
		return nil, nil, err
	}
	if w.cur < 0 {
		return nil, nil, ErrPartitionClosed
	}
	return w.c, &w.c.parts[w.cur], nil
}
