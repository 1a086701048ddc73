// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

// ThreadStream is an append-only stream whose partition key is the
// executing worker's index. Each worker writes its own partition, so
// parallel producer tasks never contend on stream state.
//
// The partition count is fixed at construction and must cover every worker
// that will write (normally [Executor.Workers]).
type ThreadStream struct {
	sc streamCore
}

// NewThreadStream creates a worker-indexed stream with one partition per
// worker. Panics if workers < 1.
func NewThreadStream(pool *BlockPool, workers int) *ThreadStream {
	if workers < 1 {
		panic("estream: worker count must be >= 1")
	}
	s := &ThreadStream{}
	s.sc.init(pool, workers)
	return s
}

// Writer returns a writer view of the stream.
//
// The view is stateless: it carries only the stream reference and the
// stream generation it was minted for. Duplicating it by value is legal;
// once the stream is disposed, writes through any view fail with
// [ErrStreamDisposed].
func (s *ThreadStream) Writer() Writer {
	return Writer{c: &s.sc, gen: s.sc.gen.Load()}
}

// PartitionCount returns the number of partitions.
func (s *ThreadStream) PartitionCount() int { return s.sc.partitionCount() }

// TotalItemCount sums the element counts of all partitions.
func (s *ThreadStream) TotalItemCount() int { return s.sc.totalItemCount() }

// IsCreated reports whether the stream payload is still live.
func (s *ThreadStream) IsCreated() bool { return s.sc.isCreated() }

// Reader returns a fresh cursor over the stream.
func (s *ThreadStream) Reader() Reader { return newReader(&s.sc) }

// Dispose schedules block release after the given handle resolves.
// IsCreated reads false immediately.
func (s *ThreadStream) Dispose(after Handle) Handle { return s.sc.dispose(after) }

func (s *ThreadStream) core() *streamCore { return &s.sc }

// Writer is the producer view of a [ThreadStream].
//
// A Writer holds no mutable per-worker state; the destination partition is
// discovered from the injected task context at write time:
//
//	h := exec.Run(dep, func(tc *estream.TaskContext) {
//	    pw := w.Partition(tc)
//	    estream.Write(pw, ev)
//	})
type Writer struct {
	c   *streamCore
	gen uint64
}

// Partition binds the writer to the executing worker's partition.
// The returned view is what [Write] and [WriteLarge] consume.
func (w Writer) Partition(tc *TaskContext) PartitionWriter {
	return PartitionWriter{c: w.c, gen: w.gen, idx: tc.Worker()}
}

// PartitionWriter is a [Writer] resolved to one worker's partition.
type PartitionWriter struct {
	c   *streamCore
	gen uint64
	idx int
}

func (w PartitionWriter) target() (*streamCore, *partition, error) {
	if err := w.c.check(w.gen); err != nil {
		return nil, nil, err
	}
	if w.idx < 0 || w.idx >= len(w.c.parts) {
		return nil, nil, ErrPartitionRange
	}
	return w.c, &w.c.parts[w.idx], nil
}
