// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

// Stream is the contract common to both stream flavors.
//
// [ThreadStream] and [IndexStream] differ only on the writer side; readers
// and lifecycle are uniform, so consumers never branch on flavor.
//
// A stream is produced then consumed. During production exactly one worker
// writes each partition and no reader runs; during consumption no writer
// runs and any number of readers may scan distinct partitions.
type Stream interface {
	// PartitionCount returns the number of partitions P fixed at
	// construction.
	PartitionCount() int

	// TotalItemCount sums the element counts of all partitions.
	// Valid once production has completed (ordered by the producer
	// handle).
	TotalItemCount() int

	// IsCreated reports whether the stream's payload is still live.
	// It reads false as soon as disposal has been scheduled, even while
	// physical release is deferred behind a handle.
	IsCreated() bool

	// Reader returns a fresh cursor over the stream. Readers are
	// independent values; copy freely.
	Reader() Reader

	// Dispose schedules the stream's blocks to return to the pool after
	// the given handle resolves, and returns a handle that resolves when
	// the release has happened. IsCreated reads false immediately.
	// Disposing twice is a no-op; the second call returns the resolved
	// handle.
	Dispose(after Handle) Handle

	// core exposes the shared chain machinery to package internals and
	// pins the implementations to this package.
	core() *streamCore
}

// ItemWriter is the sink accepted by [Write] and [WriteLarge]: a writer
// view resolved to one partition. [Writer.Partition] produces one for the
// executing worker's partition of a [ThreadStream]; a *[IndexWriter] is one
// for the partition it currently holds open.
type ItemWriter interface {
	// target resolves the destination partition, validating the view.
	target() (*streamCore, *partition, error)
}
