// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// The four diagnostic kinds. Every misuse error in this package wraps
// exactly one of them, so callers can classify with errors.Is:
//
//	if errors.Is(err, estream.ErrProtocol) { ... }
//
// or pinpoint the specific condition:
//
//	if errors.Is(err, estream.ErrIncompleteRead) { ... }
var (
	// ErrProtocol reports a violated rendezvous or writer protocol:
	// unpaired create/publish, a writer created while a reader is
	// outstanding, unbalanced begin/end, or a stale writer view.
	ErrProtocol = errors.New("estream: protocol violation")

	// ErrCapacity reports an out-of-range partition index or count.
	ErrCapacity = errors.New("estream: capacity violation")

	// ErrShape reports a malformed read sequence: over-read, incomplete
	// read at EndPartition, or a read with no partition active.
	ErrShape = errors.New("estream: shape violation")

	// ErrType reports an attempt to persist a value whose memory layout
	// is not plain bytes.
	ErrType = errors.New("estream: type violation")
)

// Protocol conditions.
var (
	// ErrWriterOpen reports CreateWriter or AcquireReaders while a prior
	// writer for the same event type has not published its producer
	// handle.
	ErrWriterOpen = fmt.Errorf("%w: writer already open", ErrProtocol)

	// ErrReaderOpen reports CreateWriter or AcquireReaders while a prior
	// reader for the same event type has not published its consumer
	// handle.
	ErrReaderOpen = fmt.Errorf("%w: reader already open", ErrProtocol)

	// ErrNoWriter reports AddProducerHandle with no writer pending.
	ErrNoWriter = fmt.Errorf("%w: no writer awaiting a producer handle", ErrProtocol)

	// ErrNoReader reports AddConsumerHandle with no reader pending.
	ErrNoReader = fmt.Errorf("%w: no reader awaiting a consumer handle", ErrProtocol)

	// ErrPartitionOpen reports BeginPartition on a reader whose previous
	// partition was not closed.
	ErrPartitionOpen = fmt.Errorf("%w: partition already open", ErrProtocol)

	// ErrPartitionClosed reports Write or EndPartition with no partition
	// open on an IndexWriter.
	ErrPartitionClosed = fmt.Errorf("%w: no partition open", ErrProtocol)

	// ErrPartitionReopened reports opening the same partition index a
	// second time during one stream lifetime.
	ErrPartitionReopened = fmt.Errorf("%w: partition opened twice", ErrProtocol)

	// ErrStaleWriter reports a write through a writer view from a
	// previous stream generation.
	ErrStaleWriter = fmt.Errorf("%w: stale writer view", ErrProtocol)

	// ErrStreamDisposed reports access to a stream whose disposal has
	// been scheduled.
	ErrStreamDisposed = fmt.Errorf("%w: stream disposed", ErrProtocol)
)

// Capacity conditions.
var (
	// ErrPartitionRange reports a partition index outside [0, P).
	ErrPartitionRange = fmt.Errorf("%w: partition index out of range", ErrCapacity)

	// ErrPartitionCount reports a non-positive partition count.
	ErrPartitionCount = fmt.Errorf("%w: partition count must be positive", ErrCapacity)

	// ErrTooLong reports a large payload exceeding the 32-bit length
	// prefix.
	ErrTooLong = fmt.Errorf("%w: payload too long", ErrCapacity)
)

// Shape conditions.
var (
	// ErrOverRead reports a read past the end of the current partition.
	ErrOverRead = fmt.Errorf("%w: read past partition end", ErrShape)

	// ErrIncompleteRead reports EndPartition before all items were read.
	ErrIncompleteRead = fmt.Errorf("%w: partition closed with items remaining", ErrShape)

	// ErrReadInactive reports Read, Peek or EndPartition with no
	// BeginPartition active.
	ErrReadInactive = fmt.Errorf("%w: no partition is being read", ErrShape)

	// ErrItemSize reports a plain Write of an item larger than one
	// block. Such payloads must go through WriteLarge.
	ErrItemSize = fmt.Errorf("%w: item exceeds block size", ErrShape)
)

// Type conditions.
var (
	// ErrManagedType reports a value whose layout contains pointers
	// (pointers, maps, slices, strings, channels, funcs, interfaces).
	ErrManagedType = fmt.Errorf("%w: value layout contains pointers", ErrType)
)

// ErrInvalidMode reports an unknown or inconsistently configured mode at
// system construction.
var ErrInvalidMode = errors.New("estream: invalid mode")

// ErrWouldBlock indicates a pool or queue operation cannot proceed
// immediately. It is a control flow signal, not a failure.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
