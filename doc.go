// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package estream provides a multi-producer multi-consumer event bus built
// on block-allocated append-only streams.
//
// Producer tasks append typed events in parallel without cross-goroutine
// coordination; consumer tasks read them back in parallel with well-defined
// partitioning. A per-event-type rendezvous inside a [System] mediates the
// exchange across a scheduling tick, so producers and consumers compose into
// a task graph with precise dependency edges.
//
// # Components
//
//   - [BlockPool]: recycles fixed-size 4 KiB blocks across many short-lived
//     streams. Lock-free acquire/release, allocator fallback when empty.
//   - [ThreadStream]: append-only stream partitioned by executing worker.
//     Each worker writes its own partition; no two workers ever contend.
//   - [IndexStream]: append-only stream partitioned by caller-supplied
//     index, for deterministic placement.
//   - [Reader]: cursor over one stream; any number of readers may scan
//     distinct partitions of a frozen stream concurrently.
//   - [System]: the per-tick coordinator. Pairs writer creation with
//     producer handles, reader acquisition with consumer handles, and
//     carries unconsumed streams over to the next tick as deferred streams.
//   - [Executor]: a fixed worker pool driving the task graph. Every task
//     body receives a [TaskContext] carrying the worker index.
//
// # Quick Start
//
//	pool := estream.NewBlockPool()
//	exec := estream.NewExecutor(8)
//	defer exec.Close()
//
//	sys, _ := estream.NewSystem(pool, exec)
//
//	// Producer side
//	w, _ := estream.CreateWriter[Collision](sys)
//	h := exec.Run(estream.Handle{}, func(tc *estream.TaskContext) {
//	    pw := w.Partition(tc)
//	    estream.Write(pw, Collision{A: 1, B: 2})
//	})
//	estream.AddProducerHandle[Collision](sys, h)
//
//	// Consumer side
//	done, _ := estream.ForEachEvent(sys, estream.Handle{},
//	    func(tc *estream.TaskContext, c Collision) {
//	        resolve(c)
//	    })
//	done.Wait()
//
//	// End of tick
//	sys.Update()
//
// # Streams and Partitions
//
// A stream holds P independent FIFO partitions; each partition chains 4 KiB
// blocks from the [BlockPool]. Items within a partition are observed by a
// reader in write order. Items in different partitions have no relative
// order; a consumer that needs a global order must encode it explicitly.
//
// [ThreadStream] keys partitions by the executing worker: bind a writer to
// the running task with [Writer.Partition] and every write lands in that
// worker's partition. [IndexStream] keys partitions by caller index via the
// [IndexWriter] state machine:
//
//	w := s.IndexWriter()
//	w.BeginPartition(3)
//	estream.Write(&w, ev)
//	w.EndPartition()
//
// A partition may be opened at most once per stream lifetime.
//
// # Item Framing
//
// Items are bit-for-bit copies of plain-bytes values, written at 4-byte
// natural alignment. An item that does not fit the tail block is written
// whole into a fresh block; items up to one block are never split. Bulk
// payloads go through [WriteLarge], which emits a 4-byte little-endian
// length prefix and may straddle any number of blocks. Values whose layout
// contains pointers are rejected with [ErrManagedType].
//
// # Rendezvous Protocol
//
// Per event type E, within one tick:
//
//	CreateWriter[E]     → AddProducerHandle[E]   (must pair)
//	AcquireReaders[E]   → AddConsumerHandle[E]   (must pair)
//
// No writer may be created while a reader is outstanding for the same type,
// and vice versa. Violations return errors wrapping [ErrProtocol].
// [System.Update] waits for all published handles, releases fully consumed
// streams back to the pool, and defers unconsumed streams to the next tick.
//
// # Cross-System Delivery
//
// Systems attached to the same [Bus] under equal mode keys share deferred
// streams: events a fixed-step system produced in tick N are visible to a
// variable-step system acquiring readers in tick N+1.
//
//	bus := estream.NewBus()
//	a, _ := estream.NewSystem(pool, exec,
//	    estream.WithBus(bus), estream.WithMode(estream.ModeCustom), estream.WithCustomKey("fixed"))
//	b, _ := estream.NewSystem(pool, exec,
//	    estream.WithBus(bus), estream.WithMode(estream.ModeCustom), estream.WithCustomKey("fixed"))
//
// # Consumer Shapes
//
// Three adaptors cover the common reading shapes, each in a parallel
// fan-out and a serial form:
//
//   - [ForEachEvent] / [ForEachEventSerial]: every event exactly once.
//   - [ForEachPartition] / [ForEachPartitionSerial]: one call per
//     (reader, partition); the body walks items itself.
//   - [ForEachReader] / [ForEachReaderSerial]: one call per stream, for
//     consumers that need cross-partition state.
//
// Every adaptor publishes a consumer handle dominating its last task before
// returning, so [System.Update] observes completion.
//
// # Memory Reclamation
//
// Stream disposal is deferred: Dispose(h) flips IsCreated immediately but
// releases blocks only after h resolves, so live tasks never touch freed
// memory. [System.Update] batches disposal of consumed streams after the
// tick's handles complete. When the pool is configured with
// WithPersistentPool(false), its free list is additionally emptied at the
// end of each tick.
//
// # Thread Safety
//
// During production exactly one worker writes each partition; no reader
// runs. During consumption no writer runs; any number of readers scan
// distinct partitions. The rendezvous API of a [System] is confined to the
// goroutine that owns the tick (the orchestrator); it is not called from
// inside tasks. [BlockPool] operations are safe from any goroutine.
//
// # Error Handling
//
// Misuse surfaces as typed errors grouped under four kinds: [ErrProtocol]
// (unpaired create/publish, mode exclusion), [ErrCapacity] (partition index
// or count out of range), [ErrShape] (over-read, incomplete read, read
// outside a partition) and [ErrType] (pointer-carrying layouts). Allocator
// exhaustion is fatal. The stream is left consistent on every error; no
// partial commit is observable.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/lfq] for the lock-free MPMC queues
// backing the block free list and the executor run queue,
// [code.hybscloud.com/iobuf] for page-aligned block memory,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, [code.hybscloud.com/spin] for CPU pause instructions, and
// [code.hybscloud.com/iox] for semantic errors and backoff.
package estream
