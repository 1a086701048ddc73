// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

// regEntry is one stream created by this system in the current tick.
type regEntry struct {
	s        Stream
	consumed bool // included in an AcquireReaders set this tick
}

// registry is the per-event-type state of one System for one tick: the
// streams created here, the deferred streams adopted from the share, the
// accumulated producer/consumer handles, and the pairing flags of the
// rendezvous protocol.
//
// Registries are mutated only by the orchestrating goroutine.
type registry struct {
	active  []regEntry
	adopted []Stream

	producer Handle
	consumer Handle

	writerOpen bool // CreateWriter awaiting AddProducerHandle
	readerOpen bool // AcquireReaders awaiting AddConsumerHandle
	published  bool // a producer handle was published this tick
}

// reset clears tick-local state after Update has drained the lists.
func (r *registry) reset() {
	r.active = nil
	r.adopted = nil
	r.producer = Handle{}
	r.consumer = Handle{}
	r.writerOpen = false
	r.readerOpen = false
	r.published = false
}
