// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

// Consumer adaptors: the three reading shapes over the reader set of one
// event type. Each adaptor acquires the readers, schedules its scan on the
// system's executor, and publishes a consumer handle dominating the last
// task it scheduled before returning — the rendezvous is complete when an
// adaptor returns.
//
// The parallel forms fan out across streams simultaneously; the serial
// forms chain streams one at a time (partitions of a stream still scan in
// parallel where the shape allows). Both observe the same set of events;
// only the order differs.

// ForEachEvent yields every event of type E from every partition of every
// reader exactly once, fanning out across streams and partitions.
func ForEachEvent[E any](s *System, dep Handle, fn func(*TaskContext, E)) (Handle, error) {
	h, readers, err := AcquireReaders[E](s, dep)
	if err != nil {
		return Handle{}, err
	}
	handles := make([]Handle, 0, len(readers))
	for i := range readers {
		r := readers[i]
		handles = append(handles, s.exec.RunN(h, r.PartitionCount(), func(tc *TaskContext, part int) {
			scanPartition(r, part, tc, fn)
		}))
	}
	out := Combine(handles...)
	if err := AddConsumerHandle[E](s, out); err != nil {
		return Handle{}, err
	}
	return out, nil
}

// ForEachEventSerial yields every event of type E exactly once as a
// serial chain over streams: one stream at a time, its partitions scanned
// in parallel.
func ForEachEventSerial[E any](s *System, dep Handle, fn func(*TaskContext, E)) (Handle, error) {
	h, readers, err := AcquireReaders[E](s, dep)
	if err != nil {
		return Handle{}, err
	}
	cur := h
	for i := range readers {
		r := readers[i]
		cur = s.exec.RunN(cur, r.PartitionCount(), func(tc *TaskContext, part int) {
			scanPartition(r, part, tc, fn)
		})
	}
	if err := AddConsumerHandle[E](s, cur); err != nil {
		return Handle{}, err
	}
	return cur, nil
}

// ForEachPartition yields each (reader, partition index) pair of event
// type E once, in parallel. The body walks the partition itself; the
// reader it receives is an independent cursor.
func ForEachPartition[E any](s *System, dep Handle, fn func(*TaskContext, *Reader, int)) (Handle, error) {
	h, readers, err := AcquireReaders[E](s, dep)
	if err != nil {
		return Handle{}, err
	}
	handles := make([]Handle, 0, len(readers))
	for i := range readers {
		r := readers[i]
		handles = append(handles, s.exec.RunN(h, r.PartitionCount(), func(tc *TaskContext, part int) {
			rr := r
			fn(tc, &rr, part)
		}))
	}
	out := Combine(handles...)
	if err := AddConsumerHandle[E](s, out); err != nil {
		return Handle{}, err
	}
	return out, nil
}

// ForEachPartitionSerial is [ForEachPartition] as a serial chain over
// streams; partitions of one stream still run in parallel.
func ForEachPartitionSerial[E any](s *System, dep Handle, fn func(*TaskContext, *Reader, int)) (Handle, error) {
	h, readers, err := AcquireReaders[E](s, dep)
	if err != nil {
		return Handle{}, err
	}
	cur := h
	for i := range readers {
		r := readers[i]
		cur = s.exec.RunN(cur, r.PartitionCount(), func(tc *TaskContext, part int) {
			rr := r
			fn(tc, &rr, part)
		})
	}
	if err := AddConsumerHandle[E](s, cur); err != nil {
		return Handle{}, err
	}
	return cur, nil
}

// ForEachReader yields each reader of event type E once, in parallel, for
// consumers that need cross-partition state.
func ForEachReader[E any](s *System, dep Handle, fn func(*TaskContext, *Reader, int)) (Handle, error) {
	h, readers, err := AcquireReaders[E](s, dep)
	if err != nil {
		return Handle{}, err
	}
	out := s.exec.RunN(h, len(readers), func(tc *TaskContext, i int) {
		rr := readers[i]
		fn(tc, &rr, i)
	})
	if err := AddConsumerHandle[E](s, out); err != nil {
		return Handle{}, err
	}
	return out, nil
}

// ForEachReaderSerial is [ForEachReader] as a serial chain: one task per
// stream, each depending on the previous.
func ForEachReaderSerial[E any](s *System, dep Handle, fn func(*TaskContext, *Reader, int)) (Handle, error) {
	h, readers, err := AcquireReaders[E](s, dep)
	if err != nil {
		return Handle{}, err
	}
	cur := h
	for i := range readers {
		r := readers[i]
		cur = s.exec.Run(cur, func(tc *TaskContext) {
			rr := r
			fn(tc, &rr, i)
		})
	}
	if err := AddConsumerHandle[E](s, cur); err != nil {
		return Handle{}, err
	}
	return cur, nil
}

// scanPartition walks one partition start to end, yielding each item.
// Reader misuse cannot occur here; framing errors indicate a corrupted
// stream and abort the task.
func scanPartition[E any](r Reader, part int, tc *TaskContext, fn func(*TaskContext, E)) {
	n, err := r.BeginPartition(part)
	if err != nil {
		panic(err)
	}
	for range n {
		v, err := Read[E](&r)
		if err != nil {
			panic(err)
		}
		fn(tc, v)
	}
	if err := r.EndPartition(); err != nil {
		panic(err)
	}
}
