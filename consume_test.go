// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream_test

import (
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/estream"
)

// TestThreeProducersOneConsumer exercises one tick with three
// caller-indexed producers of different partition counts.
func TestThreeProducersOneConsumer(t *testing.T) {
	sys, pool, _ := newSystem(t)
	counts := []int{2, 1, 3}

	for _, count := range counts {
		w, err := estream.CreateIndexWriter[collision](sys, count)
		if err != nil {
			t.Fatalf("CreateIndexWriter(%d): %v", count, err)
		}
		for j := range count {
			if err := w.BeginPartition(j); err != nil {
				t.Fatalf("BeginPartition(%d): %v", j, err)
			}
			for _, a := range []uint32{uint32(j + 1), uint32(j + 2)} {
				if err := estream.Write(&w, collision{A: a}); err != nil {
					t.Fatalf("Write: %v", err)
				}
			}
			if err := w.EndPartition(); err != nil {
				t.Fatalf("EndPartition: %v", err)
			}
		}
		if err := estream.AddProducerHandle[collision](sys, estream.Handle{}); err != nil {
			t.Fatalf("AddProducerHandle: %v", err)
		}
	}

	_, readers, err := estream.AcquireReaders[collision](sys, estream.Handle{})
	if err != nil {
		t.Fatalf("AcquireReaders: %v", err)
	}
	if len(readers) != 3 {
		t.Fatalf("readers: got %d, want 3", len(readers))
	}
	for i, count := range counts {
		r := readers[i]
		if got := r.PartitionCount(); got != count {
			t.Fatalf("reader %d PartitionCount: got %d, want %d", i, got, count)
		}
		for j := range count {
			n, err := r.BeginPartition(j)
			if err != nil {
				t.Fatalf("reader %d BeginPartition(%d): %v", i, j, err)
			}
			if n != 2 {
				t.Fatalf("reader %d partition %d count: got %d, want 2", i, j, n)
			}
			for _, want := range []uint32{uint32(j + 1), uint32(j + 2)} {
				ev, err := estream.Read[collision](&r)
				if err != nil {
					t.Fatalf("Read: %v", err)
				}
				if ev.A != want {
					t.Fatalf("reader %d partition %d: got %d, want %d", i, j, ev.A, want)
				}
			}
			if err := r.EndPartition(); err != nil {
				t.Fatalf("EndPartition: %v", err)
			}
		}
	}
	if err := estream.AddConsumerHandle[collision](sys, estream.Handle{}); err != nil {
		t.Fatalf("AddConsumerHandle: %v", err)
	}
	sys.Update()
	if got := pool.InUse(); got != 0 {
		t.Fatalf("InUse after Update: got %d, want 0", got)
	}
}

// TestFanOutConsumersSeeIdenticalSets verifies two acquiring consumers in
// one tick observe the same reader set and multiset of events.
func TestFanOutConsumersSeeIdenticalSets(t *testing.T) {
	sys, _, _ := newSystem(t)

	w, err := estream.CreateIndexWriter[collision](sys, 3)
	if err != nil {
		t.Fatalf("CreateIndexWriter: %v", err)
	}
	for j := range 3 {
		if err := w.BeginPartition(j); err != nil {
			t.Fatalf("BeginPartition: %v", err)
		}
		for _, a := range []uint32{uint32(j + 1), uint32(j + 2)} {
			if err := estream.Write(&w, collision{A: a}); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		if err := w.EndPartition(); err != nil {
			t.Fatalf("EndPartition: %v", err)
		}
	}
	if err := estream.AddProducerHandle[collision](sys, estream.Handle{}); err != nil {
		t.Fatalf("AddProducerHandle: %v", err)
	}

	collect := func() map[uint32]int {
		t.Helper()
		_, readers, err := estream.AcquireReaders[collision](sys, estream.Handle{})
		if err != nil {
			t.Fatalf("AcquireReaders: %v", err)
		}
		seen := make(map[uint32]int)
		for _, r := range readers {
			for j := range r.PartitionCount() {
				n, err := r.BeginPartition(j)
				if err != nil {
					t.Fatalf("BeginPartition: %v", err)
				}
				if n != 2 {
					t.Fatalf("partition %d count: got %d, want 2", j, n)
				}
				for range n {
					ev, err := estream.Read[collision](&r)
					if err != nil {
						t.Fatalf("Read: %v", err)
					}
					seen[ev.A]++
				}
				if err := r.EndPartition(); err != nil {
					t.Fatalf("EndPartition: %v", err)
				}
			}
		}
		if err := estream.AddConsumerHandle[collision](sys, estream.Handle{}); err != nil {
			t.Fatalf("AddConsumerHandle: %v", err)
		}
		return seen
	}

	first := collect()
	second := collect()
	if len(first) != len(second) {
		t.Fatalf("fan-out multisets differ in support: %v vs %v", first, second)
	}
	for k, v := range first {
		if second[k] != v {
			t.Fatalf("fan-out multisets differ at %d: %d vs %d", k, v, second[k])
		}
	}
}

// TestParallelProducerTriangle is the concurrency property: a fan-out of
// P units over P workers, unit i writing i items, total P·(P−1)/2.
func TestParallelProducerTriangle(t *testing.T) {
	if estream.RaceEnabled {
		t.Skip("skip: executor tests exercise lock-free queues concurrently")
	}
	pool := estream.NewBlockPool()
	exec := estream.NewExecutor(8)
	defer exec.Close()

	p := exec.Workers()
	s := estream.NewThreadStream(pool, p)
	w := s.Writer()

	// Unit i writes i items into whichever worker runs it; units on one
	// worker append sequentially, so the total is preserved.
	h := exec.RunN(estream.Handle{}, p, func(tc *estream.TaskContext, i int) {
		pw := w.Partition(tc)
		for range i {
			if err := estream.Write(pw, uint32(i)); err != nil {
				t.Errorf("Write: %v", err)
			}
		}
	})
	waitHandle(t, h, "producer fan-out did not complete")

	if got, want := s.TotalItemCount(), p*(p-1)/2; got != want {
		t.Fatalf("TotalItemCount: got %d, want %d", got, want)
	}
	s.Dispose(estream.Handle{}).Wait()
	if got := pool.InUse(); got != 0 {
		t.Fatalf("InUse after dispose: got %d, want 0", got)
	}
}

// TestForEachEvent verifies the parallel adaptor yields every event
// exactly once and publishes its consumer handle.
func TestForEachEvent(t *testing.T) {
	if estream.RaceEnabled {
		t.Skip("skip: executor tests exercise lock-free queues concurrently")
	}
	sys, pool, _ := newSystem(t)

	const parts, per = 4, 8
	w, err := estream.CreateIndexWriter[collision](sys, parts)
	if err != nil {
		t.Fatalf("CreateIndexWriter: %v", err)
	}
	for j := range parts {
		if err := w.BeginPartition(j); err != nil {
			t.Fatalf("BeginPartition: %v", err)
		}
		for k := range per {
			if err := estream.Write(&w, collision{A: uint32(j*per + k)}); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		if err := w.EndPartition(); err != nil {
			t.Fatalf("EndPartition: %v", err)
		}
	}
	if err := estream.AddProducerHandle[collision](sys, estream.Handle{}); err != nil {
		t.Fatalf("AddProducerHandle: %v", err)
	}

	seen := make([]atomix.Int32, parts*per)
	done, err := estream.ForEachEvent(sys, estream.Handle{}, func(tc *estream.TaskContext, ev collision) {
		seen[ev.A].Add(1)
	})
	if err != nil {
		t.Fatalf("ForEachEvent: %v", err)
	}
	waitHandle(t, done, "ForEachEvent did not complete")
	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Fatalf("event %d observed %d times, want 1", i, got)
		}
	}

	sys.Update()
	if got := pool.InUse(); got != 0 {
		t.Fatalf("InUse after Update: got %d, want 0", got)
	}
}

// TestForEachEventSerialSameMultiset verifies serial and parallel forms
// observe identical multisets.
func TestForEachEventSerialSameMultiset(t *testing.T) {
	if estream.RaceEnabled {
		t.Skip("skip: executor tests exercise lock-free queues concurrently")
	}
	sys, _, _ := newSystem(t)

	const total = 24
	w, err := estream.CreateIndexWriter[collision](sys, 3)
	if err != nil {
		t.Fatalf("CreateIndexWriter: %v", err)
	}
	for j := range 3 {
		if err := w.BeginPartition(j); err != nil {
			t.Fatalf("BeginPartition: %v", err)
		}
		for k := range total / 3 {
			if err := estream.Write(&w, collision{A: uint32(j*(total/3) + k)}); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		if err := w.EndPartition(); err != nil {
			t.Fatalf("EndPartition: %v", err)
		}
	}
	if err := estream.AddProducerHandle[collision](sys, estream.Handle{}); err != nil {
		t.Fatalf("AddProducerHandle: %v", err)
	}

	parallel := make([]atomix.Int32, total)
	done, err := estream.ForEachEvent(sys, estream.Handle{}, func(_ *estream.TaskContext, ev collision) {
		parallel[ev.A].Add(1)
	})
	if err != nil {
		t.Fatalf("ForEachEvent: %v", err)
	}
	waitHandle(t, done, "parallel adaptor did not complete")

	serial := make([]atomix.Int32, total)
	done, err = estream.ForEachEventSerial(sys, estream.Handle{}, func(_ *estream.TaskContext, ev collision) {
		serial[ev.A].Add(1)
	})
	if err != nil {
		t.Fatalf("ForEachEventSerial: %v", err)
	}
	waitHandle(t, done, "serial adaptor did not complete")

	for i := range total {
		if parallel[i].Load() != 1 || serial[i].Load() != 1 {
			t.Fatalf("event %d: parallel %d, serial %d, want 1 and 1",
				i, parallel[i].Load(), serial[i].Load())
		}
	}
	sys.Update()
}

// TestForEachPartition verifies one yield per (reader, partition).
func TestForEachPartition(t *testing.T) {
	if estream.RaceEnabled {
		t.Skip("skip: executor tests exercise lock-free queues concurrently")
	}
	sys, _, _ := newSystem(t)

	w, err := estream.CreateIndexWriter[collision](sys, 5)
	if err != nil {
		t.Fatalf("CreateIndexWriter: %v", err)
	}
	for j := range 5 {
		if err := w.BeginPartition(j); err != nil {
			t.Fatalf("BeginPartition: %v", err)
		}
		if err := estream.Write(&w, collision{A: uint32(j)}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.EndPartition(); err != nil {
			t.Fatalf("EndPartition: %v", err)
		}
	}
	if err := estream.AddProducerHandle[collision](sys, estream.Handle{}); err != nil {
		t.Fatalf("AddProducerHandle: %v", err)
	}

	visited := make([]atomix.Int32, 5)
	done, err := estream.ForEachPartition[collision](sys, estream.Handle{},
		func(tc *estream.TaskContext, r *estream.Reader, part int) {
			n, err := r.BeginPartition(part)
			if err != nil {
				t.Errorf("BeginPartition(%d): %v", part, err)
				return
			}
			for range n {
				ev, err := estream.Read[collision](r)
				if err != nil {
					t.Errorf("Read: %v", err)
					return
				}
				if int(ev.A) != part {
					t.Errorf("partition %d: got %d", part, ev.A)
				}
			}
			if err := r.EndPartition(); err != nil {
				t.Errorf("EndPartition: %v", err)
				return
			}
			visited[part].Add(1)
		})
	if err != nil {
		t.Fatalf("ForEachPartition: %v", err)
	}
	waitHandle(t, done, "ForEachPartition did not complete")
	for i := range visited {
		if got := visited[i].Load(); got != 1 {
			t.Fatalf("partition %d visited %d times, want 1", i, got)
		}
	}
	sys.Update()
}

// TestForEachReader verifies one yield per stream.
func TestForEachReader(t *testing.T) {
	if estream.RaceEnabled {
		t.Skip("skip: executor tests exercise lock-free queues concurrently")
	}
	sys, _, _ := newSystem(t)

	for range 3 {
		w, err := estream.CreateIndexWriter[collision](sys, 2)
		if err != nil {
			t.Fatalf("CreateIndexWriter: %v", err)
		}
		for j := range 2 {
			if err := w.BeginPartition(j); err != nil {
				t.Fatalf("BeginPartition: %v", err)
			}
			if err := estream.Write(&w, collision{A: uint32(j)}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.EndPartition(); err != nil {
				t.Fatalf("EndPartition: %v", err)
			}
		}
		if err := estream.AddProducerHandle[collision](sys, estream.Handle{}); err != nil {
			t.Fatalf("AddProducerHandle: %v", err)
		}
	}

	var visited atomix.Int64
	var items atomix.Int64
	done, err := estream.ForEachReader[collision](sys, estream.Handle{},
		func(tc *estream.TaskContext, r *estream.Reader, idx int) {
			visited.Add(1)
			for j := range r.PartitionCount() {
				n, err := r.BeginPartition(j)
				if err != nil {
					t.Errorf("BeginPartition: %v", err)
					return
				}
				for range n {
					if _, err := estream.Read[collision](r); err != nil {
						t.Errorf("Read: %v", err)
						return
					}
					items.Add(1)
				}
				if err := r.EndPartition(); err != nil {
					t.Errorf("EndPartition: %v", err)
					return
				}
			}
		})
	if err != nil {
		t.Fatalf("ForEachReader: %v", err)
	}
	waitHandle(t, done, "ForEachReader did not complete")
	if got := visited.Load(); got != 3 {
		t.Fatalf("streams visited: got %d, want 3", got)
	}
	if got := items.Load(); got != 6 {
		t.Fatalf("items observed: got %d, want 6", got)
	}
	sys.Update()
}
