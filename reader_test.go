// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/estream"
)

func writerWithItems(t *testing.T, pool *estream.BlockPool, items ...uint32) *estream.ThreadStream {
	t.Helper()
	s := estream.NewThreadStream(pool, 2)
	pw := s.Writer().Partition(estream.WorkerContext(0))
	for _, v := range items {
		if err := estream.Write(pw, v); err != nil {
			t.Fatalf("Write(%d): %v", v, err)
		}
	}
	return s
}

// TestReadBeforeBegin verifies reads require an active partition.
func TestReadBeforeBegin(t *testing.T) {
	pool := estream.NewBlockPool()
	s := writerWithItems(t, pool, 1, 2)

	r := s.Reader()
	if _, err := estream.Read[uint32](&r); !errors.Is(err, estream.ErrReadInactive) {
		t.Fatalf("Read before begin: got %v, want ErrReadInactive", err)
	}
	if !errors.Is(r.EndPartition(), estream.ErrReadInactive) {
		t.Fatalf("EndPartition before begin should fail with ErrReadInactive")
	}
}

// TestBeginPartitionRange verifies out-of-range partition indexes fail
// with a capacity error.
func TestBeginPartitionRange(t *testing.T) {
	pool := estream.NewBlockPool()
	s := writerWithItems(t, pool, 1)

	r := s.Reader()
	if _, err := r.BeginPartition(-1); !errors.Is(err, estream.ErrPartitionRange) {
		t.Fatalf("BeginPartition(-1): got %v, want ErrPartitionRange", err)
	}
	if _, err := r.BeginPartition(2); !errors.Is(err, estream.ErrPartitionRange) {
		t.Fatalf("BeginPartition(P): got %v, want ErrPartitionRange", err)
	}
	if _, err := r.BeginPartition(2); !errors.Is(err, estream.ErrCapacity) {
		t.Fatalf("range error should classify as ErrCapacity")
	}
}

// TestOverRead verifies reading past the partition end fails.
func TestOverRead(t *testing.T) {
	pool := estream.NewBlockPool()
	s := writerWithItems(t, pool, 1)

	r := s.Reader()
	if _, err := r.BeginPartition(0); err != nil {
		t.Fatalf("BeginPartition: %v", err)
	}
	if _, err := estream.Read[uint32](&r); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := estream.Read[uint32](&r); !errors.Is(err, estream.ErrOverRead) {
		t.Fatalf("over-read: got %v, want ErrOverRead", err)
	}
	if _, err := estream.Read[uint32](&r); !errors.Is(err, estream.ErrShape) {
		t.Fatalf("over-read should classify as ErrShape")
	}
}

// TestIncompleteRead verifies EndPartition requires full consumption.
func TestIncompleteRead(t *testing.T) {
	pool := estream.NewBlockPool()
	s := writerWithItems(t, pool, 1, 2, 3)

	r := s.Reader()
	if _, err := r.BeginPartition(0); err != nil {
		t.Fatalf("BeginPartition: %v", err)
	}
	if _, err := estream.Read[uint32](&r); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := r.EndPartition(); !errors.Is(err, estream.ErrIncompleteRead) {
		t.Fatalf("incomplete end: got %v, want ErrIncompleteRead", err)
	}
	if got := r.RemainingInPartition(); got != 2 {
		t.Fatalf("RemainingInPartition: got %d, want 2", got)
	}
}

// TestBeginWhileOpen verifies a reader must close one partition before
// opening another.
func TestBeginWhileOpen(t *testing.T) {
	pool := estream.NewBlockPool()
	s := writerWithItems(t, pool, 1)

	r := s.Reader()
	if _, err := r.BeginPartition(0); err != nil {
		t.Fatalf("BeginPartition: %v", err)
	}
	if _, err := r.BeginPartition(1); !errors.Is(err, estream.ErrPartitionOpen) {
		t.Fatalf("begin while open: got %v, want ErrPartitionOpen", err)
	}
}

// TestPeek verifies Peek returns the next item without advancing.
func TestPeek(t *testing.T) {
	pool := estream.NewBlockPool()
	s := writerWithItems(t, pool, 41, 42)

	r := s.Reader()
	if _, err := r.BeginPartition(0); err != nil {
		t.Fatalf("BeginPartition: %v", err)
	}
	if v, err := estream.Peek[uint32](&r); err != nil || v != 41 {
		t.Fatalf("Peek: got %d, %v, want 41", v, err)
	}
	if v, err := estream.Read[uint32](&r); err != nil || v != 41 {
		t.Fatalf("Read after peek: got %d, %v, want 41", v, err)
	}
	if v, err := estream.Peek[uint32](&r); err != nil || v != 42 {
		t.Fatalf("Peek: got %d, %v, want 42", v, err)
	}
	if got := r.RemainingInPartition(); got != 1 {
		t.Fatalf("RemainingInPartition: got %d, want 1", got)
	}
}

// TestConcurrentReadersDistinctPartitions verifies independent cursors
// scan distinct partitions of one frozen stream.
func TestConcurrentReadersDistinctPartitions(t *testing.T) {
	pool := estream.NewBlockPool()
	s := estream.NewThreadStream(pool, 2)
	for w := range 2 {
		pw := s.Writer().Partition(estream.WorkerContext(w))
		for i := range 100 {
			if err := estream.Write(pw, uint32(w*1000+i)); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
	}

	done := make(chan error, 2)
	for w := range 2 {
		r := s.Reader()
		go func(r estream.Reader, w int) {
			n, err := r.BeginPartition(w)
			if err != nil {
				done <- err
				return
			}
			for i := range n {
				v, err := estream.Read[uint32](&r)
				if err != nil {
					done <- err
					return
				}
				if v != uint32(w*1000+i) {
					done <- errors.New("out of order read")
					return
				}
			}
			done <- r.EndPartition()
		}(r, w)
	}
	for range 2 {
		if err := <-done; err != nil {
			t.Fatalf("concurrent reader: %v", err)
		}
	}
}

// TestTotalItemCountSumsPartitions verifies the count invariant across
// partitions.
func TestTotalItemCountSumsPartitions(t *testing.T) {
	pool := estream.NewBlockPool()
	s := estream.NewThreadStream(pool, 4)
	for w := range 4 {
		pw := s.Writer().Partition(estream.WorkerContext(w))
		for range w {
			if err := estream.Write(pw, uint32(w)); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
	}
	if got := s.TotalItemCount(); got != 0+1+2+3 {
		t.Fatalf("TotalItemCount: got %d, want 6", got)
	}
	r := s.Reader()
	if got := r.TotalItemCount(); got != 6 {
		t.Fatalf("reader TotalItemCount: got %d, want 6", got)
	}
}
