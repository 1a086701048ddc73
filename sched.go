// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"sync"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"code.hybscloud.com/spin"
)

// Handle is a task-completion token. The zero Handle is resolved.
//
// Handles form the dependency edges of the task graph: producers publish
// them, consumers adopt them, and [System.Update] waits on their
// conjunction.
type Handle struct {
	c <-chan struct{}
}

// Wait blocks until the handle resolves.
func (h Handle) Wait() {
	if h.c != nil {
		<-h.c
	}
}

// Done reports whether the handle has resolved.
func (h Handle) Done() bool {
	if h.c == nil {
		return true
	}
	select {
	case <-h.c:
		return true
	default:
		return false
	}
}

// Combine returns a handle that resolves once every given handle has.
// Resolved handles are elided; combining nothing yields a resolved handle.
func Combine(hs ...Handle) Handle {
	var pending []Handle
	for _, h := range hs {
		if !h.Done() {
			pending = append(pending, h)
		}
	}
	switch len(pending) {
	case 0:
		return Handle{}
	case 1:
		return pending[0]
	}
	done := make(chan struct{})
	go func() {
		for _, h := range pending {
			h.Wait()
		}
		close(done)
	}()
	return Handle{c: done}
}

// TaskContext carries the identity of the worker executing a task.
// The executor stamps one per worker; task bodies receive it by pointer
// and must not retain it past the task.
type TaskContext struct {
	worker int
}

// Worker returns the executing worker's index in [0, Workers).
func (tc *TaskContext) Worker() int {
	return tc.worker
}

// WorkerContext returns a context for the given worker index, for hosts
// that drive the bus from their own scheduler instead of an [Executor].
// The host owns the invariant that one index writes at a time.
func WorkerContext(worker int) *TaskContext {
	return &TaskContext{worker: worker}
}

// defaultRunQueue is the run queue capacity.
const defaultRunQueue = 4096

// job is one Run/RunN submission; units share it.
type job struct {
	fn        func(*TaskContext, int)
	remaining atomix.Int64
	done      chan struct{}
}

// unit is one schedulable invocation of a job.
type unit struct {
	j   *job
	idx int
}

// Executor is a fixed pool of workers draining a lock-free MPMC run
// queue. It is the reference implementation of the scheduler contract the
// event bus requires: tasks run to completion, honor explicit dependency
// handles, and receive their worker index via [TaskContext].
//
// Workers() bounds the partition count of every [ThreadStream].
type Executor struct {
	queue   lfq.QueuePtr
	quit    atomix.Bool
	wg      sync.WaitGroup
	workers int
}

// NewExecutor starts a pool of the given size. Panics if workers < 1.
func NewExecutor(workers int) *Executor {
	if workers < 1 {
		panic("estream: worker count must be >= 1")
	}
	e := &Executor{
		queue:   lfq.NewMPMCPtr(defaultRunQueue),
		workers: workers,
	}
	e.wg.Add(workers)
	for i := range workers {
		go e.work(i)
	}
	return e
}

// Workers returns the pool size. Every worker index is in [0, Workers).
func (e *Executor) Workers() int {
	return e.workers
}

// Run schedules fn after dep resolves and returns its completion handle.
func (e *Executor) Run(dep Handle, fn func(*TaskContext)) Handle {
	return e.RunN(dep, 1, func(tc *TaskContext, _ int) { fn(tc) })
}

// RunN schedules a parallel fan-out of n invocations of fn after dep
// resolves; fn receives the fan-out index. The returned handle resolves
// when the last invocation completes. n <= 0 resolves immediately.
func (e *Executor) RunN(dep Handle, n int, fn func(*TaskContext, int)) Handle {
	if n <= 0 {
		return Handle{}
	}
	j := &job{fn: fn, done: make(chan struct{})}
	j.remaining.Store(int64(n))
	units := make([]unit, n)
	for i := range units {
		units[i] = unit{j: j, idx: i}
	}
	if dep.Done() {
		e.submit(units)
	} else {
		go func() {
			dep.Wait()
			e.submit(units)
		}()
	}
	return Handle{c: j.done}
}

// Close stops the pool after the run queue drains. Callers must ensure
// every returned handle has resolved first.
func (e *Executor) Close() {
	e.quit.StoreRelease(true)
	if d, ok := e.queue.(lfq.Drainer); ok {
		d.Drain()
	}
	e.wg.Wait()
}

func (e *Executor) submit(units []unit) {
	sw := spin.Wait{}
	for i := range units {
		for e.queue.Enqueue(unsafe.Pointer(&units[i])) != nil {
			sw.Once()
		}
		sw.Reset()
	}
}

func (e *Executor) work(i int) {
	defer e.wg.Done()
	tc := &TaskContext{worker: i}
	backoff := iox.Backoff{}
	for {
		ptr, err := e.queue.Dequeue()
		if err != nil {
			if e.quit.LoadAcquire() {
				return
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		u := (*unit)(ptr)
		u.j.fn(tc, u.idx)
		if u.j.remaining.Add(-1) == 0 {
			close(u.j.done)
		}
	}
}
