// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package estream

import (
	"fmt"
	"reflect"
)

// System coordinates producer/consumer rendezvous per event type across a
// scheduling tick.
//
// The rendezvous API — CreateWriter, AddProducerHandle, AcquireReaders,
// AddConsumerHandle and Update — is confined to the goroutine that owns
// the tick. Task bodies only ever touch the writer and reader views handed
// out by it.
//
// Within one tick and one event type, CreateWriter must pair with
// AddProducerHandle and AcquireReaders with AddConsumerHandle, and the two
// sides exclude each other while unpaired. Update closes the tick: it
// waits for all published handles, releases consumed streams to the pool,
// and defers unconsumed ones to the share selected by the system's mode.
type System struct {
	pool *BlockPool
	exec *Executor

	mode  Mode
	key   string
	world string
	bus   *Bus
	priv  *share

	regs map[reflect.Type]*registry
	tick uint64
}

// NewSystem creates a system bound to a pool and an executor.
//
// The default mode confines event visibility to this instance. Attach a
// [Bus] and pick [ModeCustom] or [ModeActive] to share deferred streams
// with other systems; misconfigured modes return [ErrInvalidMode].
func NewSystem(pool *BlockPool, exec *Executor, opts ...SystemOption) (*System, error) {
	if pool == nil {
		panic("estream: nil pool")
	}
	if exec == nil {
		panic("estream: nil executor")
	}
	cfg := systemConfig{mode: ModeDefault}
	for _, o := range opts {
		o(&cfg)
	}
	switch cfg.mode {
	case ModeDefault:
		if cfg.key != "" {
			return nil, fmt.Errorf("%w: custom key without ModeCustom", ErrInvalidMode)
		}
	case ModeActive:
		if cfg.bus == nil {
			return nil, fmt.Errorf("%w: ModeActive requires a bus", ErrInvalidMode)
		}
	case ModeCustom:
		if cfg.bus == nil || cfg.key == "" {
			return nil, fmt.Errorf("%w: ModeCustom requires a bus and a key", ErrInvalidMode)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(cfg.mode))
	}
	return &System{
		pool:  pool,
		exec:  exec,
		mode:  cfg.mode,
		key:   cfg.key,
		world: cfg.world,
		bus:   cfg.bus,
		priv:  newShare(),
		regs:  make(map[reflect.Type]*registry),
	}, nil
}

// Mode returns the sharing mode.
func (s *System) Mode() Mode { return s.mode }

// CustomKey returns the sharing key for [ModeCustom], "" otherwise.
func (s *System) CustomKey() string { return s.key }

// World returns the world name this system belongs to.
func (s *System) World() string { return s.world }

// Tick returns the number of completed Update calls.
func (s *System) Tick() uint64 { return s.tick }

// shareFor resolves the share this system's deferred streams live in.
func (s *System) shareFor() *share {
	switch s.mode {
	case ModeCustom:
		return s.bus.share(s.key)
	case ModeActive:
		if s.bus.ActiveWorld() == s.world {
			return s.bus.share("world\x00" + s.world)
		}
		return s.priv
	default:
		return s.priv
	}
}

func getReg[E any](s *System) *registry {
	t := reflect.TypeFor[E]()
	r := s.regs[t]
	if r == nil {
		r = &registry{}
		s.regs[t] = r
	}
	return r
}

// CreateWriter allocates a fresh worker-indexed stream for event type E
// and returns its writer view. The caller must publish the producing
// task's completion via [AddProducerHandle] before any further rendezvous
// for E.
func CreateWriter[E any](s *System) (Writer, error) {
	if err := checkUnmanaged[E](); err != nil {
		return Writer{}, err
	}
	r := getReg[E](s)
	if r.writerOpen {
		return Writer{}, ErrWriterOpen
	}
	if r.readerOpen {
		return Writer{}, ErrReaderOpen
	}
	st := NewThreadStream(s.pool, s.exec.Workers())
	r.active = append(r.active, regEntry{s: st})
	r.writerOpen = true
	return st.Writer(), nil
}

// CreateIndexWriter allocates a fresh caller-indexed stream for event
// type E with the given partition count and returns its writer state
// machine. Pairing rules are the same as [CreateWriter].
func CreateIndexWriter[E any](s *System, partitions int) (IndexWriter, error) {
	if err := checkUnmanaged[E](); err != nil {
		return IndexWriter{}, err
	}
	if partitions <= 0 {
		return IndexWriter{}, ErrPartitionCount
	}
	r := getReg[E](s)
	if r.writerOpen {
		return IndexWriter{}, ErrWriterOpen
	}
	if r.readerOpen {
		return IndexWriter{}, ErrReaderOpen
	}
	st := NewIndexStream(s.pool, partitions)
	r.active = append(r.active, regEntry{s: st})
	r.writerOpen = true
	return st.IndexWriter(), nil
}

// AddProducerHandle merges h into the pending producer handle for E and
// closes the open writer pairing.
func AddProducerHandle[E any](s *System, h Handle) error {
	r := getReg[E](s)
	if !r.writerOpen {
		return ErrNoWriter
	}
	r.producer = Combine(r.producer, h)
	r.writerOpen = false
	r.published = true
	return nil
}

// AcquireReaders returns one reader per stream holding events of type E —
// the streams created this tick plus any deferred streams visible under
// the system's mode key — together with a handle that dominates every
// producer task published for E. Consumer tasks must depend on that
// handle; their completion must be published via [AddConsumerHandle].
//
// Repeated acquires within one tick observe the same reader set.
func AcquireReaders[E any](s *System, dep Handle) (Handle, []Reader, error) {
	r := getReg[E](s)
	if r.writerOpen {
		return Handle{}, nil, ErrWriterOpen
	}
	if r.readerOpen {
		return Handle{}, nil, ErrReaderOpen
	}
	if adopted := s.shareFor().take(reflect.TypeFor[E]()); len(adopted) > 0 {
		r.adopted = append(r.adopted, adopted...)
	}
	readers := make([]Reader, 0, len(r.adopted)+len(r.active))
	for _, st := range r.adopted {
		readers = append(readers, st.Reader())
	}
	for i := range r.active {
		r.active[i].consumed = true
		readers = append(readers, r.active[i].s.Reader())
	}
	r.readerOpen = true
	return Combine(dep, r.producer), readers, nil
}

// AddConsumerHandle merges h into the pending consumer handle for E and
// closes the open reader pairing.
func AddConsumerHandle[E any](s *System, h Handle) error {
	r := getReg[E](s)
	if !r.readerOpen {
		return ErrNoReader
	}
	r.consumer = Combine(r.consumer, h)
	r.readerOpen = false
	return nil
}

// HasReaders reports whether any stream of type E holds a published
// producer this tick or is deferred from an earlier tick. The answer is
// independent of whether the streams contain events.
func HasReaders[E any](s *System) bool {
	r := getReg[E](s)
	if r.published && len(r.active) > 0 {
		return true
	}
	if len(r.adopted) > 0 {
		return true
	}
	return s.shareFor().count(reflect.TypeFor[E]()) > 0
}

// ReaderCount returns the number of streams an AcquireReaders for E would
// observe. No stream is counted twice across the active and deferred
// lists.
func ReaderCount[E any](s *System) int {
	r := getReg[E](s)
	return len(r.active) + len(r.adopted) + s.shareFor().count(reflect.TypeFor[E]())
}

// Update closes the tick.
//
// It waits for the conjunction of all published producer and consumer
// handles, releases every consumed stream's blocks to the pool, moves
// streams nobody consumed to the deferred share for the next tick, clears
// the tick-local pairing state, and runs the pool's end-of-tick hook.
func (s *System) Update() {
	handles := make([]Handle, 0, 2*len(s.regs))
	for _, r := range s.regs {
		handles = append(handles, r.producer, r.consumer)
	}
	Combine(handles...).Wait()

	for t, r := range s.regs {
		for _, st := range r.adopted {
			st.Dispose(r.consumer)
		}
		var deferred []Stream
		for _, e := range r.active {
			if e.consumed {
				e.s.Dispose(r.consumer)
			} else {
				deferred = append(deferred, e.s)
			}
		}
		s.shareFor().put(t, deferred)
		r.reset()
	}
	s.tick++
	s.pool.tick()
}
