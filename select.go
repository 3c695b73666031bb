package nchannels

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// A Select races readiness across the channels registered with [Case] and
// runs exactly one winning case's handler. A Select is single-use: once
// [Select.End] has run, the instance is spent.
//
// The zero Select is not ready for use; create one with [NewSelect].
type Select struct {
	mu sync.Mutex

	// built is flipped exactly once, by End, under mu. It separates the
	// Building phase (case callbacks append to immediate) from Finalizing
	// (case callbacks race for the winner slot instead). Serializing the
	// flip against every callback's branch decision under the same mutex
	// closes the timing window a naive "wait a tick, then pick" approach
	// would leave open.
	built bool

	immediate []thunk
	clears    []func()

	winner      chan thunk // capacity 1
	hasSelected atomic.Bool
	used        atomic.Bool
}

type thunk func(context.Context) error

// NewSelect creates a new, empty Select ready to accept cases.
func NewSelect() *Select {
	return &Select{winner: make(chan thunk, 1)}
}

// Case registers a case on s: when ch becomes ready (an item is available
// or ch is closed) and wins the race, s performs the actual Receive on ch
// and passes its result to handler. handler's ok argument is false exactly
// when ch was closed and drained.
//
// Case panics if s has already been spent by a call to [Select.End];
// reusing a spent Select is a programming error, not a recoverable one.
func Case[T any](s *Select, ch *Channel[T], handler func(ctx context.Context, item T, ok bool) error) {
	if s.used.Load() {
		panic(ErrSelectUsed)
	}

	run := thunk(func(ctx context.Context) error {
		res, err := ch.Receive(ctx)
		if err != nil {
			return err
		}
		return handler(ctx, res.Value, res.Ok)
	})

	cb := func() {
		s.mu.Lock()
		if !s.built {
			s.immediate = append(s.immediate, run)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		if s.hasSelected.CompareAndSwap(false, true) {
			s.winner <- run
		}
	}

	ch.registerReceiveReady(cb)

	s.mu.Lock()
	s.clears = append(s.clears, ch.clearReceiveReady)
	s.mu.Unlock()
}

// End finalizes s, waits for a winning case, runs its handler, and reports
// the handler's error (or ctx's error, if ctx ends first). Among cases that
// are already ready at the moment End runs, one is chosen uniformly at
// random; among cases that become ready only afterward, the first to do so
// wins. End reports [ErrSelectUsed] if called more than once on the same
// instance.
func (s *Select) End(ctx context.Context) error {
	if !s.used.CompareAndSwap(false, true) {
		return ErrSelectUsed
	}

	s.mu.Lock()
	s.built = true
	immediate := s.immediate
	s.immediate = nil
	clears := s.clears
	s.mu.Unlock()

	defer func() {
		for _, clear := range clears {
			clear()
		}
	}()

	if len(immediate) > 0 {
		pick := immediate[rand.IntN(len(immediate))]
		if s.hasSelected.CompareAndSwap(false, true) {
			s.winner <- pick
		}
	}

	select {
	case run := <-s.winner:
		return run(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}
