package nchannels

import (
	"context"
	"iter"
	"sync"
)

// bufOrOne normalizes a caller-supplied buffer size the way the stream
// helpers' "buf=1" defaults are specified: anything less than 1 becomes 1.
func bufOrOne(buf int) int {
	if buf < 1 {
		return 1
	}
	return buf
}

// SendAll drives items onto a new channel and closes it once the iterator
// is exhausted or ctx ends.
func SendAll[T any](ctx context.Context, buf int, items iter.Seq[T]) *Channel[T] {
	out, _ := NewChannel[T](bufOrOne(buf))
	go func() {
		defer out.Close()
		for v := range items {
			if out.Send(ctx, v) != nil {
				return
			}
		}
	}()
	return out
}

// Merge drains a and b into a new channel, in whatever order their items
// become available, closing it once both have closed or ctx ends.
func Merge[T any](ctx context.Context, buf int, a, b *Channel[T]) *Channel[T] {
	return MergeMany(ctx, buf, a, b)
}

// MergeMany drains chans into a new channel, in whatever order their items
// become available, closing it once every input has closed or ctx ends.
func MergeMany[T any](ctx context.Context, buf int, chans ...*Channel[T]) *Channel[T] {
	out, _ := NewChannel[T](bufOrOne(buf))
	go func() {
		defer out.Close()

		done := make([]bool, len(chans))
		remaining := len(chans)
		for remaining > 0 {
			sel := NewSelect()
			for i, ch := range chans {
				if done[i] {
					continue
				}
				Case(sel, ch, func(ctx context.Context, v T, ok bool) error {
					if !ok {
						done[i] = true
						remaining--
						return nil
					}
					return out.Send(ctx, v)
				})
			}
			if err := sel.End(ctx); err != nil {
				return
			}
		}
	}()
	return out
}

// Where drains in into a new channel, keeping only the items for which
// pred reports true.
func Where[T any](ctx context.Context, buf int, in *Channel[T], pred func(T) bool) *Channel[T] {
	out, _ := NewChannel[T](bufOrOne(buf))
	go func() {
		defer out.Close()
		for {
			res, err := in.Receive(ctx)
			if err != nil || !res.Ok {
				return
			}
			if pred(res.Value) {
				if out.Send(ctx, res.Value) != nil {
					return
				}
			}
		}
	}()
	return out
}

// Map drains in into a new channel, transforming each item with fn.
func Map[T, U any](ctx context.Context, buf int, in *Channel[T], fn func(T) U) *Channel[U] {
	out, _ := NewChannel[U](bufOrOne(buf))
	go func() {
		defer out.Close()
		for {
			res, err := in.Receive(ctx)
			if err != nil || !res.Ok {
				return
			}
			if out.Send(ctx, fn(res.Value)) != nil {
				return
			}
		}
	}()
	return out
}

// Forward copies items from source to target until source closes, ctx
// ends, or a send to target fails. It does not close target, since target
// may be shared with other forwarders; it reports nil once source closes
// cleanly.
func Forward[T any](ctx context.Context, target, source *Channel[T]) error {
	for {
		res, err := source.Receive(ctx)
		if err != nil {
			return err
		}
		if !res.Ok {
			return nil
		}
		if err := target.Send(ctx, res.Value); err != nil {
			return err
		}
	}
}

// Spread broadcasts each item received from source to every target,
// waiting for all targets to accept an item before advancing to the next.
// Spread closes every target once source closes or ctx ends.
func Spread[T any](ctx context.Context, source *Channel[T], targets ...*Channel[T]) error {
	defer func() {
		for _, t := range targets {
			t.Close()
		}
	}()

	for {
		res, err := source.Receive(ctx)
		if err != nil {
			return err
		}
		if !res.Ok {
			return nil
		}

		errs := make([]error, len(targets))
		var wg sync.WaitGroup
		for i, t := range targets {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = t.Send(ctx, res.Value)
			}()
		}
		wg.Wait()

		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
}

// Purge drains and discards every item from in until it closes or ctx
// ends.
func Purge[T any](ctx context.Context, in *Channel[T]) error {
	for {
		res, err := in.Receive(ctx)
		if err != nil {
			return err
		}
		if !res.Ok {
			return nil
		}
	}
}

// Count drains in, reporting how many items it yielded before closing.
func Count[T any](ctx context.Context, in *Channel[T]) (int64, error) {
	var n int64
	for {
		res, err := in.Receive(ctx)
		if err != nil {
			return n, err
		}
		if !res.Ok {
			return n, nil
		}
		n++
	}
}

// ForEach drains in, calling action on each item in order, stopping early
// if action returns a non-nil error.
func ForEach[T any](ctx context.Context, in *Channel[T], action func(T) error) error {
	for {
		res, err := in.Receive(ctx)
		if err != nil {
			return err
		}
		if !res.Ok {
			return nil
		}
		if err := action(res.Value); err != nil {
			return err
		}
	}
}

// ForEachAsync is the non-blocking variant of ForEach: it starts the drain
// loop in its own goroutine and returns immediately with a channel that
// receives the loop's eventual result.
func ForEachAsync[T any](ctx context.Context, in *Channel[T], action func(T) error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- ForEach(ctx, in, action) }()
	return done
}
