package nchannels

import "errors"

// ErrClosed is reported by [Channel.Send] when called on a channel that has
// already been closed, whether the caller's own call raced the close or a
// previously parked send was drained by it.
var ErrClosed = errors.New("nchannels: send on closed channel")

// ErrInvalidCapacity is reported by [NewChannel] when capacity < 1.
var ErrInvalidCapacity = errors.New("nchannels: capacity must be at least 1")

// ErrSelectUsed is reported by [Select.End] when called on an instance that
// has already run End once. Select instances are single-use.
var ErrSelectUsed = errors.New("nchannels: select instance already used")
