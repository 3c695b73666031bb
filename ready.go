package nchannels

// readySlot is the one-shot "receive may now succeed" callback slot
// described by the design's readiness notifier. It holds at most one
// pending callback.
//
// readySlot has no lock of its own: every method must be called while the
// owning Channel's mutex is held. The owner is responsible for computing
// the "already ready" condition (closed, or a buffered item present) in
// the same critical section as the call to register, and for invoking the
// func returned by fire only after releasing its own mutex.
type readySlot struct {
	cb func()
}

// register stores cb to be invoked the next time fire is called, unless
// immediate is true, in which case cb is invoked right away (by register
// itself, under the caller's lock) and the slot is left empty. A later
// register call replaces any callback still pending from an earlier one.
func (r *readySlot) register(immediate bool, cb func()) {
	if immediate {
		cb()
		return
	}
	r.cb = cb
}

// clear empties the slot without invoking any pending callback.
func (r *readySlot) clear() {
	r.cb = nil
}

// fire empties the slot and returns whatever callback was pending, or nil
// if none was. The caller invokes the returned func outside its own lock.
func (r *readySlot) fire() func() {
	cb := r.cb
	r.cb = nil
	return cb
}
