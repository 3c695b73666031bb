package nchannels

// ReceiveResult is the outcome of a [Channel.Receive] call. Ok is false
// exactly when the channel was drained and closed at the moment the
// receive completed, in which case Value holds the zero value of T.
type ReceiveResult[T any] struct {
	Value T
	Ok    bool
}
