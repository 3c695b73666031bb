// Package nchannels provides bounded, typed, CSP-style channels for
// goroutines, plus a single-use multi-way wait primitive ("select") that
// races readiness across several channels.
//
// A [Channel] behaves like a buffered Go channel, except that it is a
// first-class value with an explicit close protocol: [Channel.Send] fails
// with [ErrClosed] once [Channel.Close] has run, and [Channel.Receive]
// drains any buffered items before reporting closure. [Select] lets a
// goroutine wait on several channels at once and run exactly one handler,
// for whichever case becomes ready first; ties among cases that are all
// ready at once are broken uniformly at random.
//
// [After] builds a single-shot timer channel, so timeouts compose with
// [Select] the same way they would with the standard library's
// time.After and a native select statement. The stream helpers
// ([SendAll], [Merge], [MergeMany], [Where], [Map], [Forward], [Spread],
// [Purge], [Count], [ForEach], [ForEachAsync]) are thin helpers built
// entirely out of Send, Receive, and Select; they exist for convenience
// and carry no additional invariants of their own.
package nchannels
