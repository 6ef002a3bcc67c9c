// Package audit relays session lifecycle events to pluggable sinks off the caller's
// goroutine.
//
// A [Dispatcher] owns one worker that delivers events in emit order. When its buffer is
// full it either drops (counted by [Dispatcher.Dropped]) or blocks the emitter until ctx is
// done. Sinks: [ChannelSink], [JSONWriterSink], [SlogSink] and [NoOpSink].
//
// Which events exist is decided by the client; this package neither filters nor inspects
// them. Events carry identifiers only, never tokens or passwords.
package audit
