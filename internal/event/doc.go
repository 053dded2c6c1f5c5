// Package event defines the captured event shapes relayed to the consumer.
//
// A captured event is one of two immutable variants:
//   - SMS: one part of an incoming text message
//   - Notification: a posted notification's title, text and big text
//
// Events are forwarded live as a method call with a flat argument map
// (see Event.Method and Event.Payload) or, when no consumer is bound,
// persisted as a pipe-delimited queue record (see Entry).
//
// # Record format
//
// Records are "<field1>|<field2>|<field3>|<epochMillis>". SMS records use the
// literal tag "SMS" as field1, followed by body and sender. Notification
// records carry title, text and source app id. Fields are written verbatim:
// a field that contains "|" produces a record that no longer parses. This
// keeps records byte-compatible with queues written by earlier releases.
package event
