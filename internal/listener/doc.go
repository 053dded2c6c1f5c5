// Package listener contains the capture listeners: callbacks invoked by the
// host once per raw platform signal. Each listener normalizes the raw signal
// into zero or more captured events and hands every event to the bridge.
//
// Listener callbacks run on short host-dispatched callbacks and must return
// promptly. They never return errors: a failure affecting one item is logged
// and the item is skipped.
package listener
