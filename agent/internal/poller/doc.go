// Package poller drives the agent's periodic cycle: fetch the top coins,
// rank them with package predict, build the booming and safe screens,
// attach exchange rates and upstream status, then hand the Cycle to the
// shipper.
//
// A failed market fetch still produces a Cycle carrying the error and the
// rates, so the server can report the outage. Predict settings can be
// swapped at runtime with SetSettings; config.Watch uses this.
package poller
