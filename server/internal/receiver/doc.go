// Package receiver implements the SnapshotService gRPC handler.
//
// Receiver.SendSnapshot accepts MarketSnapshots from coinscope-agent,
// validates the source_id, writes them to the store and evaluates alerts.
// Authentication is handled upstream by the auth interceptor.
package receiver
