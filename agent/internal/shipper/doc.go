// Package shipper sends MarketSnapshot records to coinscope-server via gRPC
// (coinscope.v1.SnapshotService/SendSnapshot, see pkg/rpc).
//
// Shipper.Ship is non-blocking: a poll Cycle is converted to a snapshot and
// placed in a bounded channel (buffer_size, default 100). When the buffer is
// full the oldest entry is evicted so the freshest market view survives.
//
// Shipper.Run drains the buffer in a loop, reconnecting with truncated
// exponential backoff (1s→60s, ±25% jitter) on connection or send errors.
// Permanent gRPC errors (Unauthenticated, PermissionDenied, InvalidArgument)
// discard the snapshot immediately rather than retrying.
//
// Auth: mTLS via credentials.NewTLS, API key via gRPC metadata header,
// or plaintext for local development.
package shipper
