// Package rpc defines the agent→server gRPC contract.
//
// The service has one unary method:
//
//	coinscope.v1.SnapshotService/SendSnapshot(MarketSnapshot) returns (SendResponse)
//
// Messages are the plain Go structs in pkg/types encoded with a JSON codec
// registered under the "json" content-subtype, so no generated code is
// needed. SnapshotClient always selects that subtype; the server picks it up
// from the request's content-type. Importing this package registers the codec.
package rpc
