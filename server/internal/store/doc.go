// Package store holds the latest MarketSnapshot from each agent in memory.
//
// Entries are keyed by source_id and replaced on every Put. An entry is live
// for Snapshot.TTL after its last update; List and Latest only return live
// entries, and Run evicts stale ones in the background. The clock is
// injectable so TTL behaviour can be tested without sleeping.
package store
