// Package history implements the bounded, newest-first notification history.
//
// The history is persisted as a JSON array of strings under a single key of a
// ports.KVStore. Reads never fail on malformed data: an undecodable value is
// reported through LoadResult.Status and treated as an empty history.
package history
