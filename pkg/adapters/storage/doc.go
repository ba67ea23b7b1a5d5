// Package storage provides ports.KVStore implementations.
//
// Implementations:
//   - redis: Redis GET/SET with optional TTL
//   - memory: In-memory map, for single-process use and testing
package storage
