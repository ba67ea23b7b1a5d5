// Package events provides ports.EventBus implementations.
//
// Implementations:
//   - redis: Redis Pub/Sub, shared by every notifeed instance on the same Redis
//   - memory: In-process fan-out
package events
