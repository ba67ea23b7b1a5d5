// Package health tracks the upstream connection and the history store.
//
// The Monitor pings the store on an interval and observes connection
// lifecycle signals through Track. Its Status backs the /health endpoint.
package health
