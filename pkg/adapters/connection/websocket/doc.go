// Package websocket connects to the upstream notification endpoint and
// dispatches its lifecycle to a ports.LifecycleHandler.
//
// A Client makes exactly one connection attempt per Run. It does not
// reconnect.
package websocket
