// Package notifier reacts to the lifecycle of the upstream notification
// connection.
//
// The Notifier implements ports.LifecycleHandler:
//   - OnOpen renders the stored history
//   - OnMessage labels the payload, appends it to the history, re-renders
//     and publishes a history.updated event for live pages
//   - OnClose only logs
//
// No handler returns an error to the connection; failures are logged and
// counted.
package notifier
