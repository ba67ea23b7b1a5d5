// Package http serves the notification page and its JSON API.
//
// The HTTP server exposes endpoints for:
//   - The rendered notification page
//   - History queries and clearing
//   - Health checks
//   - Prometheus metrics
package http
