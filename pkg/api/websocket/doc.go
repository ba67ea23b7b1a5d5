// Package websocket pushes history updates to open notification pages.
//
// Browsers connect to /ws and receive the rendered entries as an HTML
// fragment: once on connect and again after every history update.
package websocket
