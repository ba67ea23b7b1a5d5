// Package render keeps the notification page as an HTML node tree.
//
// The Document owns a single render target element. Render rebuilds the
// target's children from a history snapshot; the HTTP API serializes the
// whole page or just the target's children.
package render
