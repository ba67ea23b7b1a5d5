package render

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultTargetID is the id of the render target element
	DefaultTargetID = "notifications"

	// DefaultClassName is the class set on every rendered entry
	DefaultClassName = "notification"

	// DefaultTitle is the page title
	DefaultTitle = "Notifications"
)

// Config holds document configuration
type Config struct {
	Title     string
	TargetID  string
	ClassName string

	// LivePath, when set, adds a script that replaces the target's
	// children with every text message received from this websocket path.
	LivePath string
}

// Document is an HTML page with one render target
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	target    *html.Node
	className string
}

// NewDocument builds an empty page
func NewDocument(cfg Config) *Document {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.TargetID == "" {
		cfg.TargetID = DefaultTargetID
	}
	if cfg.ClassName == "" {
		cfg.ClassName = DefaultClassName
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element(atom.Html)
	root.AppendChild(htmlEl)

	head := element(atom.Head)
	htmlEl.AppendChild(head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	title := element(atom.Title)
	title.AppendChild(text(cfg.Title))
	head.AppendChild(title)

	body := element(atom.Body)
	htmlEl.AppendChild(body)
	heading := element(atom.H1)
	heading.AppendChild(text(cfg.Title))
	body.AppendChild(heading)

	target := element(atom.Div, html.Attribute{Key: "id", Val: cfg.TargetID})
	body.AppendChild(target)

	if cfg.LivePath != "" {
		script := element(atom.Script)
		script.AppendChild(text(liveScript(cfg.TargetID, cfg.LivePath)))
		body.AppendChild(script)
	}

	return &Document{
		root:      root,
		target:    target,
		className: cfg.ClassName,
	}
}

// Render replaces the target's children with one element per entry, in order.
func (d *Document) Render(history []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for c := d.target.FirstChild; c != nil; {
		next := c.NextSibling
		d.target.RemoveChild(c)
		c = next
	}

	for _, entry := range history {
		el := element(atom.Div, html.Attribute{Key: "class", Val: d.className})
		el.AppendChild(text(entry))
		d.target.AppendChild(el)
	}
}

// Entries returns the text of the target's children in document order
func (d *Document) Entries() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := []string{}
	for c := d.target.FirstChild; c != nil; c = c.NextSibling {
		entries = append(entries, textContent(c))
	}
	return entries
}

// WriteTo serializes the full page
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cw := &countingWriter{w: w}
	err := html.Render(cw, d.root)
	return cw.n, err
}

// Fragment serializes only the target's children
func (d *Document) Fragment() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	for c := d.target.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func liveScript(targetID, path string) string {
	return `(function () {
  var target = document.getElementById(` + strconv.Quote(targetID) + `);
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + ` + strconv.Quote(path) + `);
  ws.onmessage = function (e) { target.innerHTML = e.data; };
})();`
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
